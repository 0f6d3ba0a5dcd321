//go:generate mockgen -destination mock_audit/mock_audit.go github.com/aqualab/aqualab-push-server/audit Audit

package audit

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/cheggaaa/mb/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aqualab/aqualab-push-server/redisprovider"
)

const CName = "push.audit"

var log = logger.NewNamed(CName)

const defaultQueue = "dispatch-audit"

type Config struct {
	Queue string `yaml:"queue"`
}

type configSource interface {
	GetAudit() Config
}

// Record is one dispatch attempt as reported to the audit subsystem.
type Record struct {
	Id        string `json:"id"`
	ClientId  string `json:"clientId"`
	SampleId  string `json:"sampleId"`
	Previous  string `json:"previousStatus"`
	New       string `json:"newStatus"`
	Attempted int    `json:"attempted"`
	Delivered int    `json:"delivered"`
	Failed    int    `json:"failed"`
	Created   int64  `json:"created"`
}

func New() Audit {
	return new(audit)
}

type Audit interface {
	// Publish is fire and forget: a record that can't be queued is logged
	// and dropped, it never affects the dispatch outcome.
	Publish(rec Record)
	app.ComponentRunnable
}

type audit struct {
	client       redis.UniversalClient
	rmqConn      rmq.Connection
	queue        rmq.Queue
	queueName    string
	records      *mb.MB[Record]
	errCh        chan error
	done         chan struct{}
	runCtx       context.Context
	runCtxCancel context.CancelFunc
}

func (a *audit) Init(ap *app.App) (err error) {
	a.client = ap.MustComponent(redisprovider.CName).(redisprovider.RedisProvider).Redis()
	a.queueName = ap.MustComponent("config").(configSource).GetAudit().Queue
	if a.queueName == "" {
		a.queueName = defaultQueue
	}
	a.records = mb.New[Record](100)
	a.done = make(chan struct{})
	a.runCtx, a.runCtxCancel = context.WithCancel(context.Background())
	return
}

func (a *audit) Name() (name string) {
	return CName
}

func (a *audit) Run(ctx context.Context) (err error) {
	a.errCh = make(chan error, 10)
	tag, _ := os.Hostname()
	if tag == "" {
		tag = CName
	}
	if a.rmqConn, err = rmq.OpenClusterConnection(tag, a.client, a.errCh); err != nil {
		return err
	}
	go a.handleRmqErrs()
	if a.queue, err = a.rmqConn.OpenQueue(a.queueName); err != nil {
		return err
	}
	go a.flushLoop()
	return
}

func (a *audit) Publish(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.records.Add(ctx, rec); err != nil {
		log.Warn("drop audit record", zap.Error(err), zap.String("dispatchId", rec.Id))
	}
}

func (a *audit) flushLoop() {
	defer close(a.done)
	ctx := mb.CtxWithTimeLimit(a.runCtx, time.Second)
	cond := a.records.NewCond().WithMin(10)
	for {
		records, err := cond.Wait(ctx)
		if err != nil {
			return
		}
		a.flush(records)
	}
}

func (a *audit) flush(records []Record) {
	st := time.Now()
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			log.Error("marshal audit record", zap.Error(err))
			continue
		}
		if err = a.queue.Publish(string(data)); err != nil {
			log.Error("publish audit record", zap.Error(err))
		}
	}
	log.Debug("audit records published", zap.Int("count", len(records)), zap.Duration("dur", time.Since(st)))
}

func (a *audit) handleRmqErrs() {
	for {
		select {
		case <-a.runCtx.Done():
			return
		case err := <-a.errCh:
			log.Warn("rmq error", zap.Error(err))
		}
	}
}

func (a *audit) Close(ctx context.Context) (err error) {
	if a.records != nil {
		err = a.records.Close()
	}
	if a.done != nil {
		select {
		case <-a.done:
		case <-ctx.Done():
		}
	}
	if a.runCtxCancel != nil {
		a.runCtxCancel()
	}
	return
}
