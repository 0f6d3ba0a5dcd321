package push

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/aqualab/aqualab-push-server/audit"
	"github.com/aqualab/aqualab-push-server/composer"
	"github.com/aqualab/aqualab-push-server/domain"
	"github.com/aqualab/aqualab-push-server/repo/tokenrepo"
	"github.com/aqualab/aqualab-push-server/sender"
)

const CName = "push"

var log = logger.NewNamed(CName)

func New() Push {
	return new(push)
}

// Registration is a device registration request as it arrives from the
// HTTP layer; Platform comes in raw and is validated here.
type Registration struct {
	ClientId   string
	Token      string
	Platform   string
	DeviceInfo map[string]string
}

type Push interface {
	// OnStatusChanged must be invoked once per committed status
	// transition, after the transition is durably persisted. A no-op
	// transition dispatches nothing. Dispatch failures are logged and
	// audited, never propagated: the status change is the source of truth
	// and has already succeeded.
	OnStatusChanged(ctx context.Context, change domain.StatusChange)
	RegisterDevice(ctx context.Context, reg Registration) (token domain.DeviceToken, err error)
	app.Component
}

type push struct {
	tokenRepo tokenrepo.TokenRepo
	sender    sender.Sender
	audit     audit.Audit
}

func (p *push) Init(a *app.App) (err error) {
	p.tokenRepo = a.MustComponent(tokenrepo.CName).(tokenrepo.TokenRepo)
	p.sender = a.MustComponent(sender.CName).(sender.Sender)
	p.audit = a.MustComponent(audit.CName).(audit.Audit)
	return
}

func (p *push) Name() (name string) {
	return CName
}

func (p *push) OnStatusChanged(ctx context.Context, change domain.StatusChange) {
	if change.Previous == change.New {
		log.Debug("status unchanged, skip dispatch", zap.String("sampleId", change.SampleId))
		return
	}
	dispatchId := newDispatchId()
	payload := composer.Compose(change)
	res, err := p.sender.Dispatch(ctx, change.ClientId, payload)
	if err != nil {
		log.Error("dispatch error",
			zap.Error(err),
			zap.String("dispatchId", dispatchId),
			zap.String("sampleId", change.SampleId))
		return
	}
	p.audit.Publish(audit.Record{
		Id:        dispatchId,
		ClientId:  change.ClientId,
		SampleId:  change.SampleId,
		Previous:  string(change.Previous),
		New:       string(change.New),
		Attempted: res.Attempted,
		Delivered: res.Delivered,
		Failed:    res.Failed,
		Created:   time.Now().Unix(),
	})
	log.Info("status change dispatched",
		zap.String("dispatchId", dispatchId),
		zap.String("sampleId", change.SampleId),
		zap.String("from", string(change.Previous)),
		zap.String("to", string(change.New)),
		zap.Int("attempted", res.Attempted),
		zap.Int("delivered", res.Delivered),
		zap.Int("failed", res.Failed))
}

func (p *push) RegisterDevice(ctx context.Context, reg Registration) (token domain.DeviceToken, err error) {
	platform, err := domain.ParsePlatform(reg.Platform)
	if err != nil {
		return
	}
	token, err = p.tokenRepo.Register(ctx, domain.DeviceToken{
		Id:         reg.Token,
		ClientId:   reg.ClientId,
		Platform:   platform,
		DeviceInfo: reg.DeviceInfo,
	})
	if err != nil {
		return
	}
	log.Info("device registered",
		zap.String("clientId", token.ClientId),
		zap.String("platform", platform.String()))
	return
}

func newDispatchId() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return base58.Encode(b[:])
}
