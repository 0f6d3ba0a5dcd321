package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/anyproto/any-sync/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqualab/aqualab-push-server/redisprovider/testredisprovider"
)

var ctx = context.Background()

func TestAudit_Publish(t *testing.T) {
	fx := newFixture(t)

	rec := Record{
		Id:        "d1",
		ClientId:  "c1",
		SampleId:  "MU-2024-001",
		Previous:  "En Cotización",
		New:       "Aceptada",
		Attempted: 2,
		Delivered: 1,
		Failed:    1,
		Created:   time.Now().Unix(),
	}
	fx.Publish(rec)

	conn, err := rmq.OpenClusterConnection("test-consumer", fx.redis.Redis(), nil)
	require.NoError(t, err)
	queue, err := conn.OpenQueue(defaultQueue)
	require.NoError(t, err)
	require.NoError(t, queue.StartConsuming(10, time.Millisecond*100))
	defer func() {
		<-conn.StopAllConsuming()
	}()

	recCh := make(chan Record, 1)
	_, err = queue.AddConsumerFunc("test", func(delivery rmq.Delivery) {
		var got Record
		if err := json.Unmarshal([]byte(delivery.Payload()), &got); err != nil {
			_ = delivery.Reject()
			return
		}
		_ = delivery.Ack()
		recCh <- got
	})
	require.NoError(t, err)

	select {
	case got := <-recCh:
		assert.Equal(t, rec, got)
	case <-time.After(time.Second * 5):
		t.Fatal("timeout waiting for audit record")
	}
}

type fixture struct {
	Audit
	redis *testredisprovider.TestRedisProvider
	a     *app.App
}

func newFixture(t *testing.T) *fixture {
	fx := &fixture{
		Audit: New(),
		redis: testredisprovider.NewTestRedisProvider(),
		a:     new(app.App),
	}
	fx.a.Register(&testConfig{}).Register(fx.redis).Register(fx.Audit)
	require.NoError(t, fx.a.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, fx.a.Close(ctx))
	})
	return fx
}

type testConfig struct{}

func (t testConfig) Init(a *app.App) (err error) {
	return
}

func (t testConfig) Name() (name string) {
	return "config"
}

func (t testConfig) GetAudit() Config {
	return Config{}
}
