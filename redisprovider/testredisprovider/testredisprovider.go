package testredisprovider

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	"github.com/anyproto/any-sync/app"
	"github.com/redis/go-redis/v9"

	"github.com/aqualab/aqualab-push-server/redisprovider"
)

func NewTestRedisProvider() *TestRedisProvider {
	return &TestRedisProvider{}
}

// TestRedisProvider implements redisprovider.RedisProvider on top of an
// in-process miniredis instance.
type TestRedisProvider struct {
	mini   *miniredis.Miniredis
	client redis.UniversalClient
}

func (t *TestRedisProvider) Init(a *app.App) (err error) {
	return
}

func (t *TestRedisProvider) Name() (name string) {
	return redisprovider.CName
}

func (t *TestRedisProvider) Run(ctx context.Context) (err error) {
	if t.mini, err = miniredis.Run(); err != nil {
		return
	}
	t.client = redis.NewClient(&redis.Options{Addr: t.mini.Addr()})
	return t.client.Ping(ctx).Err()
}

func (t *TestRedisProvider) Redis() redis.UniversalClient {
	return t.client
}

func (t *TestRedisProvider) Close(ctx context.Context) (err error) {
	if t.client != nil {
		_ = t.client.Close()
	}
	if t.mini != nil {
		t.mini.Close()
	}
	return
}
