package tokenrepo

import (
	"context"
	"strings"
	"testing"

	"github.com/anyproto/any-sync/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqualab/aqualab-push-server/db"
	"github.com/aqualab/aqualab-push-server/domain"
)

var ctx = context.Background()

func testToken(prefix string) string {
	return prefix + ":APA91b" + strings.Repeat("x", 140)
}

func TestTokenRepo_Register(t *testing.T) {
	fx := newFixture(t)
	tok := testToken("t1")
	registered, err := fx.Register(ctx, domain.DeviceToken{
		Id:       tok,
		ClientId: "c1",
		Platform: domain.PlatformAndroid,
	})
	require.NoError(t, err)
	assert.Equal(t, tok, registered.Id)
	assert.Equal(t, domain.TokenStatusActive, registered.Status)
	assert.NotZero(t, registered.Created)
	assert.NotZero(t, registered.LastUsed)

	tokens, err := fx.ActiveTokensByClientId(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
}

func TestTokenRepo_RegisterMalformed(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.Register(ctx, domain.DeviceToken{
		Id:       "too-short:APA91b",
		ClientId: "c1",
		Platform: domain.PlatformAndroid,
	})
	require.ErrorIs(t, err, domain.ErrTokenMalformed)

	tokens, err := fx.ActiveTokensByClientId(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, tokens, 0)
}

func TestTokenRepo_RegisterUpsert(t *testing.T) {
	fx := newFixture(t)
	tok := testToken("t1")
	first, err := fx.Register(ctx, domain.DeviceToken{Id: tok, ClientId: "c1", Platform: domain.PlatformAndroid})
	require.NoError(t, err)
	second, err := fx.Register(ctx, domain.DeviceToken{Id: tok, ClientId: "c1", Platform: domain.PlatformAndroid})
	require.NoError(t, err)
	assert.Equal(t, first.Created, second.Created)

	tokens, err := fx.ActiveTokensByClientId(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
}

func TestTokenRepo_RegisterReactivates(t *testing.T) {
	fx := newFixture(t)
	tok := testToken("t1")
	_, err := fx.Register(ctx, domain.DeviceToken{Id: tok, ClientId: "c1", Platform: domain.PlatformAndroid})
	require.NoError(t, err)
	require.NoError(t, fx.Deactivate(ctx, tok))

	tokens, err := fx.ActiveTokensByClientId(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, tokens, 0)

	_, err = fx.Register(ctx, domain.DeviceToken{Id: tok, ClientId: "c1", Platform: domain.PlatformAndroid})
	require.NoError(t, err)
	tokens, err = fx.ActiveTokensByClientId(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
}

func TestTokenRepo_MultiDevice(t *testing.T) {
	fx := newFixture(t)
	for _, prefix := range []string{"t1", "t2", "t3"} {
		_, err := fx.Register(ctx, domain.DeviceToken{
			Id:       testToken(prefix),
			ClientId: "c1",
			Platform: domain.PlatformAndroid,
		})
		require.NoError(t, err)
	}
	require.NoError(t, fx.Deactivate(ctx, testToken("t2")))

	tokens, err := fx.ActiveTokensByClientId(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	for _, tok := range tokens {
		assert.NotEqual(t, testToken("t2"), tok.Id)
	}
}

func TestTokenRepo_MarkDelivered(t *testing.T) {
	fx := newFixture(t)
	tok := testToken("t1")
	_, err := fx.Register(ctx, domain.DeviceToken{Id: tok, ClientId: "c1", Platform: domain.PlatformAndroid})
	require.NoError(t, err)
	require.NoError(t, fx.MarkDelivered(ctx, tok))

	tokens, err := fx.ActiveTokensByClientId(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.GreaterOrEqual(t, tokens[0].LastUsed, tokens[0].Created)
}

func newFixture(t testing.TB) *fixture {
	fx := &fixture{
		TokenRepo: New(),
		a:         new(app.App),
	}
	fx.a.Register(&testConfig{
		Mongo: db.Mongo{
			Connect:  "mongodb://localhost:27017",
			Database: "push_unittest",
		},
	}).
		Register(db.New()).
		Register(fx.TokenRepo)
	require.NoError(t, fx.a.Start(ctx))
	t.Cleanup(func() {
		fx.finish(t)
	})
	return fx
}

type fixture struct {
	TokenRepo
	a *app.App
}

func (fx *fixture) finish(t testing.TB) {
	_ = fx.TokenRepo.(*tokenRepo).coll.Drop(ctx)
	require.NoError(t, fx.a.Close(ctx))
}

type testConfig struct {
	Mongo db.Mongo
}

func (t testConfig) Init(a *app.App) (err error) {
	return
}

func (t testConfig) Name() (name string) {
	return "config"
}

func (t testConfig) GetMongo() db.Mongo {
	return t.Mongo
}
