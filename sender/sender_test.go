package sender

import (
	"context"
	"errors"
	"testing"

	"github.com/anyproto/any-sync/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aqualab/aqualab-push-server/domain"
	"github.com/aqualab/aqualab-push-server/repo/tokenrepo"
	"github.com/aqualab/aqualab-push-server/repo/tokenrepo/mock_tokenrepo"
)

var ctx = context.Background()

var testPayload = domain.Payload{
	Title: "Cotización Aceptada",
	Body:  "body",
	Data:  map[string]string{"tipo": "cambio_estado"},
}

func TestSender_DispatchNoDevices(t *testing.T) {
	fx := newFixture(t)
	fx.RegisterProvider(domain.PlatformAndroid, &fakeProvider{
		send: func(ctx context.Context, token string, payload domain.Payload) (string, error) {
			t.Fatal("unexpected provider call")
			return "", nil
		},
	})
	fx.tokenRepo.EXPECT().ActiveTokensByClientId(gomock.Any(), "c2").Return(nil, nil)

	res, err := fx.Dispatch(ctx, "c2", testPayload)
	require.NoError(t, err)
	assert.Equal(t, domain.DispatchResult{}, res)
}

func TestSender_DispatchPartialPermanentFailure(t *testing.T) {
	fx := newFixture(t)
	fx.RegisterProvider(domain.PlatformAndroid, &fakeProvider{
		send: func(ctx context.Context, token string, payload domain.Payload) (string, error) {
			if token == "t2" {
				return "", ErrTokenNotRegistered
			}
			return "msg-1", nil
		},
	})
	fx.tokenRepo.EXPECT().ActiveTokensByClientId(gomock.Any(), "c1").Return([]domain.DeviceToken{
		{Id: "t1", ClientId: "c1", Platform: domain.PlatformAndroid},
		{Id: "t2", ClientId: "c1", Platform: domain.PlatformAndroid},
	}, nil)
	fx.tokenRepo.EXPECT().MarkDelivered(gomock.Any(), "t1").Return(nil)
	fx.tokenRepo.EXPECT().Deactivate(gomock.Any(), "t2").Return(nil)

	res, err := fx.Dispatch(ctx, "c1", testPayload)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "t2", res.Failures[0].Token)
	assert.Equal(t, domain.DeliveryErrorTokenInvalid, res.Failures[0].Kind)
}

func TestSender_DispatchTransientFailure(t *testing.T) {
	fx := newFixture(t)
	fx.RegisterProvider(domain.PlatformAndroid, &fakeProvider{
		send: func(ctx context.Context, token string, payload domain.Payload) (string, error) {
			return "", errors.New("provider unavailable")
		},
	})
	fx.tokenRepo.EXPECT().ActiveTokensByClientId(gomock.Any(), "c1").Return([]domain.DeviceToken{
		{Id: "t1", ClientId: "c1", Platform: domain.PlatformAndroid},
	}, nil)

	res, err := fx.Dispatch(ctx, "c1", testPayload)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, 0, res.Delivered)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, domain.DeliveryErrorTransient, res.Failures[0].Kind)
}

func TestSender_DispatchUnknownPlatform(t *testing.T) {
	fx := newFixture(t)
	fx.tokenRepo.EXPECT().ActiveTokensByClientId(gomock.Any(), "c1").Return([]domain.DeviceToken{
		{Id: "t1", ClientId: "c1", Platform: domain.PlatformIOS},
	}, nil)

	res, err := fx.Dispatch(ctx, "c1", testPayload)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, domain.DeliveryErrorTransient, res.Failures[0].Kind)
}

func TestSender_DispatchRepoError(t *testing.T) {
	fx := newFixture(t)
	repoErr := errors.New("mongo down")
	fx.tokenRepo.EXPECT().ActiveTokensByClientId(gomock.Any(), "c1").Return(nil, repoErr)

	_, err := fx.Dispatch(ctx, "c1", testPayload)
	require.ErrorIs(t, err, repoErr)
}

type fakeProvider struct {
	send func(ctx context.Context, token string, payload domain.Payload) (string, error)
}

func (f *fakeProvider) Send(ctx context.Context, token string, payload domain.Payload) (string, error) {
	return f.send(ctx, token, payload)
}

type fixture struct {
	Sender
	tokenRepo *mock_tokenrepo.MockTokenRepo
	a         *app.App
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	fx := &fixture{
		Sender:    New(),
		a:         new(app.App),
		tokenRepo: mock_tokenrepo.NewMockTokenRepo(ctrl),
	}
	fx.tokenRepo.EXPECT().Name().Return(tokenrepo.CName).AnyTimes()
	fx.tokenRepo.EXPECT().Init(gomock.Any()).AnyTimes()
	fx.tokenRepo.EXPECT().Run(gomock.Any()).AnyTimes()
	fx.tokenRepo.EXPECT().Close(gomock.Any()).AnyTimes()

	fx.a.Register(&testConfig{}).Register(fx.tokenRepo).Register(fx.Sender)
	require.NoError(t, fx.a.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, fx.a.Close(ctx))
		ctrl.Finish()
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

func (t testConfig) GetDispatch() Config {
	return Config{SendTimeoutSec: 1, MaxInFlight: 4}
}
