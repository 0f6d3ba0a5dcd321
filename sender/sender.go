//go:generate mockgen -destination mock_sender/mock_sender.go github.com/aqualab/aqualab-push-server/sender Sender

package sender

import (
	"context"
	"errors"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/anyproto/any-sync/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aqualab/aqualab-push-server/domain"
	"github.com/aqualab/aqualab-push-server/repo/tokenrepo"
)

const CName = "push.sender"

var log = logger.NewNamed(CName)

const (
	defaultSendTimeout = 10 * time.Second
	defaultMaxInFlight = 16
)

var (
	// ErrTokenNotRegistered marks a token the provider reports as gone for
	// good; the engine deactivates it and never retries.
	ErrTokenNotRegistered = errors.New("token not registered")
	ErrNoProvider         = errors.New("no provider for platform")
)

type Config struct {
	SendTimeoutSec int `yaml:"sendTimeoutSec"`
	MaxInFlight    int `yaml:"maxInFlight"`
}

type configSource interface {
	GetDispatch() Config
}

func New() Sender {
	return new(sender)
}

// Provider delivers one message to one device token and classifies
// permanent token failures as ErrTokenNotRegistered.
type Provider interface {
	Send(ctx context.Context, token string, payload domain.Payload) (messageId string, err error)
}

type Sender interface {
	RegisterProvider(p domain.Platform, provider Provider)
	// Dispatch sends the payload to every active device of the client, one
	// independent request per token. Per-device failures are captured in
	// the result, never returned as an error; the only error case is the
	// registry read. An empty registry yields a zero result.
	Dispatch(ctx context.Context, clientId string, payload domain.Payload) (res domain.DispatchResult, err error)
	app.ComponentRunnable
}

type sender struct {
	tokenRepo   tokenrepo.TokenRepo
	providers   map[domain.Platform]Provider
	sendTimeout time.Duration
	maxInFlight int
	metrics     senderMetrics
}

func (s *sender) Init(a *app.App) (err error) {
	s.tokenRepo = a.MustComponent(tokenrepo.CName).(tokenrepo.TokenRepo)
	s.providers = make(map[domain.Platform]Provider)
	conf := a.MustComponent("config").(configSource).GetDispatch()
	s.sendTimeout = defaultSendTimeout
	if conf.SendTimeoutSec > 0 {
		s.sendTimeout = time.Duration(conf.SendTimeoutSec) * time.Second
	}
	s.maxInFlight = defaultMaxInFlight
	if conf.MaxInFlight > 0 {
		s.maxInFlight = conf.MaxInFlight
	}
	if m := a.Component(metric.CName); m != nil {
		registerMetrics(m.(metric.Metric).Registry(), s)
	}
	return
}

func (s *sender) Name() (name string) {
	return CName
}

func (s *sender) Run(ctx context.Context) (err error) {
	return
}

func (s *sender) RegisterProvider(p domain.Platform, provider Provider) {
	s.providers[p] = provider
}

func (s *sender) Dispatch(ctx context.Context, clientId string, payload domain.Payload) (res domain.DispatchResult, err error) {
	st := time.Now()
	tokens, err := s.tokenRepo.ActiveTokensByClientId(ctx, clientId)
	if err != nil {
		return
	}
	if len(tokens) == 0 {
		// a client with no registered device is a legitimate state
		return
	}
	res.Attempted = len(tokens)

	// one independent request per token; kinds[i] == 0 means delivered
	kinds := make([]domain.DeliveryErrorKind, len(tokens))
	var g errgroup.Group
	g.SetLimit(s.maxInFlight)
	for i, token := range tokens {
		g.Go(func() error {
			kinds[i] = s.sendOne(ctx, token, payload)
			return nil
		})
	}
	_ = g.Wait()

	for i, kind := range kinds {
		if kind == 0 {
			res.Delivered++
			continue
		}
		res.Failed++
		res.Failures = append(res.Failures, domain.DeliveryFailure{Token: tokens[i].Id, Kind: kind})
	}

	s.metrics.sendCount.Add(1)
	s.metrics.sendTokens.Add(int64(res.Attempted))
	if s.metrics.sendDuration != nil {
		s.metrics.sendDuration.WithLabelValues().Observe(time.Since(st).Seconds())
	}
	log.Info("push dispatched",
		zap.String("clientId", clientId),
		zap.Int("attempted", res.Attempted),
		zap.Int("delivered", res.Delivered),
		zap.Int("failed", res.Failed))
	return
}

func (s *sender) sendOne(ctx context.Context, token domain.DeviceToken, payload domain.Payload) domain.DeliveryErrorKind {
	provider, ok := s.providers[token.Platform]
	if !ok {
		log.Warn("no provider for platform", zap.String("platform", token.Platform.String()))
		return domain.DeliveryErrorTransient
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()
	_, err := provider.Send(sendCtx, token.Id, payload)
	switch {
	case err == nil:
		if repoErr := s.tokenRepo.MarkDelivered(ctx, token.Id); repoErr != nil {
			log.Warn("mark delivered error", zap.Error(repoErr))
		}
		return 0
	case errors.Is(err, ErrTokenNotRegistered):
		log.Info("deactivating invalid token", zap.String("token", token.Id))
		if repoErr := s.tokenRepo.Deactivate(ctx, token.Id); repoErr != nil {
			log.Warn("deactivate token error", zap.Error(repoErr))
		}
		return domain.DeliveryErrorTokenInvalid
	default:
		log.Warn("provider send error", zap.Error(err), zap.String("token", token.Id))
		return domain.DeliveryErrorTransient
	}
}

func (s *sender) Close(ctx context.Context) (err error) {
	return
}
