package fcm

import (
	"context"
	"errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/anyproto/any-sync/app"
	"google.golang.org/api/option"

	"github.com/aqualab/aqualab-push-server/domain"
	"github.com/aqualab/aqualab-push-server/sender"
)

const CName = "push.provider.fcm"

func New() FCM {
	return new(fcm)
}

type FCM interface {
	app.Component
}

type fcm struct {
}

func (f *fcm) Init(a *app.App) (err error) {
	s := a.MustComponent(sender.CName).(sender.Sender)
	conf := a.MustComponent("config").(configSource).GetFCM()

	provider, err := newProvider(conf)
	if err != nil {
		return err
	}
	// one authenticated client serves both platforms
	s.RegisterProvider(domain.PlatformAndroid, provider)
	s.RegisterProvider(domain.PlatformIOS, provider)
	return
}

func (f *fcm) Name() (name string) {
	return CName
}

func newProvider(conf Config) (sender.Provider, error) {
	creds, err := resolveCredentials(conf)
	if err != nil {
		return nil, err
	}
	fcmApp, err := firebase.NewApp(context.Background(), &firebase.Config{ProjectID: conf.ProjectId}, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, err
	}
	client, err := fcmApp.Messaging(context.Background())
	if err != nil {
		return nil, err
	}
	return &fcmProvider{client: client}, nil
}

type fcmProvider struct {
	client *messaging.Client
}

// Send delivers to exactly one token. The multicast/batch endpoint is off
// limits here: it fails wholesale for this service account even when
// individual tokens are fine, so every delivery goes through the
// single-message path.
func (p *fcmProvider) Send(ctx context.Context, token string, payload domain.Payload) (messageId string, err error) {
	messageId, err = p.client.Send(ctx, buildFcmMessage(token, payload))
	if err != nil {
		if messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err) {
			return "", errors.Join(sender.ErrTokenNotRegistered, err)
		}
		return "", err
	}
	return messageId, nil
}

func buildFcmMessage(token string, payload domain.Payload) *messaging.Message {
	priority := "normal"
	if payload.Priority == domain.PriorityHigh {
		priority = "high"
	}
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		Android: &messaging.AndroidConfig{
			Priority: priority,
		},
	}
}
