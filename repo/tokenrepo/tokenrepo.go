//go:generate mockgen -destination mock_tokenrepo/mock_tokenrepo.go github.com/aqualab/aqualab-push-server/repo/tokenrepo TokenRepo

package tokenrepo

import (
	"context"
	"time"

	"github.com/anyproto/any-sync/app"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aqualab/aqualab-push-server/db"
	"github.com/aqualab/aqualab-push-server/domain"
)

const CName = "push.tokenrepo"

const collName = "deviceToken"

func New() TokenRepo {
	return new(tokenRepo)
}

type TokenRepo interface {
	// Register upserts a device token. The same token re-registered by the
	// same client updates timestamps and reactivates the existing row
	// instead of creating a duplicate. Tokens failing the provider grammar
	// are rejected before anything is persisted.
	Register(ctx context.Context, token domain.DeviceToken) (registered domain.DeviceToken, err error)
	ActiveTokensByClientId(ctx context.Context, clientId string) (tokens []domain.DeviceToken, err error)
	MarkDelivered(ctx context.Context, tokenId string) (err error)
	// Deactivate flips the token off; rows are never deleted so history
	// survives and a concurrently registering device can't race a duplicate.
	Deactivate(ctx context.Context, tokenId string) (err error)
	app.ComponentRunnable
}

type tokenRepo struct {
	coll *mongo.Collection
}

func (t *tokenRepo) Init(a *app.App) (err error) {
	t.coll = a.MustComponent(db.CName).(db.Database).Db().Collection(collName)
	return
}

func (t *tokenRepo) Name() (name string) {
	return CName
}

func (t *tokenRepo) Run(ctx context.Context) error {
	_, err := t.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "clientId", Value: 1}, {Key: "status", Value: 1}},
	})
	return err
}

func (t *tokenRepo) Register(ctx context.Context, token domain.DeviceToken) (registered domain.DeviceToken, err error) {
	if err = domain.ValidateToken(token.Id); err != nil {
		return
	}
	now := time.Now().Unix()
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err = t.coll.FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: token.Id}},
		bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "clientId", Value: token.ClientId},
				{Key: "platform", Value: token.Platform},
				{Key: "status", Value: domain.TokenStatusActive},
				{Key: "deviceInfo", Value: token.DeviceInfo},
				{Key: "updated", Value: now},
				{Key: "lastUsed", Value: now},
			}},
			{Key: "$setOnInsert", Value: bson.D{{Key: "created", Value: now}}},
		},
		opts,
	).Decode(&registered)
	return
}

func (t *tokenRepo) ActiveTokensByClientId(ctx context.Context, clientId string) (tokens []domain.DeviceToken, err error) {
	cur, err := t.coll.Find(ctx, bson.D{
		{Key: "clientId", Value: clientId},
		{Key: "status", Value: domain.TokenStatusActive},
	}, options.Find().SetSort(bson.D{{Key: "created", Value: 1}}))
	if err != nil {
		return
	}
	defer func() {
		_ = cur.Close(ctx)
	}()
	err = cur.All(ctx, &tokens)
	return
}

func (t *tokenRepo) MarkDelivered(ctx context.Context, tokenId string) (err error) {
	now := time.Now().Unix()
	_, err = t.coll.UpdateOne(
		ctx,
		bson.D{{Key: "_id", Value: tokenId}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "lastUsed", Value: now},
			{Key: "updated", Value: now},
		}}})
	return
}

func (t *tokenRepo) Deactivate(ctx context.Context, tokenId string) (err error) {
	_, err = t.coll.UpdateOne(
		ctx,
		bson.D{{Key: "_id", Value: tokenId}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: domain.TokenStatusInactive},
			{Key: "updated", Value: time.Now().Unix()},
		}}})
	return
}

func (t *tokenRepo) Close(ctx context.Context) (err error) {
	return nil
}
