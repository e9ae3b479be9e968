package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type refreshDoc struct {
	UserID    int64     `bson:"_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}

type blacklistDoc struct {
	Fingerprint string    `bson:"_id"`
	ExpiresAt   time.Time `bson:"expiresAt"`
}

// MongoStore implements Store with two collections and TTL indexes on expiresAt.
// Mongo removes expired documents lazily, so reads also filter on expiresAt.
type MongoStore struct {
	refresh   *mongo.Collection
	blacklist *mongo.Collection
	now       func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		refresh:   db.Collection("refresh_sessions"),
		blacklist: db.Collection("token_blacklist"),
		now:       time.Now,
	}
}

// EnsureIndexes creates the TTL indexes. Safe to call on every startup.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	for _, col := range []*mongo.Collection{m.refresh, m.blacklist} {
		if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
			return fmt.Errorf("mongo ttl index on %s: %w", col.Name(), err)
		}
	}
	return nil
}

func (m *MongoStore) SaveRefresh(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	now := m.now().UTC()
	doc := refreshDoc{UserID: userID, Token: token, ExpiresAt: now.Add(ttl), CreatedAt: now}
	_, err := m.refresh.ReplaceOne(ctx, bson.M{"_id": userID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo save refresh: %w", err)
	}
	return nil
}

func (m *MongoStore) GetRefresh(ctx context.Context, userID int64) (string, bool, error) {
	var doc refreshDoc
	filter := bson.M{"_id": userID, "expiresAt": bson.M{"$gt": m.now().UTC()}}
	if err := m.refresh.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("mongo get refresh: %w", err)
	}
	return doc.Token, true, nil
}

func (m *MongoStore) DeleteRefresh(ctx context.Context, userID int64) error {
	if _, err := m.refresh.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("mongo delete refresh: %w", err)
	}
	return nil
}

func (m *MongoStore) Blacklist(ctx context.Context, accessToken string, remaining time.Duration) error {
	fp := Fingerprint(accessToken)
	doc := blacklistDoc{Fingerprint: fp, ExpiresAt: m.now().UTC().Add(blacklistTTL(remaining))}
	_, err := m.blacklist.ReplaceOne(ctx, bson.M{"_id": fp}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo blacklist: %w", err)
	}
	return nil
}

func (m *MongoStore) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	filter := bson.M{"_id": Fingerprint(accessToken), "expiresAt": bson.M{"$gt": m.now().UTC()}}
	n, err := m.blacklist.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo blacklist lookup: %w", err)
	}
	return n > 0, nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.refresh.Database().Client().Ping(ctx, nil)
}
