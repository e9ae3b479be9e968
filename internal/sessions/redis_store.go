package sessions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on plain string keys with TTLs:
//
//	<prefix>refresh:<userID>              -> refresh token
//	<prefix>blacklist:<sha256(access)>    -> "true"
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. Prefix may be empty.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) refreshKey(userID int64) string {
	return r.prefix + refreshPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) blacklistKey(token string) string {
	return r.prefix + blacklistPrefix + Fingerprint(token)
}

func (r *RedisStore) SaveRefresh(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.refreshKey(userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("redis save refresh: %w", err)
	}
	return nil
}

func (r *RedisStore) GetRefresh(ctx context.Context, userID int64) (string, bool, error) {
	v, err := r.client.Get(ctx, r.refreshKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get refresh: %w", err)
	}
	return v, true, nil
}

func (r *RedisStore) DeleteRefresh(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete refresh: %w", err)
	}
	return nil
}

func (r *RedisStore) Blacklist(ctx context.Context, accessToken string, remaining time.Duration) error {
	if err := r.client.Set(ctx, r.blacklistKey(accessToken), tombstone, blacklistTTL(remaining)).Err(); err != nil {
		return fmt.Errorf("redis blacklist: %w", err)
	}
	return nil
}

func (r *RedisStore) IsBlacklisted(ctx context.Context, accessToken string) (bool, error) {
	n, err := r.client.Exists(ctx, r.blacklistKey(accessToken)).Result()
	if err != nil {
		return false, fmt.Errorf("redis blacklist lookup: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
