package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	refreshPrefix   = "refresh:"
	blacklistPrefix = "blacklist:"
	tombstone       = "true"

	// minTTL replaces a non-positive remaining lifetime on Blacklist.
	minTTL = time.Millisecond
)

// Store holds the current refresh token per user and the access-token blacklist.
// Every entry expires on its own; no cleanup job is needed.
type Store interface {
	// SaveRefresh overwrites any previous refresh token for the user.
	SaveRefresh(ctx context.Context, userID int64, token string, ttl time.Duration) error
	// GetRefresh returns ok=false when no token is stored.
	GetRefresh(ctx context.Context, userID int64) (token string, ok bool, err error)
	// DeleteRefresh is idempotent.
	DeleteRefresh(ctx context.Context, userID int64) error
	Blacklist(ctx context.Context, accessToken string, remaining time.Duration) error
	IsBlacklisted(ctx context.Context, accessToken string) (bool, error)
	Ping(ctx context.Context) error
}

// Fingerprint is the hex SHA-256 of a token, used as the blacklist key.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func blacklistTTL(remaining time.Duration) time.Duration {
	if remaining <= 0 {
		return minTTL
	}
	return remaining
}
