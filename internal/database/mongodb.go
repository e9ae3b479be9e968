package database

import (
	"context"
	"fmt"
	"time"

	"github.com/heygw44/snapstock/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry calls ConnectMongo up to attempts times, doubling the
// wait after each failure. It gives up early when ctx is done.
func ConnectMongoWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int, backoff time.Duration) (*mongo.Client, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := ConnectMongo(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnw("mongo connect failed", "attempt", attempt, "of", attempts, "err", err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("mongo unavailable after %d attempts: %w", attempts, lastErr)
}
