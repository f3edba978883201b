// internal/cache/nonce_lock.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockTTL       = 2 * time.Minute
	defaultRetryInterval = 50 * time.Millisecond
	releaseTimeout       = 5 * time.Second
)

// releaseScript deletes the lock only if it still holds our token,
// so an expired holder cannot release a lock someone else acquired since.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var errLockHeld = errors.New("nonce lock held by another submitter")

// NonceLocker serializes submissions from one address across service replicas
type NonceLocker struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewNonceLocker connects to Redis and verifies the connection
func NewNonceLocker(addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*NonceLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		PoolSize:        10,
		MinIdleConns:    1,
		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("redis connected for nonce locking",
		zap.String("addr", addr),
		zap.Duration("lock_ttl", ttl))

	return NewNonceLockerWithClient(client, ttl, logger), nil
}

// NewNonceLockerWithClient wraps an existing client
func NewNonceLockerWithClient(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *NonceLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &NonceLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		logger:        logger,
	}
}

// LockKey formats the Redis key guarding nonces of address
func LockKey(address common.Address) string {
	return fmt.Sprintf("nonce-lock:v1:%s", strings.ToLower(address.Hex()))
}

// Lock acquires the lock for address, polling until it is free or ctx is done.
// The lock expires after the TTL even if the holder dies without releasing it.
func (l *NonceLocker) Lock(ctx context.Context, address common.Address) (func(), error) {
	key := LockKey(address)
	token := uuid.NewString()

	acquire := func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return backoff.Permanent(fmt.Errorf("redis setnx: %w", err))
		}
		if !ok {
			return errLockHeld
		}
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(l.retryInterval), ctx)
	if err := backoff.Retry(acquire, b); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("waiting for nonce lock %s: %w", key, ctxErr)
		}
		return nil, err
	}

	l.logger.Debug("nonce lock acquired", zap.String("key", key))

	released := false
	return func() {
		if released {
			return
		}
		released = true
		l.release(key, token)
	}, nil
}

func (l *NonceLocker) release(key, token string) {
	// The caller's ctx may already be cancelled; releasing must still happen.
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		l.logger.Warn("failed to release nonce lock, it will expire",
			zap.String("key", key),
			zap.Duration("ttl", l.ttl),
			zap.Error(err))
		return
	}
	if n == 0 {
		l.logger.Warn("nonce lock expired before release", zap.String("key", key))
	}
}

// Ping reports whether Redis is reachable
func (l *NonceLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *NonceLocker) Close() error {
	return l.client.Close()
}
