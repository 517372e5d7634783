package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lease cannot be taken before the wait
// deadline.
var ErrLockTimeout = errors.New("lock: timed out waiting for lease")

// releaseScript deletes the key only while it still holds our token, so an
// expired lease re-taken by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig tunes lease acquisition.
type RedisConfig struct {
	Prefix       string
	TTL          time.Duration
	Wait         time.Duration
	PollInterval time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.Prefix == "" {
		c.Prefix = "fund:lock:"
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.Wait <= 0 {
		c.Wait = 10 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 25 * time.Millisecond
	}
	return c
}

// RedisLocker takes leases with SET NX PX. A lease outlives a crashed holder
// by at most TTL.
type RedisLocker struct {
	client redis.UniversalClient
	cfg    RedisConfig
	logger *slog.Logger
}

// NewRedisLocker wraps an existing client.
func NewRedisLocker(client redis.UniversalClient, cfg RedisConfig, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{client: client, cfg: cfg.withDefaults(), logger: logger}
}

// Lock polls until the lease is taken, ctx is done or the wait elapses.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	full := l.cfg.Prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.Wait)

	for {
		ok, err := l.client.SetNX(ctx, full, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.PollInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be canceled; release regardless.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{full}, token).Err(); err != nil {
				l.logger.Error("lock release failed", "key", key, "error", err)
			}
		})
	}, nil
}

// Ping reports whether Redis is reachable.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
