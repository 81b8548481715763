// Package lock provides per-key mutual exclusion across API instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL     = 2 * time.Minute
	defaultMaxWait = 90 * time.Second
	keyPrefix      = "hitchpath:lock:"
)

// ErrNotAcquired is returned when the lock stays held past the wait limit.
var ErrNotAcquired = errors.New("lock not acquired")

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out leases keyed by name. Acquire blocks until the lease is
// granted, ctx ends, or the locker's wait limit passes.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// redisStore is the subset of Redis used by RedisLocker.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLocker implements Locker with SETNX and a TTL. The owner value is a
// random token so a lease never deletes a lock it no longer holds.
type RedisLocker struct {
	store   redisStore
	ttl     time.Duration
	maxWait time.Duration
	poll    time.Duration
}

// Option configures a RedisLocker.
type Option func(*RedisLocker)

// WithTTL sets how long a lease lives if never released.
func WithTTL(ttl time.Duration) Option {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithMaxWait bounds how long Acquire waits for a held lock.
func WithMaxWait(d time.Duration) Option {
	return func(l *RedisLocker) {
		if d > 0 {
			l.maxWait = d
		}
	}
}

// NewRedisLocker creates a locker over a go-redis client.
func NewRedisLocker(client *redis.Client, opts ...Option) *RedisLocker {
	return newRedisLocker(goRedis{client}, opts...)
}

func newRedisLocker(store redisStore, opts ...Option) *RedisLocker {
	l := &RedisLocker{
		store:   store,
		ttl:     defaultTTL,
		maxWait: defaultMaxWait,
		poll:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes the lock for key, polling with backoff while it is held.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Lease, error) {
	fullKey := keyPrefix + key
	owner := uuid.NewString()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.poll
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = l.maxWait

	err := backoff.Retry(func() error {
		ok, err := l.store.SetNX(ctx, fullKey, owner, l.ttl)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("setnx: %w", err))
		}
		if !ok {
			return ErrNotAcquired
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return &redisLease{store: l.store, key: fullKey, owner: owner}, nil
}

type redisLease struct {
	store redisStore
	key   string
	owner string
}

// Release deletes the key only while this lease still owns it.
func (l *redisLease) Release(ctx context.Context) error {
	value, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != l.owner {
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}

type goRedis struct {
	c *redis.Client
}

func (g goRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return g.c.SetNX(ctx, key, value, ttl).Result()
}

func (g goRedis) Get(ctx context.Context, key string) (string, error) {
	return g.c.Get(ctx, key).Result()
}

func (g goRedis) Del(ctx context.Context, keys ...string) error {
	return g.c.Del(ctx, keys...).Err()
}

// Connect opens a Redis client from a redis:// URL and pings it.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Noop is a Locker for single-instance deployments.
type Noop struct{}

// Acquire always succeeds immediately.
func (Noop) Acquire(context.Context, string) (Lease, error) {
	return noopLease{}, nil
}

type noopLease struct{}

func (noopLease) Release(context.Context) error { return nil }
