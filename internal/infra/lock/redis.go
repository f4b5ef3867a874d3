package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"anchorcore/pkg/domain"
)

var (
	// ErrNilFunc is returned when WithLock is called without a function.
	ErrNilFunc = errors.New("lock function is nil")
	// ErrEmptyKey is returned for blank lock keys.
	ErrEmptyKey = errors.New("lock key is empty")
)

// RedisOptions tunes the RedLock mutex.
type RedisOptions struct {
	// Prefix is prepended to every key.
	Prefix     string
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
}

// DefaultRedisOptions suits actions that complete well within a few seconds.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:     "anchorcore:txn:",
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 50 * time.Millisecond,
	}
}

// Redis is a RedLock-backed Locker for deployments running several instances
// against shared stores.
type Redis struct {
	rs     *redsync.Redsync
	opts   RedisOptions
	logger *zap.Logger
}

var _ domain.Locker = (*Redis)(nil)

// NewRedis builds a Redis locker on client.
func NewRedis(client goredislib.UniversalClient, opts RedisOptions, logger *zap.Logger) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	if opts.Expiry <= 0 {
		return nil, errors.New("lock expiry must be greater than 0")
	}
	if opts.Tries < 1 {
		return nil, errors.New("lock tries must be at least 1")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}, nil
}

// WithLock acquires key, runs fn and releases the key. Errors from fn are
// returned as is.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	name := r.opts.Prefix + key
	mutex := r.rs.NewMutex(name,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("acquire lock %s: %w", name, err)
	}
	defer func() {
		// Released even when ctx has been cancelled.
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			r.logger.Warn("release lock", zap.String("lock_key", name), zap.Bool("unlock_ok", ok), zap.Error(err))
		}
	}()
	return fn(ctx)
}
