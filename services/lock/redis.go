package locksvc

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
)

type redisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	logger core.Logger
}

var _ core.Locker = (*redisLocker)(nil)

// NewRedisClient connects to redis and checks the connection.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

// NewRedisLocker returns a core.Locker shared by every process using the same redis.
func NewRedisLocker(rdb redis.UniversalClient, conf *core.Config, logger core.Logger) core.Locker {
	ttl := conf.Redis.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		logger: logger,
	}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, core.LockWait)
	defer cancel()

	lock, err := l.client.Obtain(waitCtx, "lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(100 * time.Millisecond),
	})
	if err == redislock.ErrNotObtained || errors.Is(err, context.DeadlineExceeded) {
		return nil, core.ErrLockNotObtained
	} else if err != nil {
		return nil, errors.Wrap(err, "obtaining redis lock")
	}

	return func() {
		// ctx may be done by now
		if err := lock.Release(context.Background()); err != nil && err != redislock.ErrLockNotHeld {
			l.logger.Warn(fmt.Sprintf("releasing redis lock %q: %v", key, err), err)
		}
	}, nil
}
