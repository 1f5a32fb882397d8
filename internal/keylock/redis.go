package keylock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "agentmemory:lock:"

// Only the holder that set the token may delete or extend the key.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)
)

// Redis is a Locker shared by every process using the same Redis instance.
// A held lock is renewed every ttl/3 until released, so a slow holder keeps
// it; a crashed holder stops renewing and the key expires after ttl.
type Redis struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
	logger        *slog.Logger
}

var _ Locker = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, ttl, retryInterval time.Duration, logger *slog.Logger) *Redis {
	return &Redis{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		logger:        mylog.OrDefault(logger),
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to acquire lock %s", key)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	renewCtx, stopRenew := context.WithCancel(context.Background())
	renewDone := make(chan struct{})
	go func() {
		defer close(renewDone)
		r.renew(renewCtx, redisKey, token)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopRenew()
			<-renewDone

			// the caller's ctx may already be cancelled; release must still happen
			ctx, cancel := context.WithTimeout(context.Background(), r.ttl)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err(); err != nil {
				r.logger.Warn("failed to release lock",
					slog.String("key", redisKey),
					mylog.Err(err),
				)
			}
		})
	}, nil
}

func (r *Redis) renew(ctx context.Context, redisKey, token string) {
	ticker := time.NewTicker(max(r.ttl/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := renewScript.Run(ctx, r.client, []string{redisKey}, token, r.ttl.Milliseconds()).Int()
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			// retried on the next tick while the key has not expired yet
			r.logger.Warn("failed to renew lock",
				slog.String("key", redisKey),
				mylog.Err(err),
			)
		case n == 0:
			r.logger.Error("lock expired while held",
				slog.String("key", redisKey),
			)
			return
		}
	}
}
