package lock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "booking:lock:"

// Only the holder's token may delete the key; an expired lock re-acquired by
// someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker serializes transitions of one booking across service instances.
// A held lock is extended every ttl/3 until it is released, so the TTL only
// matters when the holder process dies.
type RedisLocker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	wait       time.Duration
	retryStep  time.Duration
	renewEvery time.Duration
	logger     *slog.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		wait:       wait,
		retryStep:  25 * time.Millisecond,
		renewEvery: max(ttl/3, time.Millisecond),
		logger:     logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	key := keyPrefix + bookingID.String()
	token := uuid.NewString()

	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, errs.Wrap(err, "acquire booking lock")
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, errs.Mark(errs.Newf("booking %s is locked", bookingID), shared.ErrLockNotAcquired)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryStep):
		}
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.keepAlive(context.WithoutCancel(ctx), key, token, bookingID, stop, stopped)

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			close(stop)
			<-stopped

			// Release even when the caller's context is already cancelled.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release booking lock",
					"booking_id", bookingID,
					"error", err.Error())
			}
		})
	}
	return unlock, nil
}

func (l *RedisLocker) keepAlive(ctx context.Context, key, token string, bookingID uuid.UUID, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(l.renewEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		extendCtx, cancel := context.WithTimeout(ctx, l.renewEvery)
		n, err := extendScript.Run(extendCtx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			l.logger.Warn("failed to extend booking lock",
				"booking_id", bookingID,
				"error", err.Error())
			continue
		}
		if n == 0 {
			l.logger.Warn("booking lock expired while held",
				"booking_id", bookingID)
			return
		}
	}
}

var _ shared.BookingLocker = (*RedisLocker)(nil)
