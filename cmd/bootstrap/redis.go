package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"academy-booking/internal/infra/lock"
	"academy-booking/internal/pkg/config"
	"academy-booking/internal/usecase/shared"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const (
	dbConnectTimeout    = 10 * time.Second
	redisConnectTimeout = 5 * time.Second
)

var LockModule = fx.Module("lock",
	fx.Provide(
		NewBookingLocker,
	),
)

// NewBookingLocker uses Redis when REDIS_ADDR is set so locks hold across
// replicas. Without it a single instance serializes with in-process locks.
func NewBookingLocker(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (shared.BookingLocker, error) {
	if cfg.Redis.Addr == "" {
		logger.Warn("REDIS_ADDR not set, booking locks are process-local")
		return lock.NewLocalLocker(cfg.Redis.LockWait), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	logger.Info("connected to redis", "addr", cfg.Redis.Addr)
	return lock.NewRedisLocker(client, cfg.Redis.LockTTL, cfg.Redis.LockWait, logger), nil
}
