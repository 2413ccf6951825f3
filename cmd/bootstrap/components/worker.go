package components

import (
	"context"
	"log/slog"

	"academy-booking/internal/pkg/config"
	"academy-booking/internal/usecase/commands"
	"academy-booking/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewWorkerRunner,
	),
	fx.Invoke(registerWorker),
)

func NewWorkerRunner(sweeper commands.Sweeper, relay commands.NotificationRelay, cfg config.Config, logger *slog.Logger) *worker.Runner {
	return worker.NewRunner(sweeper, relay, worker.Config{
		SweepInterval: cfg.Booking.SweepInterval,
		RelayInterval: cfg.Outbox.PollInterval,
		RelayEnabled:  cfg.RabbitMQ.URL != "",
	}, logger)
}

func registerWorker(lc fx.Lifecycle, r *worker.Runner) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			r.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return r.Stop(ctx)
		},
	})
}
