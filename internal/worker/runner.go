package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"academy-booking/internal/usecase/commands"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	SweepInterval time.Duration
	RelayInterval time.Duration
	// RelayEnabled is false when no broker is configured; jobs then stay queued.
	RelayEnabled bool
}

// Runner drives the periodic background jobs: the payment-timeout sweeper and
// the notification relay.
type Runner struct {
	sweeper commands.Sweeper
	relay   commands.NotificationRelay
	cfg     Config
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

func NewRunner(sweeper commands.Sweeper, relay commands.NotificationRelay, cfg Config, logger *slog.Logger) *Runner {
	return &Runner{
		sweeper: sweeper,
		relay:   relay,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.every(ctx, "sweeper", r.cfg.SweepInterval, r.sweepOnce)
	})

	if r.cfg.RelayEnabled {
		g.Go(func() error {
			return r.every(ctx, "notification relay", r.cfg.RelayInterval, r.relayOnce)
		})
	} else {
		r.logger.Info("notification relay disabled, no broker configured")
	}

	return g.Wait()
}

func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan error, 1)
	go func() {
		r.done <- r.Run(ctx)
	}()
}

func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) every(ctx context.Context, name string, interval time.Duration, job func(context.Context)) error {
	r.logger.Info("worker started", "worker", name, "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	job(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("worker stopped", "worker", name)
			return nil
		case <-ticker.C:
			job(ctx)
		}
	}
}

// The sweeper logs its own summary.
func (r *Runner) sweepOnce(ctx context.Context) {
	if _, err := r.sweeper.ExpireStale(ctx); err != nil && ctx.Err() == nil {
		r.logger.Error("payment timeout sweep failed", "error", err.Error())
	}
}

func (r *Runner) relayOnce(ctx context.Context) {
	res, err := r.relay.Flush(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("notification relay failed", "error", err.Error())
		}
		return
	}
	if res.Claimed > 0 {
		r.logger.Info("notification relay flushed",
			"claimed", res.Claimed,
			"sent", res.Sent,
			"failed", res.Failed,
			"dead", res.Dead)
	}
}
