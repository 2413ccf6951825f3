package commands

import (
	"context"
	"log/slog"
	"time"

	"academy-booking/internal/pkg/clock"
	"academy-booking/internal/pkg/config"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/cenkalti/backoff/v4"
)

type RelayResult struct {
	Claimed int
	Sent    int
	Failed  int
	Dead    int
}

// NotificationRelay publishes outbox jobs. Delivery failures are retried
// later and never affect the booking that produced the job.
type NotificationRelay interface {
	Flush(ctx context.Context) (RelayResult, error)
}

type notificationRelayImpl struct {
	uow       shared.UnitOfWork
	publisher shared.EventPublisher
	cfg       config.OutboxConfig
	clock     clock.Clock
	logger    *slog.Logger
}

func NewNotificationRelay(
	uow shared.UnitOfWork,
	publisher shared.EventPublisher,
	cfg config.Config,
	clock clock.Clock,
	logger *slog.Logger,
) NotificationRelay {
	return &notificationRelayImpl{
		uow:       uow,
		publisher: publisher,
		cfg:       cfg.Outbox,
		clock:     clock,
		logger:    logger,
	}
}

func (r *notificationRelayImpl) Flush(ctx context.Context) (RelayResult, error) {
	var result RelayResult
	err := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		result = RelayResult{}
		now := r.clock.Now()
		jobs, err := tx.Notifications().ClaimDue(ctx, now, r.cfg.BatchSize)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		result.Claimed = len(jobs)

		for _, job := range jobs {
			pubErr := r.publisher.Publish(ctx, job.Topic, job.Payload)
			if pubErr == nil {
				if err := tx.Notifications().MarkSent(ctx, job.ID, now); err != nil {
					return errs.Mark(err, ErrDatabaseOperationFailed)
				}
				result.Sent++
				continue
			}

			attempts := job.Attempts + 1
			dead := r.cfg.MaxAttempts > 0 && attempts >= r.cfg.MaxAttempts
			next := now.Add(RetryDelay(attempts))
			if err := tx.Notifications().MarkFailed(ctx, job.ID, next, pubErr.Error(), dead); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			result.Failed++
			if dead {
				result.Dead++
				r.logger.ErrorContext(ctx, "notification job exhausted retries",
					"job_id", job.ID,
					"topic", job.Topic,
					"attempts", attempts,
					"error", pubErr.Error())
			} else {
				r.logger.WarnContext(ctx, "notification publish failed",
					"job_id", job.ID,
					"topic", job.Topic,
					"attempts", attempts,
					"next_run_at", next)
			}
		}
		return nil
	})
	if err != nil {
		return RelayResult{}, err
	}

	if result.Claimed > 0 {
		r.logger.InfoContext(ctx, "notification relay flushed",
			"claimed", result.Claimed,
			"sent", result.Sent,
			"failed", result.Failed,
			"dead", result.Dead)
	}
	return result, nil
}

// RetryDelay is the exponential delay before the given attempt is retried.
func RetryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(5*time.Second),
		backoff.WithMultiplier(2),
		backoff.WithMaxInterval(30*time.Minute),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	b.Reset()
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
