package commands

import (
	"context"
	"log/slog"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/pkg/clock"
	"academy-booking/internal/pkg/config"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type SweepResult struct {
	Scanned    int
	Expired    int
	Reconciled int
}

// Sweeper cancels bookings whose payment window lapsed, returning their seats.
type Sweeper interface {
	ExpireStale(ctx context.Context) (SweepResult, error)
}

type sweeperImpl struct {
	bookingMutator
	catalog shared.Catalog
	cfg     config.BookingConfig
	logger  *slog.Logger
}

func NewSweeper(
	uow shared.UnitOfWork,
	locker shared.BookingLocker,
	catalog shared.Catalog,
	cfg config.Config,
	clock clock.Clock,
	logger *slog.Logger,
) Sweeper {
	return &sweeperImpl{
		bookingMutator: bookingMutator{
			uow:    uow,
			locker: locker,
			clock:  clock,
		},
		catalog: catalog,
		cfg:     cfg.Booking,
		logger:  logger,
	}
}

var sweepableStatuses = []booking.Status{booking.StatusRequested, booking.StatusPaymentPending}

func (s *sweeperImpl) ExpireStale(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	cutoff := s.clock.Now().Add(-s.cfg.PaymentTimeout)

	var ids []uuid.UUID
	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		found, err := tx.Bookings().ListStale(ctx, sweepableStatuses, cutoff, s.cfg.SweepBatchSize)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		ids = found
		return nil
	})
	if err != nil {
		return result, err
	}
	result.Scanned = len(ids)

	touched := make(map[uuid.UUID]struct{})
	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		expired := false
		bk, err := s.apply(ctx, id, TopicBookingCancelled, func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error) {
			// Re-check under the lock: a verification may have won the race.
			if !isSweepable(b.Status()) || !b.UpdatedAt().Before(cutoff) {
				return booking.Outcome{}, nil
			}
			out, err := b.Cancel(booking.CancelPaymentTimeout, s.clock.Now())
			if err != nil {
				return booking.Outcome{}, err
			}
			expired = true
			return out, nil
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to expire booking",
				"booking_id", id,
				"error", err.Error())
			continue
		}
		if expired {
			result.Expired++
			touched[bk.BatchID()] = struct{}{}
		}
	}

	for batchID := range touched {
		if _, err := reconcileBatch(ctx, s.uow, s.catalog, s.logger, batchID); err != nil {
			s.logger.WarnContext(ctx, "failed to reconcile batch",
				"batch_id", batchID,
				"error", err.Error())
			continue
		}
		result.Reconciled++
	}

	if result.Scanned > 0 {
		s.logger.InfoContext(ctx, "payment timeout sweep finished",
			"scanned", result.Scanned,
			"expired", result.Expired,
			"reconciled", result.Reconciled)
	}
	return result, nil
}

func isSweepable(status booking.Status) bool {
	for _, s := range sweepableStatuses {
		if s == status {
			return true
		}
	}
	return false
}
