package commands

import (
	"context"
	"time"

	"academy-booking/internal/domain/batch"
	"academy-booking/internal/domain/booking"
	"academy-booking/internal/infra"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

func (c *bookingCommandsImpl) Reserve(ctx context.Context, in ReserveInput) (*booking.Booking, error) {
	notes, err := c.validateRequest(in)
	if err != nil {
		return nil, err
	}

	b, err := c.catalog.GetBatch(ctx, in.BatchID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrBatchNotFound)
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	now := c.clock.Now()
	if err := c.checkEligibility(ctx, b, in, now); err != nil {
		return nil, err
	}

	amount, err := booking.NewMoney(b.FeeAmount, b.Currency)
	if err != nil {
		return nil, errs.Wrap(err, "batch fee")
	}
	amount = amount.Multiply(len(in.ParticipantIDs))

	reserveCtx := ctx
	if c.cfg.ReserveTimeout > 0 {
		var cancel context.CancelFunc
		reserveCtx, cancel = context.WithTimeout(ctx, c.cfg.ReserveTimeout)
		defer cancel()
	}

	var created *booking.Booking
	err = c.uow.Within(reserveCtx, func(ctx context.Context, tx shared.Tx) error {
		enrolled, err := tx.Bookings().ActiveParticipants(ctx, b.ID, in.ParticipantIDs)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if len(enrolled) > 0 {
			return alreadyEnrolledError(enrolled)
		}

		token, err := tx.Capacity().TryReserve(ctx, b.ID, b.Capacity, len(in.ParticipantIDs))
		if err != nil {
			if errs.Is(err, shared.ErrCapacityExceeded) {
				return err
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		bk, err := booking.NewBooking(booking.NewBookingParams{
			UserID:           in.Actor.UserID,
			ParticipantIDs:   in.ParticipantIDs,
			BatchID:          b.ID,
			CenterID:         b.CenterID,
			SportID:          b.SportID,
			RequiresApproval: b.RequiresApproval,
			Amount:           amount,
			Notes:            notes,
			CapacityToken:    token,
		}, now)
		if err != nil {
			return errs.Mark(err, ErrValidation)
		}

		if err := tx.Bookings().Create(ctx, bk); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				// A concurrent reservation enrolled the same participant first.
				return alreadyEnrolledError(in.ParticipantIDs)
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := enqueueBookingEvent(ctx, tx, TopicBookingReserved, bk, now); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		created = bk
		return nil
	})
	if err != nil {
		if reserveCtx.Err() != nil && ctx.Err() == nil {
			return nil, errs.Mark(err, ErrCapacityBusy)
		}
		return nil, err
	}

	c.logger.InfoContext(ctx, "booking reserved",
		"booking_id", created.ID(),
		"batch_id", created.BatchID(),
		"seats", created.SeatCount(),
		"status", created.Status())
	return created, nil
}

func (c *bookingCommandsImpl) validateRequest(in ReserveInput) (booking.Notes, error) {
	var err error
	notes, notesErr := booking.NewNotes(in.Notes)
	if notesErr != nil {
		err = multierr.Append(err, batch.NewBatchViolation(batch.RuleNotes, notesErr.Error()))
	}
	if len(in.ParticipantIDs) == 0 {
		err = multierr.Append(err, batch.NewBatchViolation(batch.RuleParticipants, "at least one participant is required"))
	}
	seen := make(map[uuid.UUID]struct{}, len(in.ParticipantIDs))
	for _, id := range in.ParticipantIDs {
		if _, dup := seen[id]; dup {
			err = multierr.Append(err, batch.NewParticipantViolation(id, batch.RuleParticipants, "participant listed more than once"))
			continue
		}
		seen[id] = struct{}{}
	}
	if err != nil {
		return booking.Notes{}, errs.Mark(batch.NewValidationError(err), ErrValidation)
	}
	return notes, nil
}

func (c *bookingCommandsImpl) checkEligibility(ctx context.Context, b *batch.Batch, in ReserveInput, now time.Time) error {
	participants, err := c.catalog.GetParticipants(ctx, in.ParticipantIDs)
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	byID := make(map[uuid.UUID]batch.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	var (
		eligible []batch.Participant
		lookup   error
	)
	for _, id := range in.ParticipantIDs {
		p, ok := byID[id]
		if !ok {
			lookup = multierr.Append(lookup, batch.NewParticipantViolation(id, batch.RuleUnknownParticipant, "participant does not exist"))
			continue
		}
		if p.UserID != in.Actor.UserID && !in.Actor.IsPrivileged() {
			lookup = multierr.Append(lookup, batch.NewParticipantViolation(id, batch.RuleNotOwner, "participant does not belong to the requesting user"))
			continue
		}
		eligible = append(eligible, p)
	}

	ve := b.CheckEligibility(eligible, now)
	if extra := batch.NewValidationError(lookup); extra != nil {
		if ve == nil {
			ve = extra
		} else {
			ve.Violations = append(ve.Violations, extra.Violations...)
		}
	}
	if ve != nil {
		return errs.Mark(ve, ErrValidation)
	}
	return nil
}

func alreadyEnrolledError(ids []uuid.UUID) error {
	var err error
	for _, id := range ids {
		err = multierr.Append(err, batch.NewParticipantViolation(id, batch.RuleAlreadyEnrolled, "participant already holds an active booking in this batch"))
	}
	return errs.Mark(batch.NewValidationError(err), ErrValidation)
}
