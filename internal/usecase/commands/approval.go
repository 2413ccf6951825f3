package commands

import (
	"context"

	"academy-booking/internal/domain/batch"
	"academy-booking/internal/domain/booking"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"
)

// Decide approves or rejects a booking waiting in slot_booked. Decisions are final.
func (c *bookingCommandsImpl) Decide(ctx context.Context, in DecideInput) (*booking.Booking, error) {
	var reason booking.RejectReason
	if !in.Approve {
		r, err := booking.NewRejectReason(in.Reason)
		if err != nil {
			return nil, errs.Mark(batch.NewValidationError(batch.NewBatchViolation(batch.RuleReason, err.Error())), ErrValidation)
		}
		reason = r
	}

	topic := TopicBookingApproved
	if !in.Approve {
		topic = TopicBookingRejected
	}

	bk, err := c.apply(ctx, in.BookingID, topic, func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error) {
		ok, err := c.canManageCenter(ctx, in.Actor, b.CenterID())
		if err != nil {
			return booking.Outcome{}, err
		}
		if !ok {
			return booking.Outcome{}, ErrForbidden
		}
		if b.Status() != booking.StatusSlotBooked {
			return booking.Outcome{}, errs.Mark(
				errs.Newf("booking is %s, decisions require slot_booked", b.Status()),
				ErrNotEligible)
		}

		now := c.clock.Now()
		if in.Approve {
			return b.Approve(now)
		}
		return b.Reject(reason, now)
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "booking decided",
		"booking_id", bk.ID(),
		"approved", in.Approve,
		"actor_id", in.Actor.UserID)
	return bk, nil
}
