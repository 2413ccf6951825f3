package commands

import (
	"context"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/domain/user"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// Cancel releases the booking's seats. Owners and staff of the booking's
// center may cancel any non-terminal booking.
func (c *bookingCommandsImpl) Cancel(ctx context.Context, bookingID uuid.UUID, actor user.Actor) (*booking.Booking, error) {
	bk, err := c.apply(ctx, bookingID, TopicBookingCancelled, func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error) {
		reason := booking.CancelByUser
		if !b.IsOwnedBy(actor.UserID) {
			ok, err := c.canManageCenter(ctx, actor, b.CenterID())
			if err != nil {
				return booking.Outcome{}, err
			}
			if !ok {
				return booking.Outcome{}, ErrForbidden
			}
			reason = booking.CancelByAcademy
		}
		if b.Status().IsTerminal() {
			return booking.Outcome{}, errs.Mark(
				errs.Newf("booking is already %s", b.Status()),
				ErrNotCancellable)
		}
		out, err := b.Cancel(reason, c.clock.Now())
		return out, markTransition(err, ErrNotCancellable)
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "booking cancelled",
		"booking_id", bk.ID(),
		"actor_id", actor.UserID,
		"refund_requested", bk.RefundRequested())
	return bk, nil
}

func (c *bookingCommandsImpl) Complete(ctx context.Context, bookingID uuid.UUID, actor user.Actor) (*booking.Booking, error) {
	return c.apply(ctx, bookingID, TopicBookingCompleted, func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error) {
		ok, err := c.canManageCenter(ctx, actor, b.CenterID())
		if err != nil {
			return booking.Outcome{}, err
		}
		if !ok {
			return booking.Outcome{}, ErrForbidden
		}
		out, err := b.Complete(c.clock.Now())
		return out, markTransition(err, ErrInvalidTransition)
	})
}

// SoftDelete hides an inactive booking from every read path.
func (c *bookingCommandsImpl) SoftDelete(ctx context.Context, bookingID uuid.UUID, actor user.Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	unlock, err := c.lock(ctx, bookingID)
	if err != nil {
		return err
	}
	defer unlock()

	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := loadForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.IsDeleted() {
			return nil
		}
		if err := b.MarkDeleted(c.clock.Now()); err != nil {
			return errs.Mark(err, ErrBookingStillActive)
		}
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
}
