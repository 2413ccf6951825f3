package commands

import (
	"context"
	"encoding/json"
	"time"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/domain/user"
	"academy-booking/internal/infra"
	"academy-booking/internal/pkg/clock"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const notificationKind = "booking_event"

const (
	TopicBookingReserved         = "booking.reserved"
	TopicBookingApproved         = "booking.approved"
	TopicBookingRejected         = "booking.rejected"
	TopicBookingPaymentInitiated = "booking.payment_initiated"
	TopicBookingPaymentFailed    = "booking.payment_failed"
	TopicBookingConfirmed        = "booking.confirmed"
	TopicBookingCompleted        = "booking.completed"
	TopicBookingCancelled        = "booking.cancelled"
	TopicBookingRefunded         = "booking.refunded"
)

// mutateFunc applies one transition to a locked booking. Returning a zero
// Outcome with a nil error means "nothing to do" and skips persistence.
type mutateFunc func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error)

// bookingMutator runs every post-reservation transition the same way:
// transition lock, row lock, state machine, capacity release, outbox.
type bookingMutator struct {
	uow        shared.UnitOfWork
	locker     shared.BookingLocker
	authorizer shared.CenterAuthorizer
	clock      clock.Clock
}

func (m *bookingMutator) lock(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	unlock, err := m.locker.Lock(ctx, bookingID)
	if err != nil {
		return nil, errs.Mark(err, ErrBookingBusy)
	}
	return unlock, nil
}

func (m *bookingMutator) apply(ctx context.Context, bookingID uuid.UUID, topic string, fn mutateFunc) (*booking.Booking, error) {
	unlock, err := m.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return m.applyLocked(ctx, bookingID, topic, fn)
}

// applyLocked expects the caller to already hold the booking's transition lock.
func (m *bookingMutator) applyLocked(ctx context.Context, bookingID uuid.UUID, topic string, fn mutateFunc) (*booking.Booking, error) {
	var result *booking.Booking
	err := m.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := loadForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		outcome, err := fn(ctx, tx, b)
		if err != nil {
			return err
		}
		result = b
		if outcome.Event == "" {
			return nil
		}

		if outcome.ReleaseCapacity {
			if _, err := tx.Capacity().Release(ctx, b.CapacityToken()); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if topic != "" {
			if err := enqueueBookingEvent(ctx, tx, topic, b, m.clock.Now()); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *bookingMutator) canManageCenter(ctx context.Context, actor user.Actor, centerID uuid.UUID) (bool, error) {
	if actor.IsPrivileged() {
		return true, nil
	}
	if actor.Role != user.RoleAcademy {
		return false, nil
	}
	ok, err := m.authorizer.IsAuthorizedForCenter(ctx, actor, centerID)
	if err != nil {
		return false, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return ok, nil
}

func loadForUpdate(ctx context.Context, tx shared.Tx, bookingID uuid.UUID) (*booking.Booking, error) {
	b, err := tx.Bookings().FindByIDForUpdate(ctx, bookingID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrBookingNotFound)
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return b, nil
}

func markTransition(err error, sentinel error) error {
	if errs.Is(err, booking.ErrInvalidTransition) {
		return errs.Mark(err, sentinel)
	}
	return err
}

type bookingEvent struct {
	Type          string    `json:"type"`
	BookingID     uuid.UUID `json:"bookingId"`
	UserID        uuid.UUID `json:"userId"`
	BatchID       uuid.UUID `json:"batchId"`
	CenterID      uuid.UUID `json:"centerId"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	Seats         int       `json:"seats"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Notification delivery is fire-and-forget from the booking's point of view:
// the job rides the same transaction and a relay publishes it later.
func enqueueBookingEvent(ctx context.Context, tx shared.Tx, topic string, b *booking.Booking, now time.Time) error {
	payload, err := json.Marshal(bookingEvent{
		Type:          topic,
		BookingID:     b.ID(),
		UserID:        b.UserID(),
		BatchID:       b.BatchID(),
		CenterID:      b.CenterID(),
		Status:        b.Status().String(),
		PaymentStatus: b.PaymentStatus().String(),
		Seats:         b.SeatCount(),
		Amount:        b.Amount().Amount(),
		Currency:      b.Amount().Currency(),
		OccurredAt:    now,
	})
	if err != nil {
		return err
	}
	return tx.Notifications().CreateJob(ctx, notificationKind, topic, payload, now)
}
