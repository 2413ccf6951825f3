package shared

import (
	"context"
	"time"

	"academy-booking/internal/domain/booking"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes repositories bound to a single transaction.
type Tx interface {
	Bookings() BookingRepository
	Capacity() CapacityLedger
	PaymentEvents() PaymentEventRepository
	Notifications() NotificationRepository
}

type BookingRepository interface {
	Create(ctx context.Context, b *booking.Booking) error
	Update(ctx context.Context, b *booking.Booking) error
	// Row-locking reads; the lock is held until the transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	FindIDByOrderID(ctx context.Context, orderID string) (uuid.UUID, error)
	// Returns the subset of participantIDs that already hold an active booking for the batch.
	ActiveParticipants(ctx context.Context, batchID uuid.UUID, participantIDs []uuid.UUID) ([]uuid.UUID, error)
	ListStale(ctx context.Context, statuses []booking.Status, updatedBefore time.Time, limit int) ([]uuid.UUID, error)
}

// PaymentEventRepository dedupes gateway deliveries, which arrive at least once.
type PaymentEventRepository interface {
	// MarkProcessed returns false when the event key was already recorded.
	MarkProcessed(ctx context.Context, eventKey, orderID, paymentID string, processedAt time.Time) (bool, error)
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]NotificationJob, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, nextRunAt time.Time, lastError string, dead bool) error
}
