package shared

import (
	"context"
	"time"

	"academy-booking/internal/domain/batch"
	"academy-booking/internal/domain/user"
	"academy-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrGatewayUnavailable = errs.New("payment gateway unavailable")
	ErrGatewayRejected    = errs.New("payment gateway rejected request")
	ErrLockNotAcquired    = errs.New("booking lock not acquired")
)

type Catalog interface {
	GetBatch(ctx context.Context, batchID uuid.UUID) (*batch.Batch, error)
	// GetParticipants returns the participants that exist; missing ids are omitted.
	GetParticipants(ctx context.Context, ids []uuid.UUID) ([]batch.Participant, error)
}

type CenterAuthorizer interface {
	IsAuthorizedForCenter(ctx context.Context, actor user.Actor, centerID uuid.UUID) (bool, error)
}

type ExternalOrder struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

type PaymentGateway interface {
	// CreateOrder fails with errors marked ErrGatewayUnavailable (retryable)
	// or ErrGatewayRejected (permanent).
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*ExternalOrder, error)
	ComputeSignature(orderID, paymentID string) string
	ComputeWebhookSignature(body []byte) string
}

// BookingLocker serializes transitions of one booking across instances.
type BookingLocker interface {
	Lock(ctx context.Context, bookingID uuid.UUID) (unlock func(), err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

type NotificationJob struct {
	ID       uuid.UUID
	Kind     string
	Topic    string
	Payload  []byte
	Attempts int
	RunAt    time.Time
}
