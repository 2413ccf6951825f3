package shared

import (
	"context"
	"fmt"

	"academy-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrCapacityExceeded = errs.New("capacity exceeded")

// CapacityError reports a refused reservation together with the seats still free.
type CapacityError struct {
	BatchID   uuid.UUID
	Requested int
	Free      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("batch %s has %d free seats, %d requested", e.BatchID, e.Free, e.Requested)
}

func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

type ReconcileResult struct {
	BatchID         uuid.UUID
	Capacity        int
	Before          int
	After           int
	OrphansReleased int
}

func (r ReconcileResult) Drift() int {
	return r.After - r.Before
}

// CapacityLedger tracks committed seats per batch. Every method runs inside
// the caller's transaction.
type CapacityLedger interface {
	// TryReserve commits seats if they fit, returning a token that releases exactly them.
	// It fails with *CapacityError and no side effects otherwise.
	TryReserve(ctx context.Context, batchID uuid.UUID, capacity, seats int) (uuid.UUID, error)
	// Release is a no-op for a token that was already released.
	Release(ctx context.Context, token uuid.UUID) (bool, error)
	FreeSeats(ctx context.Context, batchID uuid.UUID, capacity int) (int, error)
	// Reconcile rebuilds the committed count from active bookings.
	Reconcile(ctx context.Context, batchID uuid.UUID, capacity int) (ReconcileResult, error)
}
