package repository

import (
	"context"
	"log/slog"

	"academy-booking/internal/infra/db"
	"academy-booking/internal/pkg/pgconv"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// CapacityRepository keeps a committed-seat counter per batch. The counter row
// is the serialization point for concurrent reservations of the same batch.
type CapacityRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewCapacityRepository(db db.DBTX, logger *slog.Logger) *CapacityRepository {
	return &CapacityRepository{
		db:     db,
		logger: logger,
	}
}

// The first reservation of a batch seeds the counter from the bookings that
// already hold seats; later ones only refresh the catalog capacity.
const ensureCounterSQL = `
INSERT INTO batch_capacity (batch_id, capacity, committed)
SELECT $1, $2, COALESCE((
    SELECT COUNT(*) FROM booking_participants bp
    JOIN bookings b ON b.id = bp.booking_id
    WHERE bp.batch_id = $1 AND bp.is_active AND b.is_active AND NOT b.is_deleted
), 0)
ON CONFLICT (batch_id) DO UPDATE SET capacity = EXCLUDED.capacity, updated_at = now()
WHERE batch_capacity.capacity <> EXCLUDED.capacity`

const commitSeatsSQL = `
UPDATE batch_capacity
SET committed = committed + $2, updated_at = now()
WHERE batch_id = $1 AND committed + $2 <= capacity
RETURNING committed`

const insertReservationSQL = `
INSERT INTO capacity_reservations (token, batch_id, seats) VALUES ($1, $2, $3)`

func (r *CapacityRepository) TryReserve(ctx context.Context, batchID uuid.UUID, capacity, seats int) (uuid.UUID, error) {
	if _, err := r.db.Exec(ctx, ensureCounterSQL, batchID, capacity); err != nil {
		return uuid.Nil, wrapErr(r.logger, "failed to prepare capacity counter", err)
	}

	var committed int
	err := r.db.QueryRow(ctx, commitSeatsSQL, batchID, seats).Scan(&committed)
	if err != nil {
		if !pgconv.IsNoRows(err) {
			return uuid.Nil, wrapErr(r.logger, "failed to commit seats", err)
		}
		free, freeErr := r.FreeSeats(ctx, batchID, capacity)
		if freeErr != nil {
			return uuid.Nil, freeErr
		}
		return uuid.Nil, &shared.CapacityError{BatchID: batchID, Requested: seats, Free: free}
	}

	token := uuid.New()
	if _, err := r.db.Exec(ctx, insertReservationSQL, token, batchID, seats); err != nil {
		return uuid.Nil, wrapErr(r.logger, "failed to record capacity reservation", err)
	}
	return token, nil
}

const releaseReservationSQL = `
UPDATE capacity_reservations SET released_at = now()
WHERE token = $1 AND released_at IS NULL
RETURNING batch_id, seats`

const releaseSeatsSQL = `
UPDATE batch_capacity
SET committed = GREATEST(committed - $2, 0), updated_at = now()
WHERE batch_id = $1`

func (r *CapacityRepository) Release(ctx context.Context, token uuid.UUID) (bool, error) {
	var (
		batchID uuid.UUID
		seats   int
	)
	err := r.db.QueryRow(ctx, releaseReservationSQL, token).Scan(&batchID, &seats)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return false, nil
		}
		return false, wrapErr(r.logger, "failed to release capacity reservation", err)
	}

	if _, err := r.db.Exec(ctx, releaseSeatsSQL, batchID, seats); err != nil {
		return false, wrapErr(r.logger, "failed to release seats", err)
	}
	return true, nil
}

func (r *CapacityRepository) FreeSeats(ctx context.Context, batchID uuid.UUID, capacity int) (int, error) {
	var committed int
	err := r.db.QueryRow(ctx, `SELECT committed FROM batch_capacity WHERE batch_id = $1`, batchID).Scan(&committed)
	if err != nil {
		if !pgconv.IsNoRows(err) {
			return 0, wrapErr(r.logger, "failed to read capacity counter", err)
		}
		committed, err = r.activeSeats(ctx, batchID)
		if err != nil {
			return 0, err
		}
	}
	return max(capacity-committed, 0), nil
}

const activeSeatsSQL = `
SELECT COUNT(*) FROM booking_participants bp
JOIN bookings b ON b.id = bp.booking_id
WHERE bp.batch_id = $1 AND bp.is_active AND b.is_active AND NOT b.is_deleted`

func (r *CapacityRepository) activeSeats(ctx context.Context, batchID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, activeSeatsSQL, batchID).Scan(&n); err != nil {
		return 0, wrapErr(r.logger, "failed to count active seats", err)
	}
	return n, nil
}

const lockCounterSQL = `
SELECT committed FROM batch_capacity WHERE batch_id = $1 FOR UPDATE`

const releaseOrphansSQL = `
UPDATE capacity_reservations cr SET released_at = now()
WHERE cr.batch_id = $1 AND cr.released_at IS NULL
  AND NOT EXISTS (
      SELECT 1 FROM bookings b
      WHERE b.capacity_token = cr.token AND b.is_active AND NOT b.is_deleted
  )`

const resetCounterSQL = `
UPDATE batch_capacity SET capacity = $2, committed = $3, updated_at = now()
WHERE batch_id = $1`

func (r *CapacityRepository) Reconcile(ctx context.Context, batchID uuid.UUID, capacity int) (shared.ReconcileResult, error) {
	result := shared.ReconcileResult{BatchID: batchID, Capacity: capacity}

	// Lock the counter first so the active-seat count below cannot race a reservation.
	if _, err := r.db.Exec(ctx, ensureCounterSQL, batchID, capacity); err != nil {
		return result, wrapErr(r.logger, "failed to prepare capacity counter", err)
	}
	if err := r.db.QueryRow(ctx, lockCounterSQL, batchID).Scan(&result.Before); err != nil {
		return result, wrapErr(r.logger, "failed to lock capacity counter", err)
	}

	tag, err := r.db.Exec(ctx, releaseOrphansSQL, batchID)
	if err != nil {
		return result, wrapErr(r.logger, "failed to release orphaned reservations", err)
	}
	result.OrphansReleased = int(tag.RowsAffected())

	if result.After, err = r.activeSeats(ctx, batchID); err != nil {
		return result, err
	}
	if _, err := r.db.Exec(ctx, resetCounterSQL, batchID, capacity, result.After); err != nil {
		return result, wrapErr(r.logger, "failed to reset capacity counter", err)
	}
	return result, nil
}

var _ shared.CapacityLedger = (*CapacityRepository)(nil)
