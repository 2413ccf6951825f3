package repository

import (
	"context"
	"log/slog"
	"time"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/infra"
	"academy-booking/internal/infra/db"
	"academy-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type BookingRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewBookingRepository(db db.DBTX, logger *slog.Logger) *BookingRepository {
	return &BookingRepository{
		db:     db,
		logger: logger,
	}
}

const insertBookingSQL = `
INSERT INTO bookings (
    id, user_id, batch_id, center_id, sport_id, status, payment_status,
    payment_attempts, refund_requested, amount, currency, notes,
    capacity_token, is_active, is_deleted, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

const insertBookingParticipantsSQL = `
INSERT INTO booking_participants (booking_id, participant_id, batch_id, position, is_active)
SELECT $1, p.participant_id, $2, p.position, $3
FROM unnest($4::uuid[]) WITH ORDINALITY AS p(participant_id, position)`

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	_, err := r.db.Exec(ctx, insertBookingSQL,
		b.ID(),
		b.UserID(),
		b.BatchID(),
		b.CenterID(),
		b.SportID(),
		b.Status().String(),
		b.PaymentStatus().String(),
		b.PaymentAttempts(),
		b.RefundRequested(),
		b.Amount().Amount(),
		b.Amount().Currency(),
		pgconv.StringToNullablePgtype(b.Notes().String()),
		b.CapacityToken(),
		b.IsActive(),
		b.IsDeleted(),
		b.CreatedAt(),
		b.UpdatedAt(),
	)
	if err != nil {
		return wrapErr(r.logger, "failed to insert booking", err)
	}

	_, err = r.db.Exec(ctx, insertBookingParticipantsSQL,
		b.ID(), b.BatchID(), b.IsActive(), b.ParticipantIDs())
	if err != nil {
		return wrapErr(r.logger, "failed to insert booking participants", err)
	}
	return nil
}

const updateBookingSQL = `
UPDATE bookings SET
    status = $2,
    payment_status = $3,
    payment_attempts = $4,
    refund_requested = $5,
    order_id = $6,
    order_receipt = $7,
    order_amount = $8,
    order_currency = $9,
    payment_id = $10,
    payment_signature = $11,
    reject_reason = $12,
    cancel_reason = $13,
    is_active = $14,
    is_deleted = $15,
    updated_at = $16
WHERE id = $1`

const updateBookingParticipantsSQL = `
UPDATE booking_participants SET is_active = $2
WHERE booking_id = $1 AND is_active <> $2`

func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	var (
		orderID, receipt, orderCurrency *string
		orderAmount                     *int64
	)
	if o := b.Order(); o != nil {
		orderID = &o.ID
		receipt = &o.Receipt
		amount := o.Amount.Amount()
		currency := o.Amount.Currency()
		orderAmount = &amount
		orderCurrency = &currency
	}
	var rejectReason, cancelReason *string
	if rr := b.RejectReason(); rr != nil {
		s := rr.String()
		rejectReason = &s
	}
	if cr := b.CancelReason(); cr != nil {
		s := string(*cr)
		cancelReason = &s
	}

	tag, err := r.db.Exec(ctx, updateBookingSQL,
		b.ID(),
		b.Status().String(),
		b.PaymentStatus().String(),
		b.PaymentAttempts(),
		b.RefundRequested(),
		pgconv.StringPtrToPgtype(orderID),
		pgconv.StringPtrToPgtype(receipt),
		pgconv.Int64PtrToPgtype(orderAmount),
		pgconv.StringPtrToPgtype(orderCurrency),
		pgconv.StringPtrToPgtype(b.PaymentID()),
		pgconv.StringPtrToPgtype(b.PaymentSignature()),
		pgconv.StringPtrToPgtype(rejectReason),
		pgconv.StringPtrToPgtype(cancelReason),
		b.IsActive(),
		b.IsDeleted(),
		b.UpdatedAt(),
	)
	if err != nil {
		return wrapErr(r.logger, "failed to update booking", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "booking not found", nil)
	}

	if _, err := r.db.Exec(ctx, updateBookingParticipantsSQL, b.ID(), b.IsActive()); err != nil {
		return wrapErr(r.logger, "failed to update booking participants", err)
	}
	return nil
}

const selectBookingForUpdateSQL = `
SELECT b.id, b.user_id, b.batch_id, b.center_id, b.sport_id, b.status, b.payment_status,
       b.payment_attempts, b.refund_requested, b.amount, b.currency,
       b.order_id, b.order_receipt, b.order_amount, b.order_currency,
       b.payment_id, b.payment_signature, b.notes, b.reject_reason, b.cancel_reason,
       b.capacity_token, b.is_active, b.is_deleted, b.created_at, b.updated_at,
       ARRAY(SELECT bp.participant_id FROM booking_participants bp
             WHERE bp.booking_id = b.id ORDER BY bp.position) AS participant_ids
FROM bookings b
WHERE b.id = $1
FOR UPDATE OF b`

func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	var (
		p                                            booking.ReconstructParams
		status, paymentStatus, currency              string
		amount                                       int64
		orderID, receipt, orderCurrency, paymentID   pgtype.Text
		signature, notes, rejectReason, cancelReason pgtype.Text
		orderAmount                                  pgtype.Int8
	)
	err := r.db.QueryRow(ctx, selectBookingForUpdateSQL, id).Scan(
		&p.ID, &p.UserID, &p.BatchID, &p.CenterID, &p.SportID, &status, &paymentStatus,
		&p.PaymentAttempts, &p.RefundRequested, &amount, &currency,
		&orderID, &receipt, &orderAmount, &orderCurrency,
		&paymentID, &signature, &notes, &rejectReason, &cancelReason,
		&p.CapacityToken, &p.IsActive, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt,
		&p.ParticipantIDs,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "booking not found", err)
		}
		return nil, wrapErr(r.logger, "failed to load booking", err)
	}

	if p.Status, err = booking.NewStatus(status); err != nil {
		return nil, r.corrupt(id, err)
	}
	if p.PaymentStatus, err = booking.NewPaymentStatus(paymentStatus); err != nil {
		return nil, r.corrupt(id, err)
	}
	if p.Amount, err = booking.NewMoney(amount, currency); err != nil {
		return nil, r.corrupt(id, err)
	}
	if orderID.Valid {
		orderMoney, err := booking.NewMoney(orderAmount.Int64, orderCurrency.String)
		if err != nil {
			return nil, r.corrupt(id, err)
		}
		p.Order = &booking.Order{ID: orderID.String, Receipt: receipt.String, Amount: orderMoney}
	}
	p.PaymentID = pgconv.StringPtrFromPgtype(paymentID)
	p.PaymentSignature = pgconv.StringPtrFromPgtype(signature)
	if p.Notes, err = booking.NewNotes(notes.String); err != nil {
		return nil, r.corrupt(id, err)
	}
	if rejectReason.Valid {
		rr, err := booking.NewRejectReason(rejectReason.String)
		if err != nil {
			return nil, r.corrupt(id, err)
		}
		p.RejectReason = &rr
	}
	if cancelReason.Valid {
		cr := booking.CancelReason(cancelReason.String)
		p.CancelReason = &cr
	}

	b, err := booking.ReconstructBooking(p)
	if err != nil {
		return nil, r.corrupt(id, err)
	}
	return b, nil
}

func (r *BookingRepository) corrupt(id uuid.UUID, err error) error {
	return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "stored booking "+id.String()+" is invalid", err)
}

func (r *BookingRepository) FindIDByOrderID(ctx context.Context, orderID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM bookings WHERE order_id = $1`, orderID).Scan(&id)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return uuid.Nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "no booking for order", err)
		}
		return uuid.Nil, wrapErr(r.logger, "failed to find booking by order", err)
	}
	return id, nil
}

const activeParticipantsSQL = `
SELECT participant_id FROM booking_participants
WHERE batch_id = $1 AND is_active AND participant_id = ANY($2::uuid[])`

func (r *BookingRepository) ActiveParticipants(ctx context.Context, batchID uuid.UUID, participantIDs []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, activeParticipantsSQL, batchID, participantIDs)
	if err != nil {
		return nil, wrapErr(r.logger, "failed to query active participants", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(r.logger, "failed to scan participant", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(r.logger, "failed to iterate participants", err)
	}
	return ids, nil
}

const listStaleSQL = `
SELECT id FROM bookings
WHERE status = ANY($1::text[]) AND is_active AND updated_at < $2
ORDER BY updated_at
LIMIT $3`

func (r *BookingRepository) ListStale(ctx context.Context, statuses []booking.Status, updatedBefore time.Time, limit int) ([]uuid.UUID, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}

	rows, err := r.db.Query(ctx, listStaleSQL, names, updatedBefore, limit)
	if err != nil {
		return nil, wrapErr(r.logger, "failed to list stale bookings", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(r.logger, "failed to scan stale booking", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(r.logger, "failed to iterate stale bookings", err)
	}
	return ids, nil
}

func wrapErr(logger *slog.Logger, msg string, err error) error {
	return infra.WrapRepoErr(logger, infra.ClassifyPgError(err), msg, err)
}
