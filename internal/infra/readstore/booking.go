package readstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"academy-booking/internal/infra"
	"academy-booking/internal/infra/db"
	"academy-booking/internal/pkg/pgconv"
	"academy-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type BookingReadStore struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewBookingReadStore(db db.DBTX, logger *slog.Logger) *BookingReadStore {
	return &BookingReadStore{
		db:     db,
		logger: logger,
	}
}

const bookingViewColumns = `
b.id, b.user_id, b.batch_id, b.center_id, b.sport_id,
ARRAY(SELECT bp.participant_id FROM booking_participants bp
      WHERE bp.booking_id = b.id ORDER BY bp.position) AS participant_ids,
b.status, b.payment_status, b.payment_attempts, b.refund_requested,
b.amount, b.currency, b.order_id, b.payment_id, b.notes,
b.reject_reason, b.cancel_reason, b.is_active, b.created_at, b.updated_at`

func (s *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	sql := `SELECT` + bookingViewColumns + ` FROM bookings b WHERE b.id = $1 AND NOT b.is_deleted`
	view, err := scanBookingView(s.db.QueryRow(ctx, sql, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(s.logger, infra.KindNotFound, "booking not found", err)
		}
		return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to get booking", err)
	}
	return view, nil
}

func (s *BookingReadStore) List(ctx context.Context, filter queries.BookingFilter, limit, offset int) ([]*queries.BookingView, int, error) {
	where, args := buildBookingFilter(filter)
	args = append(args, limit, offset)

	sql := fmt.Sprintf(`SELECT%s, COUNT(*) OVER() AS total
FROM bookings b
WHERE %s
ORDER BY b.created_at DESC, b.id DESC
LIMIT $%d OFFSET $%d`, bookingViewColumns, where, len(args)-1, len(args))

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to list bookings", err)
	}
	defer rows.Close()

	var (
		views []*queries.BookingView
		total int
	)
	for rows.Next() {
		view, err := scanBookingView(rows, &total)
		if err != nil {
			return nil, 0, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to scan booking", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to iterate bookings", err)
	}

	if len(views) == 0 && offset > 0 {
		// Past the last page the window count is unavailable.
		countSQL := `SELECT COUNT(*) FROM bookings b WHERE ` + where
		if err := s.db.QueryRow(ctx, countSQL, args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to count bookings", err)
		}
	}
	return views, total, nil
}

func buildBookingFilter(f queries.BookingFilter) (string, []any) {
	conds := []string{"NOT b.is_deleted"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != nil {
		add("b.user_id = $%d", *f.UserID)
	}
	if f.CenterID != nil {
		add("b.center_id = $%d", *f.CenterID)
	}
	if f.BatchID != nil {
		add("b.batch_id = $%d", *f.BatchID)
	}
	if f.Status != nil {
		add("b.status = $%d", *f.Status)
	}
	if f.PaymentStatus != nil {
		add("b.payment_status = $%d", *f.PaymentStatus)
	}
	if f.From != nil {
		add("b.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("b.created_at <= $%d", *f.To)
	}
	return strings.Join(conds, " AND "), args
}

func scanBookingView(row pgx.Row, extra ...any) (*queries.BookingView, error) {
	var (
		v                                       queries.BookingView
		orderID, paymentID, notes, reject, canc pgtype.Text
	)
	dest := []any{
		&v.ID, &v.UserID, &v.BatchID, &v.CenterID, &v.SportID, &v.ParticipantIDs,
		&v.Status, &v.PaymentStatus, &v.PaymentAttempts, &v.RefundRequested,
		&v.Amount, &v.Currency, &orderID, &paymentID, &notes,
		&reject, &canc, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	v.OrderID = pgconv.StringPtrFromPgtype(orderID)
	v.PaymentID = pgconv.StringPtrFromPgtype(paymentID)
	v.Notes = pgconv.StringPtrFromPgtype(notes)
	v.RejectReason = pgconv.StringPtrFromPgtype(reject)
	v.CancelReason = pgconv.StringPtrFromPgtype(canc)
	return &v, nil
}
