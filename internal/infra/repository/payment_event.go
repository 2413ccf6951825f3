package repository

import (
	"context"
	"log/slog"
	"time"

	"academy-booking/internal/infra/db"
)

type PaymentEventRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewPaymentEventRepository(db db.DBTX, logger *slog.Logger) *PaymentEventRepository {
	return &PaymentEventRepository{
		db:     db,
		logger: logger,
	}
}

const markPaymentEventSQL = `
INSERT INTO payment_events (event_key, order_id, payment_id, processed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (event_key) DO NOTHING`

func (r *PaymentEventRepository) MarkProcessed(ctx context.Context, eventKey, orderID, paymentID string, processedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, markPaymentEventSQL, eventKey, orderID, paymentID, processedAt)
	if err != nil {
		return false, wrapErr(r.logger, "failed to record payment event", err)
	}
	return tag.RowsAffected() == 1, nil
}
