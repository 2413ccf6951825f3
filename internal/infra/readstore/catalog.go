package readstore

import (
	"context"
	"log/slog"

	"academy-booking/internal/domain/batch"
	"academy-booking/internal/infra"
	"academy-booking/internal/infra/db"
	"academy-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// CatalogReadStore reads batch and participant snapshots from the catalog tables.
type CatalogReadStore struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewCatalogReadStore(db db.DBTX, logger *slog.Logger) *CatalogReadStore {
	return &CatalogReadStore{
		db:     db,
		logger: logger,
	}
}

const getBatchSQL = `
SELECT id, center_id, sport_id, name, capacity, min_age, max_age, genders,
       allow_disabled, start_date, end_date, status, is_active, requires_approval,
       fee_amount, currency
FROM batches
WHERE id = $1`

func (s *CatalogReadStore) GetBatch(ctx context.Context, batchID uuid.UUID) (*batch.Batch, error) {
	var (
		b                  batch.Batch
		genders            []string
		status             string
		startDate, endDate pgtype.Timestamptz
	)
	err := s.db.QueryRow(ctx, getBatchSQL, batchID).Scan(
		&b.ID, &b.CenterID, &b.SportID, &b.Name, &b.Capacity, &b.MinAge, &b.MaxAge, &genders,
		&b.AllowDisabled, &startDate, &endDate, &status, &b.IsActive, &b.RequiresApproval,
		&b.FeeAmount, &b.Currency,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(s.logger, infra.KindNotFound, "batch not found", err)
		}
		return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to get batch", err)
	}

	b.StartDate = pgconv.TimeFromPgtype(startDate)
	b.EndDate = pgconv.TimeFromPgtype(endDate)
	b.Status = batch.PublishStatus(status)
	for _, g := range genders {
		gender, err := batch.NewGender(g)
		if err != nil {
			return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "batch has invalid gender", err)
		}
		b.Genders = append(b.Genders, gender)
	}
	return &b, nil
}

const getParticipantsSQL = `
SELECT id, user_id, date_of_birth, gender, is_disabled
FROM participants
WHERE id = ANY($1::uuid[])`

func (s *CatalogReadStore) GetParticipants(ctx context.Context, ids []uuid.UUID) ([]batch.Participant, error) {
	rows, err := s.db.Query(ctx, getParticipantsSQL, ids)
	if err != nil {
		return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to get participants", err)
	}
	defer rows.Close()

	var participants []batch.Participant
	for rows.Next() {
		var (
			p      batch.Participant
			dob    pgtype.Date
			gender string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &dob, &gender, &p.IsDisabled); err != nil {
			return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to scan participant", err)
		}
		p.DateOfBirth = dob.Time
		p.Gender = batch.Gender(gender)
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to iterate participants", err)
	}
	return participants, nil
}
