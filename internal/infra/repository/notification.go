package repository

import (
	"context"
	"log/slog"
	"time"

	"academy-booking/internal/infra/db"
	"academy-booking/internal/pkg/pgconv"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	notificationStatusQueued = "queued"
	notificationStatusSent   = "sent"
	notificationStatusDead   = "dead"
)

type NotificationRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewNotificationRepository(db db.DBTX, logger *slog.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

const createNotificationJobSQL = `
INSERT INTO notification_jobs (kind, topic, payload, run_at, status)
VALUES ($1, $2, $3, $4, $5)`

func (r *NotificationRepository) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	_, err := r.db.Exec(ctx, createNotificationJobSQL,
		kind, topic, payload, pgtype.Timestamptz{Time: runAt, Valid: true}, notificationStatusQueued)
	if err != nil {
		return wrapErr(r.logger, "failed to create notification job", err)
	}
	return nil
}

// Concurrent relays skip each other's rows instead of blocking on them.
const claimDueNotificationJobsSQL = `
SELECT id, kind, topic, payload, attempts, run_at
FROM notification_jobs
WHERE status = 'queued' AND run_at <= $1
ORDER BY run_at
LIMIT $2
FOR UPDATE SKIP LOCKED`

func (r *NotificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]shared.NotificationJob, error) {
	rows, err := r.db.Query(ctx, claimDueNotificationJobsSQL, now, limit)
	if err != nil {
		return nil, wrapErr(r.logger, "failed to claim notification jobs", err)
	}
	defer rows.Close()

	var jobs []shared.NotificationJob
	for rows.Next() {
		var (
			job   shared.NotificationJob
			runAt pgtype.Timestamptz
		)
		if err := rows.Scan(&job.ID, &job.Kind, &job.Topic, &job.Payload, &job.Attempts, &runAt); err != nil {
			return nil, wrapErr(r.logger, "failed to scan notification job", err)
		}
		job.RunAt = pgconv.TimeFromPgtype(runAt)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(r.logger, "failed to iterate notification jobs", err)
	}
	return jobs, nil
}

const markNotificationSentSQL = `
UPDATE notification_jobs SET status = $2, attempts = attempts + 1, last_error = NULL, updated_at = $3
WHERE id = $1`

func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	if _, err := r.db.Exec(ctx, markNotificationSentSQL, id, notificationStatusSent, sentAt); err != nil {
		return wrapErr(r.logger, "failed to mark notification job sent", err)
	}
	return nil
}

const markNotificationFailedSQL = `
UPDATE notification_jobs
SET status = $2, attempts = attempts + 1, run_at = $3, last_error = $4, updated_at = now()
WHERE id = $1`

func (r *NotificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, nextRunAt time.Time, lastError string, dead bool) error {
	status := notificationStatusQueued
	if dead {
		status = notificationStatusDead
	}
	_, err := r.db.Exec(ctx, markNotificationFailedSQL,
		id, status, nextRunAt, pgconv.StringToNullablePgtype(lastError))
	if err != nil {
		return wrapErr(r.logger, "failed to mark notification job failed", err)
	}
	return nil
}
