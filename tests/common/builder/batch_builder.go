//go:build unit || e2e

package builder

import (
	"time"

	"academy-booking/internal/domain/batch"

	"github.com/google/uuid"
)

type BatchBuilder struct {
	batch batch.Batch
}

func NewBatchBuilder() *BatchBuilder {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return &BatchBuilder{batch: batch.Batch{
		ID:            uuid.New(),
		CenterID:      uuid.New(),
		SportID:       uuid.New(),
		Name:          "U12 Football Evening",
		Capacity:      10,
		MinAge:        8,
		MaxAge:        12,
		AllowDisabled: true,
		StartDate:     start,
		EndDate:       start.AddDate(0, 3, 0),
		Status:        batch.PublishStatusPublished,
		IsActive:      true,
		FeeAmount:     150000,
		Currency:      "INR",
	}}
}

func (b *BatchBuilder) With(mutate func(*batch.Batch)) *BatchBuilder {
	mutate(&b.batch)
	return b
}

func (b *BatchBuilder) WithCapacity(n int) *BatchBuilder {
	b.batch.Capacity = n
	return b
}

func (b *BatchBuilder) WithApproval() *BatchBuilder {
	b.batch.RequiresApproval = true
	return b
}

func (b *BatchBuilder) Build() *batch.Batch {
	cp := b.batch
	cp.Genders = append([]batch.Gender(nil), b.batch.Genders...)
	return &cp
}

type ParticipantBuilder struct {
	p batch.Participant
}

// NewParticipantBuilder returns a ten-year-old on 2026-03-01.
func NewParticipantBuilder() *ParticipantBuilder {
	return &ParticipantBuilder{p: batch.Participant{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		DateOfBirth: time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC),
		Gender:      batch.GenderFemale,
	}}
}

func (b *ParticipantBuilder) With(mutate func(*batch.Participant)) *ParticipantBuilder {
	mutate(&b.p)
	return b
}

func (b *ParticipantBuilder) OwnedBy(userID uuid.UUID) *ParticipantBuilder {
	b.p.UserID = userID
	return b
}

func (b *ParticipantBuilder) Build() batch.Participant {
	return b.p
}
