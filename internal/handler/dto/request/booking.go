package request

import (
	"strings"
	"time"

	"academy-booking/internal/pkg/ptr"
	"academy-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type ReserveBookingRequest struct {
	BatchID        uuid.UUID   `json:"batchId" binding:"required"`
	ParticipantIDs []uuid.UUID `json:"participantIds" binding:"required,min=1,max=50,unique"`
	Notes          string      `json:"notes" binding:"max=500"`
}

type RejectBookingRequest struct {
	Reason string `json:"reason" binding:"required,notblank,max=500"`
}

// ListBookingsQuery is bound from the query string.
type ListBookingsQuery struct {
	Page          int        `form:"page" binding:"omitempty,min=1"`
	Limit         int        `form:"limit" binding:"omitempty,min=1,max=200"`
	UserID        string     `form:"userId" binding:"omitempty,uuid"`
	CenterID      string     `form:"centerId" binding:"omitempty,uuid"`
	BatchID       string     `form:"batchId" binding:"omitempty,uuid"`
	Status        string     `form:"status" binding:"omitempty,booking_status"`
	PaymentStatus string     `form:"paymentStatus" binding:"omitempty,payment_status"`
	From          *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ToFilter assumes the ids were validated by binding.
func (q ListBookingsQuery) ToFilter() queries.BookingFilter {
	return queries.BookingFilter{
		UserID:        parseOptionalUUID(q.UserID),
		CenterID:      parseOptionalUUID(q.CenterID),
		BatchID:       parseOptionalUUID(q.BatchID),
		Status:        ptr.NonZero(q.Status),
		PaymentStatus: ptr.NonZero(q.PaymentStatus),
		From:          q.From,
		To:            q.To,
	}
}

func (q ListBookingsQuery) PageOrDefault() int {
	return queries.ValidatePage(q.Page)
}

func (q ListBookingsQuery) LimitOrDefault() int {
	return queries.ValidateLimit(q.Limit)
}

func (r ReserveBookingRequest) TrimmedNotes() string {
	return strings.TrimSpace(r.Notes)
}

func parseOptionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
