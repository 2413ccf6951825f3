//go:build unit || e2e

package builder

import (
	"time"

	"academy-booking/internal/domain/booking"
	reqdto "academy-booking/internal/handler/dto/request"
	"academy-booking/internal/pkg/ptr"
	"academy-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	ParticipantIDs   []uuid.UUID
	BatchID          uuid.UUID
	CenterID         uuid.UUID
	SportID          uuid.UUID
	Status           booking.Status
	PaymentStatus    booking.PaymentStatus
	PaymentAttempts  int
	RefundRequested  bool
	AmountMinor      int64
	Currency         string
	OrderID          string
	PaymentID        string
	Notes            string
	CapacityToken    uuid.UUID
	RequiresApproval bool
	IsActive         bool
	IsDeleted        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewBookingBuilder() *BookingBuilder {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &BookingBuilder{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		ParticipantIDs: []uuid.UUID{uuid.New()},
		BatchID:        uuid.New(),
		CenterID:       uuid.New(),
		SportID:        uuid.New(),
		Status:         booking.StatusRequested,
		PaymentStatus:  booking.PaymentNotInitiated,
		AmountMinor:    150000,
		Currency:       "INR",
		Notes:          "Morning slot please",
		CapacityToken:  uuid.New(),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

// Build methods

// BuildNew goes through the constructor, so Status and PaymentStatus are ignored.
func (b *BookingBuilder) BuildNew() (*booking.Booking, error) {
	amount, err := booking.NewMoney(b.AmountMinor, b.Currency)
	if err != nil {
		return nil, err
	}
	notes, err := booking.NewNotes(b.Notes)
	if err != nil {
		return nil, err
	}
	return booking.NewBooking(booking.NewBookingParams{
		UserID:           b.UserID,
		ParticipantIDs:   b.ParticipantIDs,
		BatchID:          b.BatchID,
		CenterID:         b.CenterID,
		SportID:          b.SportID,
		RequiresApproval: b.RequiresApproval,
		Amount:           amount,
		Notes:            notes,
		CapacityToken:    b.CapacityToken,
	}, b.CreatedAt)
}

// BuildDomain rehydrates a booking in exactly the configured state.
func (b *BookingBuilder) BuildDomain() (*booking.Booking, error) {
	return booking.ReconstructBooking(b.reconstructParams())
}

func (b *BookingBuilder) MustBuildDomain() *booking.Booking {
	bk, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	return bk
}

func (b *BookingBuilder) reconstructParams() booking.ReconstructParams {
	amount, _ := booking.NewMoney(b.AmountMinor, b.Currency)
	notes, _ := booking.NewNotes(b.Notes)
	p := booking.ReconstructParams{
		ID:              b.ID,
		UserID:          b.UserID,
		ParticipantIDs:  b.ParticipantIDs,
		BatchID:         b.BatchID,
		CenterID:        b.CenterID,
		SportID:         b.SportID,
		Status:          b.Status,
		PaymentStatus:   b.PaymentStatus,
		PaymentAttempts: b.PaymentAttempts,
		RefundRequested: b.RefundRequested,
		Amount:          amount,
		Notes:           notes,
		CapacityToken:   b.CapacityToken,
		IsActive:        b.IsActive,
		IsDeleted:       b.IsDeleted,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.OrderID != "" {
		p.Order = &booking.Order{ID: b.OrderID, Receipt: "bk_receipt", Amount: amount}
	}
	p.PaymentID = ptr.NonZero(b.PaymentID)
	return p
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	return &queries.BookingView{
		ID:              b.ID,
		UserID:          b.UserID,
		BatchID:         b.BatchID,
		CenterID:        b.CenterID,
		SportID:         b.SportID,
		ParticipantIDs:  b.ParticipantIDs,
		Status:          b.Status.String(),
		PaymentStatus:   b.PaymentStatus.String(),
		PaymentAttempts: b.PaymentAttempts,
		RefundRequested: b.RefundRequested,
		Amount:          b.AmountMinor,
		Currency:        b.Currency,
		IsActive:        b.IsActive,
		OrderID:         ptr.NonZero(b.OrderID),
		PaymentID:       ptr.NonZero(b.PaymentID),
		Notes:           ptr.NonZero(b.Notes),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func (b *BookingBuilder) BuildReserveRequestDTO() reqdto.ReserveBookingRequest {
	return reqdto.ReserveBookingRequest{
		BatchID:        b.BatchID,
		ParticipantIDs: b.ParticipantIDs,
		Notes:          b.Notes,
	}
}

// Fluent builder methods
func (b *BookingBuilder) WithUserID(id uuid.UUID) *BookingBuilder {
	b.UserID = id
	return b
}

func (b *BookingBuilder) WithBatch(batchID, centerID uuid.UUID) *BookingBuilder {
	b.BatchID = batchID
	b.CenterID = centerID
	return b
}

func (b *BookingBuilder) WithParticipants(ids ...uuid.UUID) *BookingBuilder {
	b.ParticipantIDs = ids
	return b
}

func (b *BookingBuilder) WithState(status booking.Status, payment booking.PaymentStatus) *BookingBuilder {
	b.Status = status
	b.PaymentStatus = payment
	if status == booking.StatusCancelled || status == booking.StatusRejected {
		b.IsActive = false
	}
	return b
}

func (b *BookingBuilder) WithOrder(orderID string) *BookingBuilder {
	b.OrderID = orderID
	return b
}

func (b *BookingBuilder) WithUpdatedAt(t time.Time) *BookingBuilder {
	b.UpdatedAt = t
	return b
}

func (b *BookingBuilder) AsAwaitingApproval() *BookingBuilder {
	b.RequiresApproval = true
	return b.WithState(booking.StatusSlotBooked, booking.PaymentNotInitiated)
}

func (b *BookingBuilder) AsPaymentPending(orderID string) *BookingBuilder {
	return b.WithState(booking.StatusPaymentPending, booking.PaymentPending).WithOrder(orderID)
}

func (b *BookingBuilder) AsConfirmed(orderID, paymentID string) *BookingBuilder {
	b.PaymentID = paymentID
	return b.WithState(booking.StatusConfirmed, booking.PaymentSuccess).WithOrder(orderID)
}
