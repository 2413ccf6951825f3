package response

import (
	"time"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/pkg/ptr"
	"academy-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type BookingResponse struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"userId"`
	BatchID         uuid.UUID   `json:"batchId"`
	CenterID        uuid.UUID   `json:"centerId"`
	SportID         uuid.UUID   `json:"sportId"`
	ParticipantIDs  []uuid.UUID `json:"participantIds"`
	Status          string      `json:"status"`
	PaymentStatus   string      `json:"paymentStatus"`
	PaymentAttempts int         `json:"paymentAttempts"`
	RefundRequested bool        `json:"refundRequested"`
	Amount          int64       `json:"amount"`
	Currency        string      `json:"currency"`
	OrderID         *string     `json:"orderId,omitempty"`
	PaymentID       *string     `json:"paymentId,omitempty"`
	Notes           *string     `json:"notes,omitempty"`
	RejectReason    *string     `json:"rejectReason,omitempty"`
	CancelReason    *string     `json:"cancelReason,omitempty"`
	IsActive        bool        `json:"isActive"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type PaginationResponse struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

type BookingListResponse struct {
	Items      []*BookingResponse `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

func FromBooking(b *booking.Booking) *BookingResponse {
	resp := &BookingResponse{
		ID:              b.ID(),
		UserID:          b.UserID(),
		BatchID:         b.BatchID(),
		CenterID:        b.CenterID(),
		SportID:         b.SportID(),
		ParticipantIDs:  b.ParticipantIDs(),
		Status:          b.Status().String(),
		PaymentStatus:   b.PaymentStatus().String(),
		PaymentAttempts: b.PaymentAttempts(),
		RefundRequested: b.RefundRequested(),
		Amount:          b.Amount().Amount(),
		Currency:        b.Amount().Currency(),
		PaymentID:       b.PaymentID(),
		IsActive:        b.IsActive(),
		CreatedAt:       b.CreatedAt(),
		UpdatedAt:       b.UpdatedAt(),
	}
	if o := b.Order(); o != nil {
		resp.OrderID = ptr.Of(o.ID)
	}
	resp.Notes = ptr.NonZero(b.Notes().String())
	if r := b.RejectReason(); r != nil {
		resp.RejectReason = ptr.Of(r.String())
	}
	if r := b.CancelReason(); r != nil {
		resp.CancelReason = ptr.Of(string(*r))
	}
	return resp
}

// The view and the response share field names, so copier maps them directly.
func FromBookingView(v *queries.BookingView) (*BookingResponse, error) {
	resp := &BookingResponse{}
	if err := copier.Copy(resp, v); err != nil {
		return nil, err
	}
	return resp, nil
}

func FromBookingPage(page *queries.BookingPage) (*BookingListResponse, error) {
	resp := &BookingListResponse{Items: make([]*BookingResponse, 0, len(page.Items))}
	for _, v := range page.Items {
		item, err := FromBookingView(v)
		if err != nil {
			return nil, err
		}
		resp.Items = append(resp.Items, item)
	}
	if err := copier.Copy(&resp.Pagination, &page.Pagination); err != nil {
		return nil, err
	}
	return resp, nil
}
