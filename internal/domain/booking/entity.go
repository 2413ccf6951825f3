package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoParticipants        = errors.New("booking requires at least one participant")
	ErrDuplicateParticipant  = errors.New("participant listed more than once")
	ErrUnreachableState      = errors.New("booking state is not a reachable status/payment pair")
	ErrCancelledButActive    = errors.New("cancelled booking cannot be active")
	ErrOrderAlreadyAttached  = errors.New("booking already has an open order")
	ErrMissingCapacityToken  = errors.New("booking requires a capacity reservation token")
	ErrDeleteActiveBooking   = errors.New("active booking cannot be deleted")
	ErrPaymentReferenceEmpty = errors.New("payment id is required")
)

// Booking holds seats in a batch for one or more participants.
// Its status pair only changes through Transition.
type Booking struct {
	id               uuid.UUID
	userID           uuid.UUID
	participantIDs   []uuid.UUID
	batchID          uuid.UUID
	centerID         uuid.UUID
	sportID          uuid.UUID
	state            State
	amount           Money
	order            *Order
	paymentID        *string
	paymentSignature *string
	notes            Notes
	rejectReason     *RejectReason
	cancelReason     *CancelReason
	capacityToken    uuid.UUID
	isActive         bool
	isDeleted        bool
	createdAt        time.Time
	updatedAt        time.Time
}

type NewBookingParams struct {
	UserID           uuid.UUID
	ParticipantIDs   []uuid.UUID
	BatchID          uuid.UUID
	CenterID         uuid.UUID
	SportID          uuid.UUID
	RequiresApproval bool
	Amount           Money
	Notes            Notes
	CapacityToken    uuid.UUID
}

func NewBooking(p NewBookingParams, now time.Time) (*Booking, error) {
	if err := validateParticipants(p.ParticipantIDs); err != nil {
		return nil, err
	}
	if p.CapacityToken == uuid.Nil {
		return nil, ErrMissingCapacityToken
	}

	participants := make([]uuid.UUID, len(p.ParticipantIDs))
	copy(participants, p.ParticipantIDs)

	return &Booking{
		id:             uuid.New(),
		userID:         p.UserID,
		participantIDs: participants,
		batchID:        p.BatchID,
		centerID:       p.CenterID,
		sportID:        p.SportID,
		state:          InitialState(p.RequiresApproval),
		amount:         p.Amount,
		notes:          p.Notes,
		capacityToken:  p.CapacityToken,
		isActive:       true,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

type ReconstructParams struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	ParticipantIDs   []uuid.UUID
	BatchID          uuid.UUID
	CenterID         uuid.UUID
	SportID          uuid.UUID
	Status           Status
	PaymentStatus    PaymentStatus
	PaymentAttempts  int
	RefundRequested  bool
	Amount           Money
	Order            *Order
	PaymentID        *string
	PaymentSignature *string
	Notes            Notes
	RejectReason     *RejectReason
	CancelReason     *CancelReason
	CapacityToken    uuid.UUID
	IsActive         bool
	IsDeleted        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ReconstructBooking rehydrates a stored booking, refusing status pairs the
// machine can never produce.
func ReconstructBooking(p ReconstructParams) (*Booking, error) {
	if !IsReachable(p.Status, p.PaymentStatus) {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnreachableState, p.Status, p.PaymentStatus)
	}
	if p.Status == StatusCancelled && p.IsActive {
		return nil, ErrCancelledButActive
	}
	if err := validateParticipants(p.ParticipantIDs); err != nil {
		return nil, err
	}

	return &Booking{
		id:             p.ID,
		userID:         p.UserID,
		participantIDs: p.ParticipantIDs,
		batchID:        p.BatchID,
		centerID:       p.CenterID,
		sportID:        p.SportID,
		state: State{
			Status:          p.Status,
			PaymentStatus:   p.PaymentStatus,
			PaymentAttempts: p.PaymentAttempts,
			RefundRequested: p.RefundRequested,
		},
		amount:           p.Amount,
		order:            p.Order,
		paymentID:        p.PaymentID,
		paymentSignature: p.PaymentSignature,
		notes:            p.Notes,
		rejectReason:     p.RejectReason,
		cancelReason:     p.CancelReason,
		capacityToken:    p.CapacityToken,
		isActive:         p.IsActive,
		isDeleted:        p.IsDeleted,
		createdAt:        p.CreatedAt,
		updatedAt:        p.UpdatedAt,
	}, nil
}

func validateParticipants(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ErrDuplicateParticipant
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (b *Booking) ID() uuid.UUID                   { return b.id }
func (b *Booking) UserID() uuid.UUID               { return b.userID }
func (b *Booking) BatchID() uuid.UUID              { return b.batchID }
func (b *Booking) CenterID() uuid.UUID             { return b.centerID }
func (b *Booking) SportID() uuid.UUID              { return b.sportID }
func (b *Booking) State() State                    { return b.state }
func (b *Booking) Status() Status                  { return b.state.Status }
func (b *Booking) PaymentStatus() PaymentStatus    { return b.state.PaymentStatus }
func (b *Booking) PaymentAttempts() int            { return b.state.PaymentAttempts }
func (b *Booking) RefundRequested() bool           { return b.state.RefundRequested }
func (b *Booking) Amount() Money                   { return b.amount }
func (b *Booking) Order() *Order                   { return b.order }
func (b *Booking) PaymentID() *string              { return b.paymentID }
func (b *Booking) PaymentSignature() *string       { return b.paymentSignature }
func (b *Booking) Notes() Notes                    { return b.notes }
func (b *Booking) RejectReason() *RejectReason     { return b.rejectReason }
func (b *Booking) CancelReason() *CancelReason     { return b.cancelReason }
func (b *Booking) CapacityToken() uuid.UUID        { return b.capacityToken }
func (b *Booking) IsActive() bool                  { return b.isActive }
func (b *Booking) IsDeleted() bool                 { return b.isDeleted }
func (b *Booking) CreatedAt() time.Time            { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time            { return b.updatedAt }
func (b *Booking) SeatCount() int                  { return len(b.participantIDs) }
func (b *Booking) IsOwnedBy(userID uuid.UUID) bool { return b.userID == userID }

func (b *Booking) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(b.participantIDs))
	copy(ids, b.participantIDs)
	return ids
}

// HasOpenOrder reports whether a gateway order is awaiting settlement.
func (b *Booking) HasOpenOrder() bool {
	return b.order != nil && b.state.Status == StatusPaymentPending
}

func (b *Booking) apply(ev Event, now time.Time) (Outcome, error) {
	out, err := Transition(b.state, ev)
	if err != nil {
		return Outcome{}, err
	}
	b.state = out.To
	if out.ReleaseCapacity {
		b.isActive = false
	}
	b.updatedAt = now
	return out, nil
}

func (b *Booking) Approve(now time.Time) (Outcome, error) {
	return b.apply(Event{Kind: EventApprove}, now)
}

func (b *Booking) Reject(reason RejectReason, now time.Time) (Outcome, error) {
	out, err := b.apply(Event{Kind: EventReject}, now)
	if err != nil {
		return Outcome{}, err
	}
	b.rejectReason = &reason
	return out, nil
}

func (b *Booking) InitiatePayment(now time.Time) (Outcome, error) {
	return b.apply(Event{Kind: EventInitiatePayment}, now)
}

// AttachOrder records the gateway order created for the current payment attempt.
func (b *Booking) AttachOrder(order Order, now time.Time) (Outcome, error) {
	if b.order != nil && b.state.PaymentStatus != PaymentInitiated {
		return Outcome{}, ErrOrderAlreadyAttached
	}
	out, err := b.apply(Event{Kind: EventOrderCreated}, now)
	if err != nil {
		return Outcome{}, err
	}
	b.order = &order
	return out, nil
}

func (b *Booking) MarkPaymentProcessing(now time.Time) (Outcome, error) {
	return b.apply(Event{Kind: EventPaymentProcessing}, now)
}

func (b *Booking) ConfirmPayment(paymentID, signature string, now time.Time) (Outcome, error) {
	if paymentID == "" {
		return Outcome{}, ErrPaymentReferenceEmpty
	}
	out, err := b.apply(Event{Kind: EventVerifySuccess}, now)
	if err != nil {
		return Outcome{}, err
	}
	b.paymentID = &paymentID
	if signature != "" {
		b.paymentSignature = &signature
	}
	return out, nil
}

func (b *Booking) FailPayment(maxAttempts int, now time.Time) (Outcome, error) {
	out, err := b.apply(Event{Kind: EventVerifyFail, MaxPaymentAttempts: maxAttempts}, now)
	if err != nil {
		return Outcome{}, err
	}
	if out.To.Status == StatusCancelled {
		reason := CancelPaymentFailed
		b.cancelReason = &reason
	}
	return out, nil
}

func (b *Booking) Complete(now time.Time) (Outcome, error) {
	return b.apply(Event{Kind: EventComplete}, now)
}

func (b *Booking) Cancel(reason CancelReason, now time.Time) (Outcome, error) {
	out, err := b.apply(Event{Kind: EventCancel}, now)
	if err != nil {
		return Outcome{}, err
	}
	b.cancelReason = &reason
	return out, nil
}

func (b *Booking) SettleRefund(now time.Time) (Outcome, error) {
	return b.apply(Event{Kind: EventRefundSettled}, now)
}

// MarkDeleted hides the booking from reads. It never frees capacity, so
// only bookings that no longer hold seats may be deleted.
func (b *Booking) MarkDeleted(now time.Time) error {
	if b.isActive {
		return ErrDeleteActiveBooking
	}
	b.isDeleted = true
	b.updatedAt = now
	return nil
}
