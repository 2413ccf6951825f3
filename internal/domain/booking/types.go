package booking

import "errors"

var (
	ErrInvalidStatus        = errors.New("invalid booking status")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
)

type Status string

const (
	StatusRequested      Status = "requested"
	StatusPending        Status = "pending"
	StatusSlotBooked     Status = "slot_booked"
	StatusPaymentPending Status = "payment_pending"
	StatusApproved       Status = "approved"
	StatusRejected       Status = "rejected"
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusCompleted      Status = "completed"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusRequested, StatusPending, StatusSlotBooked, StatusPaymentPending, StatusApproved,
		StatusRejected, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}

// Terminal states never transition again (refund settlement aside).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

func NewStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

type PaymentStatus string

const (
	PaymentNotInitiated PaymentStatus = "not_initiated"
	PaymentInitiated    PaymentStatus = "initiated"
	PaymentPending      PaymentStatus = "pending"
	PaymentProcessing   PaymentStatus = "processing"
	PaymentSuccess      PaymentStatus = "success"
	PaymentFailed       PaymentStatus = "failed"
	PaymentRefunded     PaymentStatus = "refunded"
	PaymentCancelled    PaymentStatus = "cancelled"
)

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentNotInitiated, PaymentInitiated, PaymentPending, PaymentProcessing,
		PaymentSuccess, PaymentFailed, PaymentRefunded, PaymentCancelled:
		return true
	default:
		return false
	}
}

func NewPaymentStatus(s string) (PaymentStatus, error) {
	ps := PaymentStatus(s)
	if !ps.IsValid() {
		return "", ErrInvalidPaymentStatus
	}
	return ps, nil
}

func AllStatuses() []Status {
	return []Status{
		StatusRequested, StatusPending, StatusSlotBooked, StatusPaymentPending, StatusApproved,
		StatusRejected, StatusConfirmed, StatusCancelled, StatusCompleted,
	}
}

func AllPaymentStatuses() []PaymentStatus {
	return []PaymentStatus{
		PaymentNotInitiated, PaymentInitiated, PaymentPending, PaymentProcessing,
		PaymentSuccess, PaymentFailed, PaymentRefunded, PaymentCancelled,
	}
}
