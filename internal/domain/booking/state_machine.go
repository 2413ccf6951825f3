package booking

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid booking transition")

type EventKind string

const (
	EventReserve           EventKind = "reserve"
	EventApprove           EventKind = "approve"
	EventReject            EventKind = "reject"
	EventInitiatePayment   EventKind = "initiate_payment"
	EventOrderCreated      EventKind = "order_created"
	EventPaymentProcessing EventKind = "payment_processing"
	EventVerifySuccess     EventKind = "verify_success"
	EventVerifyFail        EventKind = "verify_fail"
	EventComplete          EventKind = "complete"
	EventCancel            EventKind = "cancel"
	EventRefundSettled     EventKind = "refund_settled"
)

func AllEventKinds() []EventKind {
	return []EventKind{
		EventReserve, EventApprove, EventReject, EventInitiatePayment, EventOrderCreated,
		EventPaymentProcessing, EventVerifySuccess, EventVerifyFail, EventComplete,
		EventCancel, EventRefundSettled,
	}
}

type Event struct {
	Kind EventKind
	// MaxPaymentAttempts bounds verify_fail retries; zero means unbounded.
	MaxPaymentAttempts int
}

// State is a node of the machine. Only pairs listed in reachable are valid.
type State struct {
	Status          Status
	PaymentStatus   PaymentStatus
	PaymentAttempts int
	RefundRequested bool
}

type Outcome struct {
	From            State
	To              State
	Event           EventKind
	ReleaseCapacity bool
}

type TransitionError struct {
	From  State
	Event EventKind
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot apply %q to booking in %s/%s", e.Event, e.From.Status, e.From.PaymentStatus)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type pair struct {
	status  Status
	payment PaymentStatus
}

var reachable = map[pair]struct{}{
	{StatusRequested, PaymentNotInitiated}:    {},
	{StatusSlotBooked, PaymentNotInitiated}:   {},
	{StatusApproved, PaymentNotInitiated}:     {},
	{StatusPaymentPending, PaymentInitiated}:  {},
	{StatusPaymentPending, PaymentPending}:    {},
	{StatusPaymentPending, PaymentProcessing}: {},
	{StatusPaymentPending, PaymentFailed}:     {},
	{StatusConfirmed, PaymentSuccess}:         {},
	{StatusCompleted, PaymentSuccess}:         {},
	{StatusRejected, PaymentNotInitiated}:     {},
	{StatusCancelled, PaymentCancelled}:       {},
	{StatusCancelled, PaymentRefunded}:        {},
}

func IsReachable(status Status, payment PaymentStatus) bool {
	_, ok := reachable[pair{status, payment}]
	return ok
}

func ReachableStates() []State {
	states := make([]State, 0, len(reachable))
	for _, s := range AllStatuses() {
		for _, p := range AllPaymentStatuses() {
			if IsReachable(s, p) {
				states = append(states, State{Status: s, PaymentStatus: p})
			}
		}
	}
	return states
}

// InitialState is the target of the reserve event.
func InitialState(requiresApproval bool) State {
	if requiresApproval {
		return State{Status: StatusSlotBooked, PaymentStatus: PaymentNotInitiated}
	}
	return State{Status: StatusRequested, PaymentStatus: PaymentNotInitiated}
}

// Transition computes the next state for an event without side effects.
// Capacity release is reported through the outcome and left to the caller.
func Transition(from State, ev Event) (Outcome, error) {
	if !IsReachable(from.Status, from.PaymentStatus) {
		return Outcome{}, &TransitionError{From: from, Event: ev.Kind}
	}

	out := Outcome{From: from, To: from, Event: ev.Kind}
	invalid := func() (Outcome, error) {
		return Outcome{}, &TransitionError{From: from, Event: ev.Kind}
	}

	switch ev.Kind {
	case EventApprove:
		if from.Status != StatusSlotBooked {
			return invalid()
		}
		out.To.Status = StatusApproved

	case EventReject:
		if from.Status != StatusSlotBooked {
			return invalid()
		}
		out.To.Status = StatusRejected
		out.ReleaseCapacity = true

	case EventInitiatePayment:
		switch {
		case from.Status == StatusRequested, from.Status == StatusApproved:
		case from.Status == StatusPaymentPending && from.PaymentStatus == PaymentInitiated:
		default:
			return invalid()
		}
		out.To.Status = StatusPaymentPending
		out.To.PaymentStatus = PaymentInitiated

	case EventOrderCreated:
		if from.Status != StatusPaymentPending || from.PaymentStatus != PaymentInitiated {
			return invalid()
		}
		out.To.PaymentStatus = PaymentPending

	case EventPaymentProcessing:
		if from.Status != StatusPaymentPending ||
			(from.PaymentStatus != PaymentPending && from.PaymentStatus != PaymentFailed) {
			return invalid()
		}
		out.To.PaymentStatus = PaymentProcessing

	case EventVerifySuccess:
		if !awaitingSettlement(from) {
			return invalid()
		}
		out.To.Status = StatusConfirmed
		out.To.PaymentStatus = PaymentSuccess

	case EventVerifyFail:
		if !awaitingSettlement(from) {
			return invalid()
		}
		out.To.PaymentAttempts = from.PaymentAttempts + 1
		if ev.MaxPaymentAttempts > 0 && out.To.PaymentAttempts >= ev.MaxPaymentAttempts {
			out.To.Status = StatusCancelled
			out.To.PaymentStatus = PaymentCancelled
			out.ReleaseCapacity = true
		} else {
			out.To.PaymentStatus = PaymentFailed
		}

	case EventComplete:
		if from.Status != StatusConfirmed {
			return invalid()
		}
		out.To.Status = StatusCompleted

	case EventCancel:
		if from.Status.IsTerminal() {
			return invalid()
		}
		out.To.Status = StatusCancelled
		out.To.PaymentStatus = PaymentCancelled
		out.To.RefundRequested = from.PaymentStatus == PaymentSuccess
		out.ReleaseCapacity = true

	case EventRefundSettled:
		if from.Status != StatusCancelled || from.PaymentStatus != PaymentCancelled || !from.RefundRequested {
			return invalid()
		}
		out.To.PaymentStatus = PaymentRefunded

	default:
		// reserve has no source state; bookings start from InitialState.
		return invalid()
	}

	return out, nil
}

func awaitingSettlement(s State) bool {
	if s.Status != StatusPaymentPending {
		return false
	}
	switch s.PaymentStatus {
	case PaymentPending, PaymentProcessing, PaymentFailed:
		return true
	default:
		return false
	}
}
