//go:build unit

package booking_test

import (
	"testing"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statePair struct {
	status  booking.Status
	payment booking.PaymentStatus
}

type edge struct {
	from  statePair
	event booking.EventKind
}

var (
	requested  = statePair{booking.StatusRequested, booking.PaymentNotInitiated}
	slotBooked = statePair{booking.StatusSlotBooked, booking.PaymentNotInitiated}
	approved   = statePair{booking.StatusApproved, booking.PaymentNotInitiated}
	ppInit     = statePair{booking.StatusPaymentPending, booking.PaymentInitiated}
	ppPending  = statePair{booking.StatusPaymentPending, booking.PaymentPending}
	ppProc     = statePair{booking.StatusPaymentPending, booking.PaymentProcessing}
	ppFailed   = statePair{booking.StatusPaymentPending, booking.PaymentFailed}
	confirmed  = statePair{booking.StatusConfirmed, booking.PaymentSuccess}
	completed  = statePair{booking.StatusCompleted, booking.PaymentSuccess}
	rejected   = statePair{booking.StatusRejected, booking.PaymentNotInitiated}
	cancelled  = statePair{booking.StatusCancelled, booking.PaymentCancelled}
	refunded   = statePair{booking.StatusCancelled, booking.PaymentRefunded}
)

// Every edge not listed here must be refused.
var allowedEdges = map[edge]statePair{
	{slotBooked, booking.EventApprove}: approved,
	{slotBooked, booking.EventReject}:  rejected,

	{requested, booking.EventInitiatePayment}: ppInit,
	{approved, booking.EventInitiatePayment}:  ppInit,
	{ppInit, booking.EventInitiatePayment}:    ppInit,

	{ppInit, booking.EventOrderCreated}: ppPending,

	{ppPending, booking.EventPaymentProcessing}: ppProc,
	{ppFailed, booking.EventPaymentProcessing}:  ppProc,

	{ppPending, booking.EventVerifySuccess}: confirmed,
	{ppProc, booking.EventVerifySuccess}:    confirmed,
	{ppFailed, booking.EventVerifySuccess}:  confirmed,

	{ppPending, booking.EventVerifyFail}: ppFailed,
	{ppProc, booking.EventVerifyFail}:    ppFailed,
	{ppFailed, booking.EventVerifyFail}:  ppFailed,

	{confirmed, booking.EventComplete}: completed,

	{requested, booking.EventCancel}:  cancelled,
	{slotBooked, booking.EventCancel}: cancelled,
	{approved, booking.EventCancel}:   cancelled,
	{ppInit, booking.EventCancel}:     cancelled,
	{ppPending, booking.EventCancel}:  cancelled,
	{ppProc, booking.EventCancel}:     cancelled,
	{ppFailed, booking.EventCancel}:   cancelled,
	{confirmed, booking.EventCancel}:  cancelled,
}

func TestReachableStates(t *testing.T) {
	states := booking.ReachableStates()
	require.Len(t, states, 12)

	for _, s := range states {
		assert.True(t, booking.IsReachable(s.Status, s.PaymentStatus), "%s/%s", s.Status, s.PaymentStatus)
	}

	assert.False(t, booking.IsReachable(booking.StatusPending, booking.PaymentNotInitiated), "pending is never produced")
	assert.False(t, booking.IsReachable(booking.StatusConfirmed, booking.PaymentPending))
	assert.False(t, booking.IsReachable(booking.StatusRequested, booking.PaymentSuccess))
}

func TestInitialState(t *testing.T) {
	assert.Equal(t, booking.StatusSlotBooked, booking.InitialState(true).Status)
	assert.Equal(t, booking.StatusRequested, booking.InitialState(false).Status)
	assert.Equal(t, booking.PaymentNotInitiated, booking.InitialState(true).PaymentStatus)
	assert.Equal(t, booking.PaymentNotInitiated, booking.InitialState(false).PaymentStatus)
}

func TestTransition_Exhaustive(t *testing.T) {
	for _, from := range booking.ReachableStates() {
		for _, kind := range booking.AllEventKinds() {
			from, kind := from, kind
			key := edge{statePair{from.Status, from.PaymentStatus}, kind}
			t.Run(string(from.Status)+"/"+string(from.PaymentStatus)+"+"+string(kind), func(t *testing.T) {
				out, err := booking.Transition(from, booking.Event{Kind: kind})

				want, allowed := allowedEdges[key]
				if !allowed {
					require.Error(t, err)
					assert.True(t, errs.Is(err, booking.ErrInvalidTransition))
					var trErr *booking.TransitionError
					require.True(t, errs.As(err, &trErr))
					assert.Equal(t, from, trErr.From)
					assert.Equal(t, kind, trErr.Event)
					return
				}

				require.NoError(t, err)
				assert.Equal(t, want.status, out.To.Status)
				assert.Equal(t, want.payment, out.To.PaymentStatus)
				assert.True(t, booking.IsReachable(out.To.Status, out.To.PaymentStatus))
				assert.Equal(t, from, out.From)
				assert.Equal(t, kind, out.Event)

				releases := kind == booking.EventCancel || kind == booking.EventReject
				assert.Equal(t, releases, out.ReleaseCapacity)
			})
		}
	}
}

func TestTransition_UnreachableSource(t *testing.T) {
	from := booking.State{Status: booking.StatusPending, PaymentStatus: booking.PaymentNotInitiated}

	_, err := booking.Transition(from, booking.Event{Kind: booking.EventCancel})

	require.Error(t, err)
	assert.True(t, errs.Is(err, booking.ErrInvalidTransition))
}

func TestTransition_VerifyFail(t *testing.T) {
	pending := booking.State{Status: booking.StatusPaymentPending, PaymentStatus: booking.PaymentPending}

	t.Run("counts attempts below the limit", func(t *testing.T) {
		out, err := booking.Transition(pending, booking.Event{Kind: booking.EventVerifyFail, MaxPaymentAttempts: 3})
		require.NoError(t, err)
		assert.Equal(t, 1, out.To.PaymentAttempts)
		assert.Equal(t, booking.PaymentFailed, out.To.PaymentStatus)
		assert.False(t, out.ReleaseCapacity)

		out, err = booking.Transition(out.To, booking.Event{Kind: booking.EventVerifyFail, MaxPaymentAttempts: 3})
		require.NoError(t, err)
		assert.Equal(t, 2, out.To.PaymentAttempts)
		assert.Equal(t, booking.StatusPaymentPending, out.To.Status)
	})

	t.Run("cancels and releases at the limit", func(t *testing.T) {
		from := pending
		from.PaymentStatus = booking.PaymentFailed
		from.PaymentAttempts = 2

		out, err := booking.Transition(from, booking.Event{Kind: booking.EventVerifyFail, MaxPaymentAttempts: 3})

		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, out.To.Status)
		assert.Equal(t, booking.PaymentCancelled, out.To.PaymentStatus)
		assert.Equal(t, 3, out.To.PaymentAttempts)
		assert.True(t, out.ReleaseCapacity)
	})

	t.Run("zero limit never cancels", func(t *testing.T) {
		from := pending
		from.PaymentAttempts = 50

		out, err := booking.Transition(from, booking.Event{Kind: booking.EventVerifyFail})

		require.NoError(t, err)
		assert.Equal(t, booking.PaymentFailed, out.To.PaymentStatus)
		assert.False(t, out.ReleaseCapacity)
	})
}

func TestTransition_CancelAndRefund(t *testing.T) {
	t.Run("paid booking is flagged for refund", func(t *testing.T) {
		from := booking.State{Status: booking.StatusConfirmed, PaymentStatus: booking.PaymentSuccess}

		out, err := booking.Transition(from, booking.Event{Kind: booking.EventCancel})

		require.NoError(t, err)
		assert.True(t, out.To.RefundRequested)
	})

	t.Run("unpaid booking is not flagged", func(t *testing.T) {
		from := booking.State{Status: booking.StatusPaymentPending, PaymentStatus: booking.PaymentPending}

		out, err := booking.Transition(from, booking.Event{Kind: booking.EventCancel})

		require.NoError(t, err)
		assert.False(t, out.To.RefundRequested)
	})

	t.Run("refund settles only when requested", func(t *testing.T) {
		flagged := booking.State{Status: booking.StatusCancelled, PaymentStatus: booking.PaymentCancelled, RefundRequested: true}

		out, err := booking.Transition(flagged, booking.Event{Kind: booking.EventRefundSettled})

		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, out.To.Status)
		assert.Equal(t, booking.PaymentRefunded, out.To.PaymentStatus)
		assert.False(t, out.ReleaseCapacity)

		_, err = booking.Transition(out.To, booking.Event{Kind: booking.EventRefundSettled})
		assert.True(t, errs.Is(err, booking.ErrInvalidTransition))
	})
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, s := range booking.ReachableStates() {
		if !s.Status.IsTerminal() {
			continue
		}
		for _, kind := range booking.AllEventKinds() {
			if kind == booking.EventRefundSettled {
				continue
			}
			_, err := booking.Transition(s, booking.Event{Kind: kind})
			assert.Error(t, err, "%s/%s accepted %s", s.Status, s.PaymentStatus, kind)
		}
	}
}
