package commands

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"log/slog"
	"strings"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/domain/user"
	"academy-booking/internal/infra"
	"academy-booking/internal/pkg/clock"
	"academy-booking/internal/pkg/config"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const orderStatusCreated = "created"

type CreateOrderResult struct {
	Booking *booking.Booking
	Order   shared.ExternalOrder
	// Reused is set when the booking already had an open order and the gateway was not called.
	Reused bool
}

type VerifyPaymentInput struct {
	OrderID   string
	PaymentID string
	Signature string
}

type VerifyPaymentResult struct {
	Booking          *booking.Booking
	AlreadyProcessed bool
}

type WebhookResult struct {
	Event   string
	Handled bool
}

type PaymentCommands interface {
	CreateOrder(ctx context.Context, bookingID uuid.UUID, actor user.Actor) (*CreateOrderResult, error)
	VerifyPayment(ctx context.Context, in VerifyPaymentInput) (*VerifyPaymentResult, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error)
}

type paymentCommandsImpl struct {
	bookingMutator
	gateway shared.PaymentGateway
	cfg     config.BookingConfig
	logger  *slog.Logger
}

func NewPaymentCommands(
	uow shared.UnitOfWork,
	locker shared.BookingLocker,
	gateway shared.PaymentGateway,
	authorizer shared.CenterAuthorizer,
	cfg config.Config,
	clock clock.Clock,
	logger *slog.Logger,
) PaymentCommands {
	return &paymentCommandsImpl{
		bookingMutator: bookingMutator{
			uow:        uow,
			locker:     locker,
			authorizer: authorizer,
			clock:      clock,
		},
		gateway: gateway,
		cfg:     cfg.Booking,
		logger:  logger,
	}
}

func (p *paymentCommandsImpl) CreateOrder(ctx context.Context, bookingID uuid.UUID, actor user.Actor) (*CreateOrderResult, error) {
	unlock, err := p.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var existing *booking.Order
	bk, err := p.applyLocked(ctx, bookingID, "", func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error) {
		if !b.IsOwnedBy(actor.UserID) && !actor.IsPrivileged() {
			return booking.Outcome{}, ErrForbidden
		}
		if b.HasOpenOrder() {
			existing = b.Order()
			return booking.Outcome{}, nil
		}
		out, err := b.InitiatePayment(p.clock.Now())
		return out, markTransition(err, ErrInvalidTransition)
	})
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return &CreateOrderResult{
			Booking: bk,
			Order: shared.ExternalOrder{
				ID:       existing.ID,
				Amount:   existing.Amount.Amount(),
				Currency: existing.Amount.Currency(),
				Receipt:  existing.Receipt,
				Status:   orderStatusCreated,
			},
			Reused: true,
		}, nil
	}

	// No transaction is open while the gateway is called. The call is bounded
	// so the booking lock is still ours when the order is attached.
	receipt := receiptFor(bk.ID())
	gatewayCtx, cancel := context.WithTimeout(ctx, p.cfg.OrderTimeout)
	order, err := p.gateway.CreateOrder(gatewayCtx, bk.Amount().Amount(), bk.Amount().Currency(), receipt)
	cancel()
	if err != nil {
		return nil, p.handleGatewayFailure(ctx, bk, err)
	}

	bk, err = p.applyLocked(ctx, bookingID, TopicBookingPaymentInitiated, func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error) {
		amount, err := booking.NewMoney(order.Amount, order.Currency)
		if err != nil {
			return booking.Outcome{}, errs.Wrap(err, "gateway order amount")
		}
		out, err := b.AttachOrder(booking.Order{ID: order.ID, Receipt: order.Receipt, Amount: amount}, p.clock.Now())
		if errs.Is(err, booking.ErrOrderAlreadyAttached) {
			return booking.Outcome{}, errs.Mark(err, ErrInvalidTransition)
		}
		return out, markTransition(err, ErrInvalidTransition)
	})
	if err != nil {
		return nil, err
	}

	p.logger.InfoContext(ctx, "payment order created",
		"booking_id", bk.ID(),
		"order_id", order.ID,
		"amount", order.Amount,
		"currency", order.Currency)
	return &CreateOrderResult{Booking: bk, Order: *order}, nil
}

func (p *paymentCommandsImpl) handleGatewayFailure(ctx context.Context, bk *booking.Booking, cause error) error {
	if !errs.Is(cause, shared.ErrGatewayRejected) {
		// The hold stays in place; the sweeper releases it once the payment window lapses.
		p.logger.WarnContext(ctx, "payment gateway unavailable",
			"booking_id", bk.ID(),
			"error", cause.Error())
		return errs.Mark(cause, ErrGateway)
	}

	p.logger.WarnContext(ctx, "payment gateway rejected order, cancelling booking",
		"booking_id", bk.ID(),
		"error", cause.Error())
	_, err := p.applyLocked(ctx, bk.ID(), TopicBookingCancelled, func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error) {
		return b.Cancel(booking.CancelGatewayRejected, p.clock.Now())
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to cancel booking after gateway rejection",
			"booking_id", bk.ID(),
			"error", err.Error())
	}
	return errs.Mark(cause, ErrGateway)
}

func (p *paymentCommandsImpl) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (*VerifyPaymentResult, error) {
	expected := p.gateway.ComputeSignature(in.OrderID, in.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(in.Signature))) {
		p.logger.WarnContext(ctx, "payment signature mismatch",
			"order_id", in.OrderID,
			"payment_id", in.PaymentID)
		return nil, ErrSignatureMismatch
	}

	bk, processed, err := p.confirm(ctx, in.OrderID, in.PaymentID, in.Signature)
	if err != nil {
		return nil, err
	}
	return &VerifyPaymentResult{Booking: bk, AlreadyProcessed: processed}, nil
}

// confirm applies verify_success at most once per order. The second return
// value reports a duplicate delivery that changed nothing.
func (p *paymentCommandsImpl) confirm(ctx context.Context, orderID, paymentID, signature string) (*booking.Booking, bool, error) {
	bookingID, err := p.bookingIDForOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}

	duplicate := false
	bk, err := p.apply(ctx, bookingID, TopicBookingConfirmed, func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error) {
		now := p.clock.Now()
		if b.Status() == booking.StatusConfirmed || b.Status() == booking.StatusCompleted {
			duplicate = true
			return booking.Outcome{}, nil
		}
		first, err := tx.PaymentEvents().MarkProcessed(ctx, "captured:"+orderID, orderID, paymentID, now)
		if err != nil {
			return booking.Outcome{}, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !first {
			duplicate = true
			return booking.Outcome{}, nil
		}
		out, err := b.ConfirmPayment(paymentID, signature, now)
		return out, markTransition(err, ErrInvalidTransition)
	})
	if err != nil {
		return nil, false, err
	}

	if duplicate {
		p.logger.InfoContext(ctx, "payment already processed",
			"booking_id", bookingID,
			"order_id", orderID)
	} else {
		p.logger.InfoContext(ctx, "payment confirmed",
			"booking_id", bookingID,
			"order_id", orderID,
			"payment_id", paymentID)
	}
	return bk, duplicate, nil
}

func (p *paymentCommandsImpl) bookingIDForOrder(ctx context.Context, orderID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		found, err := tx.Bookings().FindIDByOrderID(ctx, orderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, ErrBookingNotFound)
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		id = found
		return nil
	})
	return id, err
}

const (
	webhookPaymentAuthorized = "payment.authorized"
	webhookPaymentCaptured   = "payment.captured"
	webhookPaymentFailed     = "payment.failed"
	webhookRefundProcessed   = "refund.processed"
)

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

func (p *paymentCommandsImpl) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	expected := p.gateway.ComputeWebhookSignature(body)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		p.logger.WarnContext(ctx, "webhook signature mismatch")
		return nil, ErrSignatureMismatch
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "decode webhook"), ErrValidation)
	}
	payment := env.Payload.Payment.Entity
	result := &WebhookResult{Event: env.Event}

	var err error
	switch env.Event {
	case webhookPaymentCaptured:
		_, _, err = p.confirm(ctx, payment.OrderID, payment.ID, "")
	case webhookPaymentFailed:
		err = p.applyPaymentEvent(ctx, payment.OrderID, "failed:"+payment.ID, payment.ID, TopicBookingPaymentFailed,
			func(b *booking.Booking) (booking.Outcome, error) {
				return b.FailPayment(p.cfg.MaxPaymentAttempts, p.clock.Now())
			})
	case webhookPaymentAuthorized:
		err = p.applyPaymentEvent(ctx, payment.OrderID, "authorized:"+payment.ID, payment.ID, "",
			func(b *booking.Booking) (booking.Outcome, error) {
				return b.MarkPaymentProcessing(p.clock.Now())
			})
	case webhookRefundProcessed:
		refund := env.Payload.Refund.Entity
		err = p.applyPaymentEvent(ctx, payment.OrderID, "refund:"+refund.ID, refund.PaymentID, TopicBookingRefunded,
			func(b *booking.Booking) (booking.Outcome, error) {
				return b.SettleRefund(p.clock.Now())
			})
	default:
		p.logger.DebugContext(ctx, "ignoring webhook event", "event", env.Event)
		return result, nil
	}

	if err != nil {
		// The gateway redelivers until it sees a 2xx; a transition it can never
		// make succeed is acknowledged instead of retried forever.
		if errs.Is(err, ErrInvalidTransition) || errs.Is(err, ErrBookingNotFound) {
			p.logger.WarnContext(ctx, "webhook event not applicable",
				"event", env.Event,
				"order_id", payment.OrderID,
				"error", err.Error())
			return result, nil
		}
		return nil, err
	}
	result.Handled = true
	return result, nil
}

func (p *paymentCommandsImpl) applyPaymentEvent(
	ctx context.Context,
	orderID, eventKey, paymentID, topic string,
	fn func(b *booking.Booking) (booking.Outcome, error),
) error {
	bookingID, err := p.bookingIDForOrder(ctx, orderID)
	if err != nil {
		return err
	}
	bk, err := p.apply(ctx, bookingID, topic, func(ctx context.Context, tx shared.Tx, b *booking.Booking) (booking.Outcome, error) {
		first, err := tx.PaymentEvents().MarkProcessed(ctx, eventKey, orderID, paymentID, p.clock.Now())
		if err != nil {
			return booking.Outcome{}, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !first {
			return booking.Outcome{}, nil
		}
		out, err := fn(b)
		return out, markTransition(err, ErrInvalidTransition)
	})
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "payment event applied",
		"booking_id", bk.ID(),
		"event_key", eventKey,
		"status", bk.Status(),
		"payment_status", bk.PaymentStatus())
	return nil
}

func receiptFor(bookingID uuid.UUID) string {
	return "bk_" + strings.ReplaceAll(bookingID.String(), "-", "")[:32]
}
