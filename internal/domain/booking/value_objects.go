package booking

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	MaxNotesLength        = 500
	MaxRejectReasonLength = 500
)

var (
	ErrNotesTooLong        = errors.New("notes exceed maximum length")
	ErrRejectReasonEmpty   = errors.New("reject reason is required")
	ErrRejectReasonTooLong = errors.New("reject reason exceeds maximum length")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrInvalidCurrency     = errors.New("currency must be a 3-letter ISO code")
)

// Money is an amount in minor units (paise, cents) tagged with its currency.
type Money struct {
	amount   int64
	currency string
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, ErrNegativeAmount
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return Money{}, ErrInvalidCurrency
		}
	}
	return Money{amount: amount, currency: currency}, nil
}

func (m Money) Amount() int64 {
	return m.amount
}

func (m Money) Currency() string {
	return m.currency
}

func (m Money) Multiply(n int) Money {
	return Money{amount: m.amount * int64(n), currency: m.currency}
}

type Notes struct {
	value string
}

func NewNotes(s string) (Notes, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxNotesLength {
		return Notes{}, ErrNotesTooLong
	}
	return Notes{value: s}, nil
}

func (n Notes) String() string {
	return n.value
}

func (n Notes) IsEmpty() bool {
	return n.value == ""
}

type RejectReason struct {
	value string
}

func NewRejectReason(s string) (RejectReason, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RejectReason{}, ErrRejectReasonEmpty
	}
	if utf8.RuneCountInString(s) > MaxRejectReasonLength {
		return RejectReason{}, ErrRejectReasonTooLong
	}
	return RejectReason{value: s}, nil
}

func (r RejectReason) String() string {
	return r.value
}

// Order is the gateway order currently attached to a booking.
type Order struct {
	ID      string
	Receipt string
	Amount  Money
}

type CancelReason string

const (
	CancelByUser          CancelReason = "user_requested"
	CancelByAcademy       CancelReason = "academy_requested"
	CancelPaymentTimeout  CancelReason = "payment_timeout"
	CancelPaymentFailed   CancelReason = "payment_failed"
	CancelGatewayRejected CancelReason = "gateway_rejected"
)
