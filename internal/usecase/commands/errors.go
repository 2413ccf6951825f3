package commands

import (
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"
)

var (
	ErrBookingNotFound         = errs.New("booking not found")
	ErrBatchNotFound           = errs.New("batch not found")
	ErrValidation              = errs.New("validation failed")
	ErrCapacityExceeded        = shared.ErrCapacityExceeded
	ErrCapacityBusy            = errs.New("capacity ledger busy")
	ErrInvalidTransition       = errs.New("invalid transition")
	ErrSignatureMismatch       = errs.New("payment signature mismatch")
	ErrGateway                 = errs.New("payment gateway error")
	ErrNotCancellable          = errs.New("booking not cancellable")
	ErrNotEligible             = errs.New("booking not eligible for decision")
	ErrForbidden               = errs.New("forbidden")
	ErrBookingBusy             = errs.New("booking is being modified")
	ErrBookingStillActive      = errs.New("booking still holds capacity")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)
