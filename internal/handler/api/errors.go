package api

import (
	"log/slog"
	"net/http"

	"academy-booking/internal/domain/batch"
	"academy-booking/internal/domain/booking"
	"academy-booking/internal/handler/httperr"
	"academy-booking/internal/handler/validation"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/commands"
	"academy-booking/internal/usecase/queries"
	"academy-booking/internal/usecase/shared"

	"github.com/gin-gonic/gin"
)

// Stable error kinds returned in error.kind.
const (
	KindValidation        = "validation_error"
	KindCapacityExceeded  = "capacity_exceeded"
	KindCapacityBusy      = "capacity_busy"
	KindInvalidTransition = "invalid_transition"
	KindSignature         = "signature_error"
	KindGateway           = "gateway_error"
	KindNotCancellable    = "not_cancellable"
	KindNotEligible       = "not_eligible"
	KindForbidden         = "forbidden"
	KindNotFound          = "not_found"
	KindConflict          = "conflict"
	KindBadRequest        = "bad_request"
	KindUnauthorized      = "unauthorized"
	KindInternal          = "internal"
)

type errorMapping struct {
	target error
	status int
	kind   string
	msg    string
}

// Order matters: the first matching sentinel wins.
var errorMappings = []errorMapping{
	{commands.ErrSignatureMismatch, http.StatusBadRequest, KindSignature, "Payment signature verification failed"},
	{commands.ErrGateway, http.StatusBadGateway, KindGateway, "Payment gateway error"},
	{commands.ErrNotCancellable, http.StatusConflict, KindNotCancellable, "Booking cannot be cancelled"},
	{commands.ErrNotEligible, http.StatusConflict, KindNotEligible, "Booking is not awaiting a decision"},
	{commands.ErrInvalidTransition, http.StatusConflict, KindInvalidTransition, "Operation not allowed in the booking's current state"},
	{commands.ErrCapacityBusy, http.StatusServiceUnavailable, KindCapacityBusy, "Batch is busy, please retry"},
	{commands.ErrBookingBusy, http.StatusConflict, KindConflict, "Booking is being modified, please retry"},
	{commands.ErrBookingStillActive, http.StatusConflict, KindConflict, "Only inactive bookings can be deleted"},
	{commands.ErrForbidden, http.StatusForbidden, KindForbidden, "Forbidden"},
	{queries.ErrAccessDenied, http.StatusForbidden, KindForbidden, "Forbidden"},
	{commands.ErrBookingNotFound, http.StatusNotFound, KindNotFound, "Booking not found"},
	{queries.ErrBookingNotFound, http.StatusNotFound, KindNotFound, "Booking not found"},
	{commands.ErrBatchNotFound, http.StatusNotFound, KindNotFound, "Batch not found"},
	{queries.ErrBatchNotFound, http.StatusNotFound, KindNotFound, "Batch not found"},
	{queries.ErrCenterRequired, http.StatusBadRequest, KindBadRequest, "centerId is required for academy accounts"},
	{commands.ErrValidation, http.StatusBadRequest, KindValidation, "Invalid request"},
}

// respondError maps usecase errors onto the HTTP error contract.
func respondError(c *gin.Context, err error) {
	var capErr *shared.CapacityError
	if errs.As(err, &capErr) {
		httperr.AbortWithKind(c, http.StatusConflict, err, KindCapacityExceeded, "Not enough free seats in this batch", gin.H{
			"batchId":   capErr.BatchID,
			"requested": capErr.Requested,
			"freeSeats": capErr.Free,
		})
		return
	}

	var valErr *batch.ValidationError
	if errs.As(err, &valErr) {
		httperr.AbortWithKind(c, http.StatusUnprocessableEntity, err, KindValidation, "Validation failed", gin.H{
			"violations": valErr.Violations,
		})
		return
	}

	for _, m := range errorMappings {
		if !errs.Is(err, m.target) {
			continue
		}
		var detail any
		var trErr *booking.TransitionError
		if m.kind == KindInvalidTransition || m.kind == KindNotCancellable {
			if errs.As(err, &trErr) {
				detail = gin.H{
					"status":        trErr.From.Status,
					"paymentStatus": trErr.From.PaymentStatus,
					"event":         trErr.Event,
				}
			}
		}
		httperr.AbortWithKind(c, m.status, err, m.kind, m.msg, detail)
		return
	}

	slog.Error("unhandled request error",
		"path", c.Request.URL.Path,
		"error", err.Error(),
		"stack", errs.ExtractStackLines(err, 12))
	httperr.AbortWithKind(c, http.StatusInternalServerError, err, KindInternal, "Internal server error", nil)
}

func respondBindError(c *gin.Context, err error) {
	var detail any
	if fields := validation.FieldErrors(err); len(fields) > 0 {
		detail = gin.H{"fields": fields}
	}
	httperr.AbortWithKind(c, http.StatusBadRequest, err, KindBadRequest, "Invalid request", detail)
}

func respondUnauthenticated(c *gin.Context) {
	httperr.AbortWithKind(c, http.StatusUnauthorized, errMissingActor, KindUnauthorized, "Unauthorized", nil)
}
