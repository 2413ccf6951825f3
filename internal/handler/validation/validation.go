package validation

import (
	"reflect"
	"strings"
	"sync"

	"academy-booking/internal/domain/booking"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// Register installs the custom binding tags on gin's validator. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("notblank", notBlank)
		_ = v.RegisterValidation("booking_status", bookingStatus)
		_ = v.RegisterValidation("payment_status", paymentStatus)
	})
}

// fieldName reports fields by their wire name so errors match the request body or query.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func bookingStatus(fl validator.FieldLevel) bool {
	return booking.Status(fl.Field().String()).IsValid()
}

func paymentStatus(fl validator.FieldLevel) bool {
	return booking.PaymentStatus(fl.Field().String()).IsValid()
}

// FieldErrors flattens binding errors into field/rule pairs for the response detail.
func FieldErrors(err error) []FieldError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}
