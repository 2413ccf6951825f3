package response

import (
	"academy-booking/internal/usecase/commands"

	"github.com/jinzhu/copier"
)

type OrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrderResponse carries what a checkout widget needs to open the payment.
type CreateOrderResponse struct {
	Booking *BookingResponse `json:"booking"`
	Order   OrderResponse    `json:"order"`
	KeyID   string           `json:"keyId"`
	Reused  bool             `json:"reused"`
}

type VerifyPaymentResponse struct {
	Booking          *BookingResponse `json:"booking"`
	AlreadyProcessed bool             `json:"alreadyProcessed"`
}

type WebhookResponse struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
}

func FromCreateOrderResult(r *commands.CreateOrderResult, keyID string) (*CreateOrderResponse, error) {
	resp := &CreateOrderResponse{
		Booking: FromBooking(r.Booking),
		KeyID:   keyID,
		Reused:  r.Reused,
	}
	if err := copier.Copy(&resp.Order, &r.Order); err != nil {
		return nil, err
	}
	return resp, nil
}

func FromVerifyPaymentResult(r *commands.VerifyPaymentResult) *VerifyPaymentResponse {
	return &VerifyPaymentResponse{
		Booking:          FromBooking(r.Booking),
		AlreadyProcessed: r.AlreadyProcessed,
	}
}

func FromWebhookResult(r *commands.WebhookResult) *WebhookResponse {
	return &WebhookResponse{Event: r.Event, Handled: r.Handled}
}
