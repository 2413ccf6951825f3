package request

type VerifyPaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required,max=64"`
	PaymentID string `json:"paymentId" binding:"required,max=64"`
	Signature string `json:"signature" binding:"required,max=128"`
}
