package api

import (
	"errors"
	"io"
	"net/http"

	reqdto "academy-booking/internal/handler/dto/request"
	resdto "academy-booking/internal/handler/dto/response"
	"academy-booking/internal/handler/httperr"
	"academy-booking/internal/handler/middleware"
	"academy-booking/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const (
	webhookSignatureHeader = "X-Razorpay-Signature"
	maxWebhookBodyBytes    = 1 << 20
)

var errMissingSignature = errors.New("webhook signature header missing")

type PaymentHandler struct {
	cmds  commands.PaymentCommands
	keyID string
}

func NewPaymentHandler(cmds commands.PaymentCommands, keyID string) *PaymentHandler {
	return &PaymentHandler{cmds: cmds, keyID: keyID}
}

// @Summary Create payment order
// @Description Moves the booking to payment_pending and opens a gateway order. An open order is returned again instead of creating a second one.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.CreateOrderResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 502 {object} httperr.Response
// @Router /bookings/{id}/orders [post]
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.cmds.CreateOrder(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := resdto.FromCreateOrderResult(result, h.keyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Verify payment
// @Description Confirms a booking from the checkout callback. A repeated callback for a confirmed booking returns 200 with alreadyProcessed set.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.VerifyPaymentRequest true "Checkout callback"
// @Success 200 {object} resdto.VerifyPaymentResponse
// @Failure 400 {object} httperr.Response "signature_error"
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /payments/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req reqdto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.cmds.VerifyPayment(c.Request.Context(), commands.VerifyPaymentInput{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromVerifyPaymentResult(result))
}

// @Summary Payment gateway webhook
// @Description Authenticated by the HMAC signature header, not by a bearer token.
// @Tags payments
// @Accept json
// @Produce json
// @Param X-Razorpay-Signature header string true "HMAC-SHA256 of the raw body"
// @Success 200 {object} resdto.WebhookResponse
// @Failure 400 {object} httperr.Response
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	signature := c.GetHeader(webhookSignatureHeader)
	if signature == "" {
		httperr.AbortWithKind(c, http.StatusBadRequest, errMissingSignature, KindSignature, "Missing webhook signature", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		httperr.AbortWithKind(c, http.StatusBadRequest, err, KindBadRequest, "Invalid request body", nil)
		return
	}

	result, err := h.cmds.HandleWebhook(c.Request.Context(), body, signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromWebhookResult(result))
}
