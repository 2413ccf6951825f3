//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"academy-booking/internal/domain/user"
	"academy-booking/internal/handler/api"
	"academy-booking/internal/handler/validation"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/commands"
	"academy-booking/internal/usecase/shared"
	"academy-booking/tests/common/builder"
	"academy-booking/tests/common/httptest"
	"academy-booking/tests/common/testutil"
	commandsmock "academy-booking/tests/mock/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type PaymentHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockPaymentCommands
	handler      *api.PaymentHandler
	actor        user.Actor
}

func (s *PaymentHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	validation.Register()
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockPaymentCommands(s.mockCtrl)
	s.handler = api.NewPaymentHandler(s.mockCommands, "rzp_test_key")
	s.actor = user.NewActor(uuid.New(), user.RoleUser)

	auth := actorAuth(&s.actor)
	s.router.POST("/bookings/:id/orders", auth, s.handler.CreateOrder)
	s.router.POST("/payments/verify", auth, s.handler.Verify)
	s.router.POST("/payments/webhook", s.handler.Webhook)
}

func (s *PaymentHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestPaymentHandlerSuite(t *testing.T) {
	suite.Run(t, new(PaymentHandlerTestSuite))
}

// ================================================================================
// TestCreateOrder
// ================================================================================

func (s *PaymentHandlerTestSuite) TestCreateOrder() {
	bk := builder.NewBookingBuilder().WithUserID(s.actor.UserID).AsPaymentPending("order_0001").MustBuildDomain()
	url := "/bookings/" + bk.ID().String() + "/orders"
	result := &commands.CreateOrderResult{
		Booking: bk,
		Order:   shared.ExternalOrder{ID: "order_0001", Amount: 150000, Currency: "INR", Receipt: "bk_1", Status: "created"},
	}

	s.Run("success: returns order and checkout key", func() {
		s.mockCommands.EXPECT().CreateOrder(gomock.Any(), bk.ID(), s.actor).Return(result, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")

		var body struct {
			Booking map[string]any `json:"booking"`
			Order   map[string]any `json:"order"`
			KeyID   string         `json:"keyId"`
			Reused  bool           `json:"reused"`
		}
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("rzp_test_key", body.KeyID)
		s.Equal("order_0001", body.Order["id"])
		s.EqualValues(150000, body.Order["amount"])
		s.Equal("payment_pending", body.Booking["status"])
		s.False(body.Reused)
	})

	s.Run("error: 502 gateway", func() {
		s.mockCommands.EXPECT().CreateOrder(gomock.Any(), bk.ID(), s.actor).
			Return(nil, errs.Mark(errs.Mark(errors.New("503 from gateway"), shared.ErrGatewayUnavailable), commands.ErrGateway))

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")

		httptest.AssertErrorKind(s.T(), rec, http.StatusBadGateway, api.KindGateway, nil)
	})

	s.Run("error: 409 invalid transition", func() {
		s.mockCommands.EXPECT().CreateOrder(gomock.Any(), bk.ID(), s.actor).Return(nil, commands.ErrInvalidTransition)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "not allowed")
	})

	s.Run("error: 409 booking busy", func() {
		s.mockCommands.EXPECT().CreateOrder(gomock.Any(), bk.ID(), s.actor).Return(nil, commands.ErrBookingBusy)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "being modified")
	})
}

// ================================================================================
// TestVerify
// ================================================================================

func (s *PaymentHandlerTestSuite) TestVerify() {
	url := "/payments/verify"
	reqBody := map[string]any{"orderId": "order_0001", "paymentId": "pay_1", "signature": strings.Repeat("a", 64)}
	confirmed := builder.NewBookingBuilder().WithUserID(s.actor.UserID).AsConfirmed("order_0001", "pay_1").MustBuildDomain()

	for _, processed := range []bool{false, true} {
		s.Run("success", func() {
			s.mockCommands.EXPECT().VerifyPayment(gomock.Any(), commands.VerifyPaymentInput{
				OrderID:   "order_0001",
				PaymentID: "pay_1",
				Signature: strings.Repeat("a", 64),
			}).Return(&commands.VerifyPaymentResult{Booking: confirmed, AlreadyProcessed: processed}, nil)

			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

			var body map[string]any
			httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
			s.Equal(processed, body["alreadyProcessed"])
		})
	}

	for _, tc := range []testCaseBooking{
		{name: "missing field: orderId", mutate: testutil.Field("orderId", nil), expectCode: http.StatusBadRequest},
		{name: "missing field: paymentId", mutate: testutil.Field("paymentId", nil), expectCode: http.StatusBadRequest},
		{name: "missing field: signature", mutate: testutil.Field("signature", nil), expectCode: http.StatusBadRequest},
		{name: "signature too long", mutate: testutil.Field("signature", strings.Repeat("a", 129)), expectCode: http.StatusBadRequest},
	} {
		s.Run(tc.name, func() {
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, testutil.DtoMap(s.T(), reqBody, tc.mutate), "bearer-token")
			s.Equal(tc.expectCode, rec.Code)
		})
	}

	s.Run("error: 400 signature mismatch", func() {
		s.mockCommands.EXPECT().VerifyPayment(gomock.Any(), gomock.Any()).Return(nil, commands.ErrSignatureMismatch)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		httptest.AssertErrorKind(s.T(), rec, http.StatusBadRequest, api.KindSignature, nil)
	})

	s.Run("error: 404 unknown order", func() {
		s.mockCommands.EXPECT().VerifyPayment(gomock.Any(), gomock.Any()).Return(nil, commands.ErrBookingNotFound)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Booking not found")
	})
}

// ================================================================================
// TestWebhook
// ================================================================================

func (s *PaymentHandlerTestSuite) TestWebhook() {
	url := "/payments/webhook"
	payload := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_0001"}}}}`)

	s.Run("success: passes the raw body and signature through", func() {
		s.mockCommands.EXPECT().HandleWebhook(gomock.Any(), payload, "abc123").
			Return(&commands.WebhookResult{Event: "payment.captured", Handled: true}, nil)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, payload,
			map[string]string{"X-Razorpay-Signature": "abc123"})

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("payment.captured", body["event"])
		s.Equal(true, body["handled"])
	})

	s.Run("error: 400 missing signature header", func() {
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, payload, nil)
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Missing webhook signature")
	})

	s.Run("error: 400 bad signature", func() {
		s.mockCommands.EXPECT().HandleWebhook(gomock.Any(), payload, "forged").Return(nil, commands.ErrSignatureMismatch)
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, payload,
			map[string]string{"X-Razorpay-Signature": "forged"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("error: 500 so the gateway redelivers", func() {
		s.mockCommands.EXPECT().HandleWebhook(gomock.Any(), payload, "abc123").
			Return(nil, errs.Mark(errors.New("deadlock detected"), commands.ErrDatabaseOperationFailed))
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, payload,
			map[string]string{"X-Razorpay-Signature": "abc123"})
		s.Equal(http.StatusInternalServerError, rec.Code)
	})
}
