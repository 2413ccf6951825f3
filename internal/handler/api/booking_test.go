//go:build unit

package api_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"academy-booking/internal/domain/batch"
	"academy-booking/internal/domain/booking"
	"academy-booking/internal/domain/user"
	"academy-booking/internal/handler/api"
	"academy-booking/internal/handler/validation"
	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/commands"
	"academy-booking/internal/usecase/queries"
	"academy-booking/internal/usecase/shared"
	"academy-booking/tests/common/builder"
	"academy-booking/tests/common/httptest"
	"academy-booking/tests/common/testutil"
	commandsmock "academy-booking/tests/mock/commands"
	queriesmock "academy-booking/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	} `json:"error"`
	Detail map[string]any `json:"detail"`
}

// actorAuth stands in for the JWT middleware.
func actorAuth(actor *user.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Unauthorized"}})
			return
		}
		c.Set("user_id", actor.UserID)
		c.Set("user_role", actor.Role)
		c.Next()
	}
}

type BookingHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCommands *commandsmock.MockBookingCommands
	mockQueries  *queriesmock.MockBookingQueries
	handler      *api.BookingHandler
	actor        user.Actor
}

func (s *BookingHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	validation.Register()
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCommands = commandsmock.NewMockBookingCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockBookingQueries(s.mockCtrl)
	s.handler = api.NewBookingHandler(s.mockCommands, s.mockQueries)
	s.actor = user.NewActor(uuid.New(), user.RoleUser)

	auth := actorAuth(&s.actor)
	s.router.POST("/bookings", auth, s.handler.Reserve)
	s.router.GET("/bookings", auth, s.handler.List)
	s.router.GET("/bookings/:id", auth, s.handler.Get)
	s.router.DELETE("/bookings/:id", auth, s.handler.SoftDelete)
	s.router.POST("/bookings/:id/cancel", auth, s.handler.Cancel)
	s.router.POST("/bookings/:id/approve", auth, s.handler.Approve)
	s.router.POST("/bookings/:id/reject", auth, s.handler.Reject)
	s.router.POST("/bookings/:id/complete", auth, s.handler.Complete)
}

func (s *BookingHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestBookingHandlerSuite(t *testing.T) {
	suite.Run(t, new(BookingHandlerTestSuite))
}

type testCaseBooking struct {
	name       string
	mutate     func(m map[string]any)
	expectCode int
}

// ================================================================================
// TestReserve
// ================================================================================

func (s *BookingHandlerTestSuite) TestReserve() {
	url := "/bookings"
	b := builder.NewBookingBuilder().WithUserID(s.actor.UserID).WithParticipants(uuid.New())
	reqBody := b.BuildReserveRequestDTO()
	created := b.MustBuildDomain()

	bound := []testCaseBooking{
		{name: "notes length OK (500 chars)", mutate: testutil.Field("notes", strings.Repeat("a", 500)), expectCode: http.StatusCreated},
		{name: "notes length invalid (501 chars)", mutate: testutil.Field("notes", strings.Repeat("a", 501)), expectCode: http.StatusBadRequest},
		{name: "empty participant list", mutate: testutil.Field("participantIds", []string{}), expectCode: http.StatusBadRequest},
		{name: "duplicate participants", mutate: testutil.Field("participantIds", []string{reqBody.ParticipantIDs[0].String(), reqBody.ParticipantIDs[0].String()}), expectCode: http.StatusBadRequest},
		{name: "malformed batch id", mutate: testutil.Field("batchId", "not-a-uuid"), expectCode: http.StatusBadRequest},
	}

	missing := []testCaseBooking{
		{name: "missing field: batchId (required)", mutate: testutil.Field("batchId", nil), expectCode: http.StatusBadRequest},
		{name: "missing field: participantIds (required)", mutate: testutil.Field("participantIds", nil), expectCode: http.StatusBadRequest},
		{name: "missing field: notes (optional)", mutate: testutil.Field("notes", nil), expectCode: http.StatusCreated},
	}

	s.Run("success: returns 201 Created with Location", func() {
		s.mockCommands.EXPECT().Reserve(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in commands.ReserveInput) (*booking.Booking, error) {
				s.Equal(s.actor, in.Actor)
				s.Equal(reqBody.BatchID, in.BatchID)
				s.Equal(reqBody.ParticipantIDs, in.ParticipantIDs)
				return created, nil
			})

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusCreated, &body)
		s.Equal(created.ID().String(), body["id"])
		s.Equal("requested", body["status"])
		s.Equal("not_initiated", body["paymentStatus"])
		httptest.AssertHeaders(s.T(), rec, map[string]string{"Location": "/api/bookings/" + created.ID().String()})
	})

	s.Run("notes are trimmed", func() {
		s.mockCommands.EXPECT().Reserve(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, in commands.ReserveInput) (*booking.Booking, error) {
				s.Equal("bring water", in.Notes)
				return created, nil
			})
		requestMap := testutil.DtoMap(s.T(), reqBody, testutil.Field("notes", "  bring water \n"))

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap, "bearer-token")
		s.Equal(http.StatusCreated, rec.Code)
	})

	s.Run("validation", func() {
		for _, group := range [][]testCaseBooking{bound, missing} {
			for _, tc := range group {
				s.Run(tc.name, func() {
					if tc.expectCode == http.StatusCreated {
						s.mockCommands.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(created, nil)
					}
					requestMap := testutil.DtoMap(s.T(), reqBody, tc.mutate)

					rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, requestMap, "bearer-token")

					s.Equal(tc.expectCode, rec.Code, rec.Body.String())
				})
			}
		}
	})

	s.Run("error: 401 without token", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusUnauthorized, "Unauthorized")
	})

	s.Run("error: 409 capacity exceeded carries free seats", func() {
		s.mockCommands.EXPECT().Reserve(gomock.Any(), gomock.Any()).
			Return(nil, &shared.CapacityError{BatchID: reqBody.BatchID, Requested: 1, Free: 0})

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var body errorBody
		s.Require().NoError(httptest.DecodeResponseBody(s.T(), rec.Body, &body))
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal(api.KindCapacityExceeded, body.Error.Kind)
		s.EqualValues(0, body.Detail["freeSeats"])
		s.EqualValues(1, body.Detail["requested"])
	})

	s.Run("error: 422 eligibility violations", func() {
		valErr := &batch.ValidationError{Violations: []batch.Violation{
			{ParticipantID: &reqBody.ParticipantIDs[0], Rule: batch.RuleAgeRange, Message: "participant age is outside the batch range"},
		}}
		s.mockCommands.EXPECT().Reserve(gomock.Any(), gomock.Any()).
			Return(nil, errs.Mark(valErr, commands.ErrValidation))

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

		var body errorBody
		s.Require().NoError(httptest.DecodeResponseBody(s.T(), rec.Body, &body))
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
		s.Equal(api.KindValidation, body.Error.Kind)
		s.Len(body.Detail["violations"], 1)
	})

	s.Run("error: maps usecase errors", func() {
		tests := []struct {
			err  error
			code int
			kind string
		}{
			{err: commands.ErrBatchNotFound, code: http.StatusNotFound, kind: api.KindNotFound},
			{err: commands.ErrCapacityBusy, code: http.StatusServiceUnavailable, kind: api.KindCapacityBusy},
			{err: commands.ErrForbidden, code: http.StatusForbidden, kind: api.KindForbidden},
			{err: commands.ErrValidation, code: http.StatusBadRequest, kind: api.KindValidation},
			{err: errs.Wrap(commands.ErrDatabaseOperationFailed, "insert booking"), code: http.StatusInternalServerError, kind: api.KindInternal},
		}
		for _, tt := range tests {
			s.Run(tt.kind, func() {
				s.mockCommands.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(nil, tt.err)

				rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, reqBody, "bearer-token")

				httptest.AssertErrorKind(s.T(), rec, tt.code, tt.kind, nil)
			})
		}
	})
}

// ================================================================================
// TestGet / TestList
// ================================================================================

func (s *BookingHandlerTestSuite) TestGet() {
	view := builder.NewBookingBuilder().WithUserID(s.actor.UserID).AsPaymentPending("order_0001").BuildView()
	url := "/bookings/" + view.ID.String()

	s.Run("success", func() {
		s.mockQueries.EXPECT().Get(gomock.Any(), view.ID, s.actor).Return(view, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "bearer-token")

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("payment_pending", body["status"])
		s.Equal("order_0001", body["orderId"])
		s.NotContains(body, "paymentId")
	})

	s.Run("error: 400 invalid id", func() {
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings/abc", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "Invalid id")
	})

	s.Run("error: 403 access denied", func() {
		s.mockQueries.EXPECT().Get(gomock.Any(), view.ID, s.actor).Return(nil, queries.ErrAccessDenied)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusForbidden, "Forbidden")
	})

	s.Run("error: 404 not found", func() {
		s.mockQueries.EXPECT().Get(gomock.Any(), view.ID, s.actor).Return(nil, errs.Mark(errors.New("no rows"), queries.ErrBookingNotFound))
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Booking not found")
	})
}

func (s *BookingHandlerTestSuite) TestList() {
	views := []*queries.BookingView{
		builder.NewBookingBuilder().WithUserID(s.actor.UserID).BuildView(),
		builder.NewBookingBuilder().WithUserID(s.actor.UserID).AsConfirmed("order_0002", "pay_1").BuildView(),
	}
	centerID := uuid.New()

	s.Run("success: filters and pagination", func() {
		s.mockQueries.EXPECT().
			List(gomock.Any(), gomock.Any(), 2, 10, s.actor).
			DoAndReturn(func(_ any, f queries.BookingFilter, page, limit int, _ user.Actor) (*queries.BookingPage, error) {
				s.Require().NotNil(f.CenterID)
				s.Equal(centerID, *f.CenterID)
				s.Require().NotNil(f.Status)
				s.Equal("confirmed", *f.Status)
				s.Nil(f.PaymentStatus)
				return &queries.BookingPage{Items: views, Pagination: queries.NewPagination(page, limit, 12)}, nil
			})

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet,
			"/bookings?page=2&limit=10&status=confirmed&centerId="+centerID.String(), nil, "bearer-token")

		var body struct {
			Items      []map[string]any `json:"items"`
			Pagination map[string]any   `json:"pagination"`
		}
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Len(body.Items, 2)
		s.EqualValues(12, body.Pagination["total"])
		s.EqualValues(2, body.Pagination["totalPages"])
		s.Equal(true, body.Pagination["hasPrevPage"])
	})

	s.Run("defaults", func() {
		s.mockQueries.EXPECT().
			List(gomock.Any(), queries.BookingFilter{}, 1, queries.DefaultListLimit, s.actor).
			Return(&queries.BookingPage{Items: nil, Pagination: queries.NewPagination(1, queries.DefaultListLimit, 0)}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings", nil, "bearer-token")
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("huge page is clamped", func() {
		s.mockQueries.EXPECT().
			List(gomock.Any(), queries.BookingFilter{}, queries.MaxPage, queries.DefaultListLimit, s.actor).
			Return(&queries.BookingPage{Items: nil, Pagination: queries.NewPagination(queries.MaxPage, queries.DefaultListLimit, 0)}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings?page=9223372036854775807", nil, "bearer-token")
		s.Equal(http.StatusOK, rec.Code, rec.Body.String())
	})

	for _, q := range []string{"status=pending_review", "paymentStatus=paid", "limit=201", "page=0", "centerId=nope"} {
		s.Run("error: 400 "+q, func() {
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings?"+q, nil, "bearer-token")
			s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	s.Run("error: 400 academy without center", func() {
		s.mockQueries.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, queries.ErrCenterRequired)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, "/bookings", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusBadRequest, "centerId is required")
	})
}

// ================================================================================
// Lifecycle
// ================================================================================

func (s *BookingHandlerTestSuite) TestCancel() {
	cancelled := builder.NewBookingBuilder().
		WithUserID(s.actor.UserID).
		AsConfirmed("order_0001", "pay_1").
		With(func(b *builder.BookingBuilder) { b.RefundRequested = true }).
		WithState(booking.StatusCancelled, booking.PaymentSuccess).
		MustBuildDomain()
	url := "/bookings/" + cancelled.ID().String() + "/cancel"

	s.Run("success: paid booking is flagged for refund", func() {
		s.mockCommands.EXPECT().Cancel(gomock.Any(), cancelled.ID(), s.actor).Return(cancelled, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("cancelled", body["status"])
		s.Equal(true, body["refundRequested"])
		s.Equal(false, body["isActive"])
	})

	s.Run("error: 409 terminal state carries current state", func() {
		_, trErr := cancelled.Cancel(booking.CancelByUser, cancelled.UpdatedAt())
		s.Require().Error(trErr)
		s.mockCommands.EXPECT().Cancel(gomock.Any(), cancelled.ID(), s.actor).
			Return(nil, errs.Mark(trErr, commands.ErrNotCancellable))

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")

		var body errorBody
		s.Require().NoError(httptest.DecodeResponseBody(s.T(), rec.Body, &body))
		s.Equal(http.StatusConflict, rec.Code)
		s.Equal(api.KindNotCancellable, body.Error.Kind)
		s.Equal("cancelled", body.Detail["status"])
		s.Equal("cancel", body.Detail["event"])
	})
}

func (s *BookingHandlerTestSuite) TestDecide() {
	id := uuid.New()
	decided := func(status booking.Status) *booking.Booking {
		return builder.NewBookingBuilder().
			With(func(b *builder.BookingBuilder) { b.ID = id }).
			AsAwaitingApproval().
			WithState(status, booking.PaymentNotInitiated).
			MustBuildDomain()
	}

	s.Run("approve", func() {
		approved := decided(booking.StatusApproved)
		s.mockCommands.EXPECT().Decide(gomock.Any(), commands.DecideInput{BookingID: id, Actor: s.actor, Approve: true}).
			Return(approved, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/bookings/"+id.String()+"/approve", nil, "bearer-token")

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.Equal("approved", body["status"])
	})

	s.Run("reject requires a reason", func() {
		for _, reason := range []any{nil, "", "   ", strings.Repeat("x", 501)} {
			req := map[string]any{}
			if reason != nil {
				req["reason"] = reason
			}
			rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/bookings/"+id.String()+"/reject", req, "bearer-token")
			s.Equal(http.StatusBadRequest, rec.Code, "reason %q", reason)
		}
	})

	s.Run("reject", func() {
		rejected := decided(booking.StatusRejected)
		s.mockCommands.EXPECT().Decide(gomock.Any(), commands.DecideInput{BookingID: id, Actor: s.actor, Reason: "batch is full"}).
			Return(rejected, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/bookings/"+id.String()+"/reject",
			map[string]any{"reason": "batch is full"}, "bearer-token")

		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("error: 409 not awaiting a decision", func() {
		s.mockCommands.EXPECT().Decide(gomock.Any(), gomock.Any()).Return(nil, commands.ErrNotEligible)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/bookings/"+id.String()+"/approve", nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "not awaiting a decision")
	})
}

func (s *BookingHandlerTestSuite) TestComplete() {
	completed := builder.NewBookingBuilder().AsConfirmed("order_0001", "pay_1").
		WithState(booking.StatusCompleted, booking.PaymentSuccess).MustBuildDomain()

	s.mockCommands.EXPECT().Complete(gomock.Any(), completed.ID(), s.actor).Return(completed, nil)

	rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, "/bookings/"+completed.ID().String()+"/complete", nil, "bearer-token")

	var body map[string]any
	httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
	s.Equal("completed", body["status"])
}

func (s *BookingHandlerTestSuite) TestSoftDelete() {
	id := uuid.New()

	s.Run("success: 204", func() {
		s.mockCommands.EXPECT().SoftDelete(gomock.Any(), id, s.actor).Return(nil)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/bookings/"+id.String(), nil, "bearer-token")
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("error: 409 still active", func() {
		s.mockCommands.EXPECT().SoftDelete(gomock.Any(), id, s.actor).Return(commands.ErrBookingStillActive)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodDelete, "/bookings/"+id.String(), nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusConflict, "Only inactive bookings")
	})
}
