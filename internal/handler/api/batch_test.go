//go:build unit

package api_test

import (
	"net/http"
	"testing"

	"academy-booking/internal/domain/user"
	"academy-booking/internal/handler/api"
	"academy-booking/internal/usecase/commands"
	"academy-booking/internal/usecase/queries"
	"academy-booking/internal/usecase/shared"
	"academy-booking/tests/common/httptest"
	commandsmock "academy-booking/tests/mock/commands"
	queriesmock "academy-booking/tests/mock/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type BatchHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockCapacity *commandsmock.MockCapacityCommands
	mockQueries  *queriesmock.MockBookingQueries
	actor        user.Actor
}

func (s *BatchHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockCapacity = commandsmock.NewMockCapacityCommands(s.mockCtrl)
	s.mockQueries = queriesmock.NewMockBookingQueries(s.mockCtrl)
	handler := api.NewBatchHandler(s.mockCapacity, s.mockQueries)
	s.actor = user.NewActor(uuid.New(), user.RoleAdmin)

	auth := actorAuth(&s.actor)
	s.router.GET("/batches/:id/availability", auth, handler.Availability)
	s.router.POST("/batches/:id/reconcile", auth, handler.Reconcile)
}

func (s *BatchHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestBatchHandlerSuite(t *testing.T) {
	suite.Run(t, new(BatchHandlerTestSuite))
}

func (s *BatchHandlerTestSuite) TestAvailability() {
	batchID := uuid.New()
	url := "/batches/" + batchID.String() + "/availability"

	s.Run("success", func() {
		s.mockQueries.EXPECT().Availability(gomock.Any(), batchID).
			Return(&queries.Availability{BatchID: batchID, Capacity: 10, Committed: 7, Free: 3}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "bearer-token")

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.EqualValues(3, body["freeSeats"])
		s.EqualValues(7, body["committed"])
	})

	s.Run("error: 404 unknown batch", func() {
		s.mockQueries.EXPECT().Availability(gomock.Any(), batchID).Return(nil, queries.ErrBatchNotFound)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodGet, url, nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusNotFound, "Batch not found")
	})
}

func (s *BatchHandlerTestSuite) TestReconcile() {
	batchID := uuid.New()
	url := "/batches/" + batchID.String() + "/reconcile"

	s.Run("success: reports drift", func() {
		s.mockCapacity.EXPECT().Reconcile(gomock.Any(), batchID, s.actor).
			Return(&shared.ReconcileResult{BatchID: batchID, Capacity: 10, Before: 9, After: 7, OrphansReleased: 1}, nil)

		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")

		var body map[string]any
		httptest.AssertSuccessResponse(s.T(), rec, http.StatusOK, &body)
		s.EqualValues(-2, body["drift"])
		s.EqualValues(1, body["orphansReleased"])
	})

	s.Run("error: 403", func() {
		s.mockCapacity.EXPECT().Reconcile(gomock.Any(), batchID, s.actor).Return(nil, commands.ErrForbidden)
		rec := httptest.PerformRequest(s.T(), s.router, http.MethodPost, url, nil, "bearer-token")
		httptest.AssertErrorResponse(s.T(), rec, http.StatusForbidden, "Forbidden")
	})
}
