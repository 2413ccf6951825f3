package api

import (
	"net/http"

	resdto "academy-booking/internal/handler/dto/response"
	"academy-booking/internal/handler/middleware"
	"academy-booking/internal/usecase/commands"
	"academy-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type BatchHandler struct {
	capacity commands.CapacityCommands
	q        queries.BookingQueries
}

func NewBatchHandler(capacity commands.CapacityCommands, q queries.BookingQueries) *BatchHandler {
	return &BatchHandler{capacity: capacity, q: q}
}

// @Summary Batch availability
// @Tags batches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} resdto.AvailabilityResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /batches/{id}/availability [get]
func (h *BatchHandler) Availability(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	a, err := h.q.Availability(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := resdto.FromAvailability(a)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Reconcile batch capacity
// @Description Rebuilds the committed-seat counter from active bookings and releases orphaned holds. Admin only.
// @Tags batches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Batch ID"
// @Success 200 {object} resdto.ReconcileResponse
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /batches/{id}/reconcile [post]
func (h *BatchHandler) Reconcile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		respondUnauthenticated(c)
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	result, err := h.capacity.Reconcile(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := resdto.FromReconcileResult(result)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
