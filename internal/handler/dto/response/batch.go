package response

import (
	"academy-booking/internal/usecase/queries"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type AvailabilityResponse struct {
	BatchID   uuid.UUID `json:"batchId"`
	Capacity  int       `json:"capacity"`
	Committed int       `json:"committed"`
	Free      int       `json:"freeSeats"`
}

type ReconcileResponse struct {
	BatchID         uuid.UUID `json:"batchId"`
	Capacity        int       `json:"capacity"`
	Before          int       `json:"before"`
	After           int       `json:"after"`
	Drift           int       `json:"drift"`
	OrphansReleased int       `json:"orphansReleased"`
}

func FromAvailability(a *queries.Availability) (*AvailabilityResponse, error) {
	resp := &AvailabilityResponse{}
	if err := copier.Copy(resp, a); err != nil {
		return nil, err
	}
	return resp, nil
}

func FromReconcileResult(r *shared.ReconcileResult) (*ReconcileResponse, error) {
	resp := &ReconcileResponse{}
	if err := copier.Copy(resp, r); err != nil {
		return nil, err
	}
	resp.Drift = r.Drift()
	return resp, nil
}
