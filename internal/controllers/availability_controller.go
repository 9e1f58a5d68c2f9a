package controllers

import (
	"net/http"
	"time"

	"github.com/casaflow/booking-service/internal/services"
	"github.com/casaflow/booking-service/internal/utils"
)

type AvailabilityController struct {
	svc *services.AvailabilityService
}

func NewAvailabilityController(svc *services.AvailabilityService) *AvailabilityController {
	return &AvailabilityController{svc: svc}
}

// parseWindow reads ?start=RFC3339&end=RFC3339 (end optional, meaning
// open-ended).
func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, *time.Time, bool) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "invalid or missing start", nil)
		return time.Time{}, nil, false
	}

	var end *time.Time
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "invalid end", nil)
			return time.Time{}, nil, false
		}
		end = &parsed
	}
	return start, end, true
}

func (c *AvailabilityController) CheckUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}

	res, err := c.svc.CheckUnit(r.Context(), id, start, end)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

func (c *AvailabilityController) CheckProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}

	res, err := c.svc.CheckProperty(r.Context(), id, start, end)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}
