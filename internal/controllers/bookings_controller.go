package controllers

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/casaflow/booking-service/internal/dtos"
	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/services"
	"github.com/casaflow/booking-service/internal/utils"
)

type BookingsController struct {
	svc      *services.BookingService
	validate *validator.Validate
}

func NewBookingsController(svc *services.BookingService, validate *validator.Validate) *BookingsController {
	return &BookingsController{svc: svc, validate: validate}
}

func (c *BookingsController) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var req dtos.CreateBookingRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	b, err := c.svc.Create(r.Context(), actorID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.ToBookingResponse(b))
}

func (c *BookingsController) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	b, err := c.svc.Get(r.Context(), actorID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToBookingResponse(b))
}

func (c *BookingsController) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	list, err := c.svc.ListMine(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToBookingResponses(list))
}

// ListOwner returns bookings the owner recorded themselves; with
// ?incoming=true it returns tenant bookings on the owner's properties.
func (c *BookingsController) ListOwner(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}

	var err error
	var list []*models.Booking
	if r.URL.Query().Get("incoming") == "true" {
		list, err = c.svc.ListIncoming(r.Context(), actorID)
	} else {
		list, err = c.svc.ListOwnerCreated(r.Context(), actorID)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToBookingResponses(list))
}

func (c *BookingsController) ListByProperty(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	list, err := c.svc.ListByProperty(r.Context(), actorID, propertyID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToBookingResponses(list))
}

func (c *BookingsController) ListByUnit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	unitID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	list, err := c.svc.ListByUnit(r.Context(), actorID, unitID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToBookingResponses(list))
}

func (c *BookingsController) UpdateFields(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.UpdateBookingFieldsRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	b, err := c.svc.UpdateFields(r.Context(), actorID, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToBookingResponse(b))
}

func (c *BookingsController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.UpdateBookingStatusRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	b, err := c.svc.UpdateStatus(r.Context(), actorID, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToBookingResponse(b))
}

func (c *BookingsController) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := c.svc.Delete(r.Context(), actorID, id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
