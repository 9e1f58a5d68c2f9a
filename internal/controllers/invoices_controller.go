package controllers

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/casaflow/booking-service/internal/dtos"
	"github.com/casaflow/booking-service/internal/services"
	"github.com/casaflow/booking-service/internal/utils"
)

type InvoicesController struct {
	svc      *services.InvoiceService
	validate *validator.Validate
}

func NewInvoicesController(svc *services.InvoiceService, validate *validator.Validate) *InvoicesController {
	return &InvoicesController{svc: svc, validate: validate}
}

func (c *InvoicesController) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	inv, err := c.svc.Get(r.Context(), actorID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToInvoiceResponse(inv))
}

func (c *InvoicesController) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}

	list, err := c.svc.ListMine(r.Context(), actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToInvoiceResponses(list))
}

func (c *InvoicesController) ListByBooking(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	list, err := c.svc.ListByBooking(r.Context(), actorID, bookingID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToInvoiceResponses(list))
}

func (c *InvoicesController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.UpdateInvoiceStatusRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	inv, err := c.svc.UpdateStatus(r.Context(), actorID, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToInvoiceResponse(inv))
}
