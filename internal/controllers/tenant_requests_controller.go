package controllers

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/casaflow/booking-service/internal/dtos"
	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/services"
	"github.com/casaflow/booking-service/internal/utils"
)

type TenantRequestsController struct {
	svc      *services.TenantRequestService
	validate *validator.Validate
}

func NewTenantRequestsController(svc *services.TenantRequestService, validate *validator.Validate) *TenantRequestsController {
	return &TenantRequestsController{svc: svc, validate: validate}
}

func (c *TenantRequestsController) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var req dtos.CreateTenantRequestRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	tr, err := c.svc.Create(r.Context(), actorID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.ToTenantRequestResponse(tr))
}

func (c *TenantRequestsController) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	tr, err := c.svc.Get(r.Context(), actorID, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToTenantRequestResponse(tr))
}

func (c *TenantRequestsController) ListMine(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	typ := models.TenantRequestType(r.URL.Query().Get("type"))

	list, err := c.svc.ListMine(r.Context(), actorID, typ)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToTenantRequestResponses(list))
}

func (c *TenantRequestsController) ListIncoming(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	typ := models.TenantRequestType(r.URL.Query().Get("type"))

	list, err := c.svc.ListIncoming(r.Context(), actorID, typ)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToTenantRequestResponses(list))
}

func (c *TenantRequestsController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.UpdateTenantRequestStatusRequest
	if !decodeAndValidate(w, r, c.validate, &req) {
		return
	}

	tr, err := c.svc.UpdateStatus(r.Context(), actorID, id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ToTenantRequestResponse(tr))
}

func (c *TenantRequestsController) MarkSeen(w http.ResponseWriter, r *http.Request) {
	actorID, ok := authedUser(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := c.svc.MarkSeen(r.Context(), actorID, id); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"is_seen": true})
}
