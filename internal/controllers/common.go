package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/casaflow/booking-service/internal/middleware"
	"github.com/casaflow/booking-service/internal/utils"
)

// decodeAndValidate parses the JSON body into dst and runs struct
// validation. On failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "malformed JSON body", nil, err)
		return false
	}
	if err := v.Struct(dst); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, err.Error(), nil)
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func authedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserID(r)
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "missing authentication", nil)
	}
	return id, ok
}

// respondServiceError maps domain errors onto the HTTP error taxonomy.
func respondServiceError(w http.ResponseWriter, err error) {
	var versionConflict *utils.RowVersionConflictError
	var intervalConflict *utils.IntervalConflictError

	switch {
	case errors.Is(err, utils.ErrNotFound):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "resource not found", nil)

	case errors.Is(err, utils.ErrForbidden), errors.Is(err, utils.ErrSelfRequest):
		utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeForbidden, err.Error(), nil)

	case errors.As(err, &versionConflict):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeRowVersionConflict,
			"the resource was modified concurrently; re-read and retry", versionConflict.Current)

	case errors.As(err, &intervalConflict):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeConflict,
			"the requested interval is already booked", intervalConflict)

	case errors.Is(err, utils.ErrInvalidTransition), errors.Is(err, utils.ErrStatusImmutable):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeInvalidTransition, err.Error(), nil)

	case errors.Is(err, utils.ErrDuplicateRequest),
		errors.Is(err, utils.ErrUnitOccupied),
		errors.Is(err, utils.ErrDuplicateInvoice):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeConflict, err.Error(), nil)

	case errors.Is(err, utils.ErrInvalidInterval),
		errors.Is(err, utils.ErrDurationTooShort),
		errors.Is(err, utils.ErrNoUnits):
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, err.Error(), nil)

	default:
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "internal server error", nil, err)
	}
}
