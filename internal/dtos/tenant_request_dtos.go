package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/casaflow/booking-service/internal/models"
)

type CreateTenantRequestRequest struct {
	Type       models.TenantRequestType `json:"type" validate:"required,oneof=BOOKING CANCELLATION MAINTENANCE"`
	PropertyID uuid.UUID                `json:"property_id" validate:"required"`
	FloorID    *uuid.UUID               `json:"floor_id,omitempty"`
	UnitID     *uuid.UUID               `json:"unit_id,omitempty"`

	// BookingID targets the booking to cancel; required for CANCELLATION.
	BookingID *uuid.UUID `json:"booking_id,omitempty"`

	Message string `json:"message,omitempty" validate:"max=2000"`

	PreferredMoveIn *time.Time `json:"preferred_move_in,omitempty"`
	PreferredEnd    *time.Time `json:"preferred_end,omitempty"`
	MonthlyOffer    float64    `json:"monthly_offer,omitempty" validate:"gte=0"`
	DurationMonths  int        `json:"duration_months,omitempty" validate:"gte=0"`
}

type UpdateTenantRequestStatusRequest struct {
	Status     models.TenantRequestStatusType `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
	RowVersion int64                          `json:"row_version" validate:"required,gt=0"`
}

type TenantRequestResponse struct {
	ID         uuid.UUID                      `json:"id"`
	Type       models.TenantRequestType       `json:"type"`
	TenantID   uuid.UUID                      `json:"tenant_id"`
	OwnerID    uuid.UUID                      `json:"owner_id"`
	PropertyID uuid.UUID                      `json:"property_id"`
	FloorID    *uuid.UUID                     `json:"floor_id,omitempty"`
	UnitID     *uuid.UUID                     `json:"unit_id,omitempty"`
	BookingID  *uuid.UUID                     `json:"booking_id,omitempty"`
	Status     models.TenantRequestStatusType `json:"status"`
	Message    string                         `json:"message,omitempty"`
	IsSeen     bool                           `json:"is_seen"`

	PreferredMoveIn *time.Time `json:"preferred_move_in,omitempty"`
	PreferredEnd    *time.Time `json:"preferred_end,omitempty"`
	MonthlyOffer    float64    `json:"monthly_offer,omitempty"`
	DurationMonths  int        `json:"duration_months,omitempty"`

	RowVersion int64     `json:"row_version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func ToTenantRequestResponse(tr *models.TenantRequest) TenantRequestResponse {
	return TenantRequestResponse{
		ID:              tr.ID,
		Type:            tr.Type,
		TenantID:        tr.TenantID,
		OwnerID:         tr.OwnerID,
		PropertyID:      tr.PropertyID,
		FloorID:         tr.FloorID,
		UnitID:          tr.UnitID,
		BookingID:       tr.BookingID,
		Status:          tr.Status,
		Message:         tr.Message,
		IsSeen:          tr.IsSeen,
		PreferredMoveIn: tr.PreferredMoveIn,
		PreferredEnd:    tr.PreferredEnd,
		MonthlyOffer:    tr.MonthlyOffer,
		DurationMonths:  tr.DurationMonths,
		RowVersion:      tr.RowVersion,
		CreatedAt:       tr.CreatedAt,
		UpdatedAt:       tr.UpdatedAt,
	}
}

func ToTenantRequestResponses(list []*models.TenantRequest) []TenantRequestResponse {
	out := make([]TenantRequestResponse, 0, len(list))
	for _, tr := range list {
		out = append(out, ToTenantRequestResponse(tr))
	}
	return out
}
