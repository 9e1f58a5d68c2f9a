package models

import (
	"time"

	"github.com/google/uuid"
)

type TenantRequestStatusType string

const (
	RequestStatusPending  TenantRequestStatusType = "PENDING"
	RequestStatusAccepted TenantRequestStatusType = "ACCEPTED"
	RequestStatusRejected TenantRequestStatusType = "REJECTED"
)

func (s TenantRequestStatusType) IsTerminal() bool {
	return s == RequestStatusAccepted || s == RequestStatusRejected
}

type TenantRequestType string

const (
	RequestTypeBooking      TenantRequestType = "BOOKING"
	RequestTypeCancellation TenantRequestType = "CANCELLATION"
	RequestTypeMaintenance  TenantRequestType = "MAINTENANCE"
)

// TenantRequest is a tenant's proposal that needs owner approval before it
// takes effect: book a unit/property, cancel an existing booking, or a
// maintenance ask.
type TenantRequest struct {
	Versioned

	ID       uuid.UUID         `json:"id"`
	Type     TenantRequestType `json:"type"`
	TenantID uuid.UUID         `json:"tenant_id"`
	OwnerID  uuid.UUID         `json:"owner_id"`

	PropertyID uuid.UUID  `json:"property_id"`
	FloorID    *uuid.UUID `json:"floor_id,omitempty"`
	UnitID     *uuid.UUID `json:"unit_id,omitempty"`

	// BookingID references the target booking for CANCELLATION requests.
	BookingID *uuid.UUID `json:"booking_id,omitempty"`

	Status  TenantRequestStatusType `json:"status"`
	Message string                  `json:"message,omitempty"`
	IsSeen  bool                    `json:"is_seen"`

	PreferredMoveIn *time.Time `json:"preferred_move_in,omitempty"`
	PreferredEnd    *time.Time `json:"preferred_end,omitempty"`
	MonthlyOffer    float64    `json:"monthly_offer,omitempty"`
	DurationMonths  int        `json:"duration_months,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (tr *TenantRequest) GetID() string {
	return tr.ID.String()
}
