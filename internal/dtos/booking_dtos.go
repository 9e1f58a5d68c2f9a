package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/casaflow/booking-service/internal/models"
)

// CreateBookingRequest covers both targeting modes: a specific unit
// (unit_id set) or the whole property (unit_id empty). tenant_id is only
// honoured for owner-created bookings; tenants always book for themselves.
type CreateBookingRequest struct {
	PropertyID uuid.UUID  `json:"property_id" validate:"required"`
	FloorID    *uuid.UUID `json:"floor_id,omitempty"`
	UnitID     *uuid.UUID `json:"unit_id,omitempty"`
	TenantID   *uuid.UUID `json:"tenant_id,omitempty"`

	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	TotalPrice float64 `json:"total_price" validate:"gte=0"`
	Notes      string  `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateBookingFieldsRequest edits dates, price and notes. Status changes
// go through the dedicated status endpoint.
type UpdateBookingFieldsRequest struct {
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	ClearEnd   bool       `json:"clear_end,omitempty"` // make the booking open-ended
	TotalPrice *float64   `json:"total_price,omitempty" validate:"omitempty,gte=0"`
	Notes      *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`

	RowVersion int64 `json:"row_version" validate:"required,gt=0"`
}

type UpdateBookingStatusRequest struct {
	Status     models.BookingStatusType `json:"status" validate:"required,oneof=PENDING CONFIRMED ACTIVE COMPLETED CANCELLED_BY_TENANT CANCELLED_BY_OWNER REJECTED"`
	RowVersion int64                    `json:"row_version" validate:"required,gt=0"`
}

type BookingResponse struct {
	ID            uuid.UUID                `json:"id"`
	TenantID      *uuid.UUID               `json:"tenant_id,omitempty"`
	PropertyID    uuid.UUID                `json:"property_id"`
	FloorID       *uuid.UUID               `json:"floor_id,omitempty"`
	UnitID        *uuid.UUID               `json:"unit_id,omitempty"`
	FromRequestID *uuid.UUID               `json:"from_request_id,omitempty"`
	StartDate     time.Time                `json:"start_date"`
	EndDate       *time.Time               `json:"end_date,omitempty"`
	Status        models.BookingStatusType `json:"status"`
	BookedByOwner bool                     `json:"booked_by_owner"`
	TotalPrice    float64                  `json:"total_price"`
	Notes         string                   `json:"notes,omitempty"`
	RowVersion    int64                    `json:"row_version"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		TenantID:      b.TenantID,
		PropertyID:    b.PropertyID,
		FloorID:       b.FloorID,
		UnitID:        b.UnitID,
		FromRequestID: b.FromRequestID,
		StartDate:     b.StartDate,
		EndDate:       b.EndDate,
		Status:        b.Status,
		BookedByOwner: b.BookedByOwner,
		TotalPrice:    b.TotalPrice,
		Notes:         b.Notes,
		RowVersion:    b.RowVersion,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func ToBookingResponses(list []*models.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(list))
	for _, b := range list {
		out = append(out, ToBookingResponse(b))
	}
	return out
}

// AvailabilityResponse answers "is this resource free for [start,end)?".
type AvailabilityResponse struct {
	Available         bool       `json:"available"`
	BlockingBookingID *uuid.UUID `json:"blocking_booking_id,omitempty"`
}
