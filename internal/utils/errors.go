package utils

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

/*
   Sentinel errors for the booking engine's domain logic.
   Controllers do: if errors.Is(err, ErrXYZ) { ... }
*/
var (
	ErrNotFound          = errors.New("not_found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrInvalidInterval   = errors.New("invalid_interval")
	ErrDurationTooShort  = errors.New("duration_too_short")
	ErrDuplicateRequest  = errors.New("duplicate_request")
	ErrSelfRequest       = errors.New("self_request_forbidden")
	ErrUnitOccupied      = errors.New("unit_occupied")
	ErrDuplicateInvoice  = errors.New("duplicate_invoice")
	ErrNoUnits           = errors.New("property_has_no_units")
	ErrStatusImmutable   = errors.New("status_not_updatable_via_fields")

	// For concurrency conflicts
	ErrRowVersionConflict = errors.New("row_version_conflict")
	ErrNoRowsUpdated      = errors.New("no_rows_updated")
)

/*
   RowVersionConflictError is returned when there's a concurrency mismatch.
   It includes the latest row so the controller can return it to the
   client if desired.
*/
type RowVersionConflictError struct {
	Current any
}

func (e *RowVersionConflictError) Error() string {
	return "row_version_conflict"
}

func (e *RowVersionConflictError) Is(target error) bool {
	return target == ErrRowVersionConflict
}

func NewRowVersionConflictError(current any) error {
	return &RowVersionConflictError{Current: current}
}

// IntervalConflictError names the resource that blocked a create or a date
// change, plus the booking already occupying it.
type IntervalConflictError struct {
	ResourceKind      string    `json:"resource_kind"` // "unit" or "property"
	ResourceID        uuid.UUID `json:"resource_id"`
	BlockingBookingID uuid.UUID `json:"blocking_booking_id"`
}

func (e *IntervalConflictError) Error() string {
	return fmt.Sprintf("%s %s is already booked by booking %s",
		e.ResourceKind, e.ResourceID, e.BlockingBookingID)
}

func NewIntervalConflictError(kind string, resourceID, blockingID uuid.UUID) error {
	return &IntervalConflictError{
		ResourceKind:      kind,
		ResourceID:        resourceID,
		BlockingBookingID: blockingID,
	}
}
