package models

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatusType string

const (
	BookingStatusPending           BookingStatusType = "PENDING"
	BookingStatusConfirmed         BookingStatusType = "CONFIRMED"
	BookingStatusActive            BookingStatusType = "ACTIVE"
	BookingStatusCompleted         BookingStatusType = "COMPLETED"
	BookingStatusCancelledByTenant BookingStatusType = "CANCELLED_BY_TENANT"
	BookingStatusCancelledByOwner  BookingStatusType = "CANCELLED_BY_OWNER"
	BookingStatusRejected          BookingStatusType = "REJECTED"
)

// ActorRole identifies which side of a booking an actor is on.
type ActorRole string

const (
	RoleOwner  ActorRole = "OWNER"
	RoleTenant ActorRole = "TENANT"
)

// OccupyingStatuses are the statuses that hold a unit/property.
func OccupyingStatuses() []BookingStatusType {
	return []BookingStatusType{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusActive,
	}
}

func (s BookingStatusType) IsOccupying() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusActive:
		return true
	}
	return false
}

func (s BookingStatusType) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted,
		BookingStatusCancelledByTenant,
		BookingStatusCancelledByOwner,
		BookingStatusRejected:
		return true
	}
	return false
}

// bookingTransitions is the canonical role-gated transition table.
// Terminal states have no outgoing edges.
var bookingTransitions = map[BookingStatusType]map[ActorRole][]BookingStatusType{
	BookingStatusPending: {
		RoleOwner:  {BookingStatusConfirmed, BookingStatusRejected},
		RoleTenant: {BookingStatusCancelledByTenant},
	},
	BookingStatusConfirmed: {
		RoleOwner:  {BookingStatusActive, BookingStatusCancelledByOwner},
		RoleTenant: {BookingStatusCancelledByTenant},
	},
	BookingStatusActive: {
		RoleOwner: {BookingStatusCompleted, BookingStatusCancelledByOwner},
	},
}

// CanTransition reports whether role may move a booking from one status to
// another. Anything outside the table is rejected; there are no no-ops.
func CanTransition(from, to BookingStatusType, role ActorRole) bool {
	for _, allowed := range bookingTransitions[from][role] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Booking is the central entity of the lifecycle engine.
type Booking struct {
	Versioned

	ID         uuid.UUID  `json:"id"`
	TenantID   *uuid.UUID `json:"tenant_id,omitempty"`
	PropertyID uuid.UUID  `json:"property_id"`
	FloorID    *uuid.UUID `json:"floor_id,omitempty"`
	UnitID     *uuid.UUID `json:"unit_id,omitempty"`

	// FromRequestID links a booking that was created by accepting a
	// tenant request.
	FromRequestID *uuid.UUID `json:"from_request_id,omitempty"`

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"` // nil = open-ended

	Status        BookingStatusType `json:"status"`
	BookedByOwner bool              `json:"booked_by_owner"`
	TotalPrice    float64           `json:"total_price"`
	Notes         string            `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) GetID() string {
	return b.ID.String()
}

// IsWholeProperty reports whether the booking covers the whole property
// rather than a specific unit.
func (b *Booking) IsWholeProperty() bool {
	return b.UnitID == nil
}

// IntervalsOverlap implements the half-open overlap test
// [s1,e1) x [s2,e2): conflict iff s1 < e2 && e1 > s2. A nil end is
// unbounded and only satisfies its side of the comparison; it never
// short-circuits the other.
func IntervalsOverlap(s1 time.Time, e1 *time.Time, s2 time.Time, e2 *time.Time) bool {
	startsBeforeOtherEnds := e2 == nil || s1.Before(*e2)
	endsAfterOtherStarts := e1 == nil || e1.After(s2)
	return startsBeforeOtherEnds && endsAfterOtherStarts
}

// Overlaps reports whether the booking's interval conflicts with [start,end).
func (b *Booking) Overlaps(start time.Time, end *time.Time) bool {
	return IntervalsOverlap(b.StartDate, b.EndDate, start, end)
}
