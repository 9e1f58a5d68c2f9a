package models

import (
	"time"

	"github.com/google/uuid"
)

// Unit is a tenant-addressable space on a floor of a property.
type Unit struct {
	Versioned

	ID          uuid.UUID `json:"id"`
	PropertyID  uuid.UUID `json:"property_id"`
	FloorID     uuid.UUID `json:"floor_id"`
	UnitNumber  string    `json:"unit_number"`
	MonthlyRent float64   `json:"monthly_rent"`

	// Occupied mirrors "an occupying booking covers this unit". Same
	// caching rule as Property.Occupied.
	Occupied bool `json:"occupied"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (u *Unit) GetID() string {
	return u.ID.String()
}
