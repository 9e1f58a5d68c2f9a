package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is either the bookable entity itself (whole-property booking)
// or a container of individually bookable units.
type Property struct {
	Versioned

	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	PropertyName string    `json:"property_name"`
	Address      string    `json:"address"`
	City         string    `json:"city"`

	// Occupied is a cached projection of "has an occupying booking".
	// Written only inside booking transactions; reconciled by cron.
	Occupied bool `json:"occupied"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (p *Property) GetID() string {
	return p.ID.String()
}
