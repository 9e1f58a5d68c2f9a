package models

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatusType string

const (
	InvoiceStatusPending   InvoiceStatusType = "PENDING"
	InvoiceStatusOverdue   InvoiceStatusType = "OVERDUE"
	InvoiceStatusPaid      InvoiceStatusType = "PAID"
	InvoiceStatusCancelled InvoiceStatusType = "CANCELLED"
)

// Invoice is derived from a booking activation. Immutable at creation
// except for its status.
type Invoice struct {
	Versioned

	ID              uuid.UUID         `json:"id"`
	BookingID       uuid.UUID         `json:"booking_id"`
	ReferenceNumber string            `json:"reference_number"`
	Amount          float64           `json:"amount"`
	DueDate         time.Time         `json:"due_date"`
	BillingMonth    time.Time         `json:"billing_month"` // first day of the billed month
	Status          InvoiceStatusType `json:"status"`

	LineItems []InvoiceLineItem `json:"line_items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type InvoiceLineItem struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
}

func (i *Invoice) GetID() string {
	return i.ID.String()
}
