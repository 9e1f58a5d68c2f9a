package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/casaflow/booking-service/internal/models"
)

type UpdateInvoiceStatusRequest struct {
	Status     models.InvoiceStatusType `json:"status" validate:"required,oneof=PENDING OVERDUE PAID CANCELLED"`
	RowVersion int64                    `json:"row_version" validate:"required,gt=0"`
}

type InvoiceLineItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
}

type InvoiceResponse struct {
	ID              uuid.UUID                 `json:"id"`
	BookingID       uuid.UUID                 `json:"booking_id"`
	ReferenceNumber string                    `json:"reference_number"`
	Amount          float64                   `json:"amount"`
	DueDate         time.Time                 `json:"due_date"`
	BillingMonth    time.Time                 `json:"billing_month"`
	Status          models.InvoiceStatusType  `json:"status"`
	LineItems       []InvoiceLineItemResponse `json:"line_items"`
	RowVersion      int64                     `json:"row_version"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

func ToInvoiceResponse(inv *models.Invoice) InvoiceResponse {
	items := make([]InvoiceLineItemResponse, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		items = append(items, InvoiceLineItemResponse{
			ID:          li.ID,
			Description: li.Description,
			Amount:      li.Amount,
		})
	}
	return InvoiceResponse{
		ID:              inv.ID,
		BookingID:       inv.BookingID,
		ReferenceNumber: inv.ReferenceNumber,
		Amount:          inv.Amount,
		DueDate:         inv.DueDate,
		BillingMonth:    inv.BillingMonth,
		Status:          inv.Status,
		LineItems:       items,
		RowVersion:      inv.RowVersion,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

func ToInvoiceResponses(list []*models.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, ToInvoiceResponse(inv))
	}
	return out
}
