package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casaflow/booking-service/internal/constants"
	"github.com/casaflow/booking-service/internal/dtos"
	"github.com/casaflow/booking-service/internal/events"
	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/notifications"
	"github.com/casaflow/booking-service/internal/repositories"
	"github.com/casaflow/booking-service/internal/utils"
)

// BuildInvoice derives the activation invoice from a booking: one line
// item for the billed period, due 30 days before the tenancy starts,
// billing month pinned to the first day of the start month.
func BuildInvoice(b *models.Booking) *models.Invoice {
	start := b.StartDate.UTC()
	billingMonth := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	dueDate := start.AddDate(0, 0, -constants.InvoiceDueLeadDays)

	invoiceID := uuid.New()
	inv := &models.Invoice{
		ID:              invoiceID,
		BookingID:       b.ID,
		ReferenceNumber: newInvoiceReference(),
		Amount:          b.TotalPrice,
		DueDate:         dueDate,
		BillingMonth:    billingMonth,
		Status:          models.InvoiceStatusPending,
		LineItems: []models.InvoiceLineItem{
			{
				ID:          uuid.New(),
				InvoiceID:   invoiceID,
				Description: fmt.Sprintf("Rent for %s", start.Format("January 2006")),
				Amount:      b.TotalPrice,
			},
		},
	}
	return inv
}

func newInvoiceReference() string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
	return fmt.Sprintf("%s-%s", constants.InvoiceReferencePrefix, token)
}

// invoiceStatusTransitions: settled invoices are immutable.
var invoiceStatusTransitions = map[models.InvoiceStatusType][]models.InvoiceStatusType{
	models.InvoiceStatusPending: {models.InvoiceStatusPaid, models.InvoiceStatusCancelled, models.InvoiceStatusOverdue},
	models.InvoiceStatusOverdue: {models.InvoiceStatusPaid, models.InvoiceStatusCancelled},
}

func canTransitionInvoice(from, to models.InvoiceStatusType) bool {
	for _, allowed := range invoiceStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type InvoiceService struct {
	invoices  repositories.InvoiceRepository
	bookings  repositories.BookingRepository
	props     repositories.PropertyRepository
	publisher events.Publisher
	notifier  notifications.Notifier
}

func NewInvoiceService(
	invoices repositories.InvoiceRepository,
	bookings repositories.BookingRepository,
	props repositories.PropertyRepository,
	publisher events.Publisher,
	notifier notifications.Notifier,
) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		bookings:  bookings,
		props:     props,
		publisher: publisher,
		notifier:  notifier,
	}
}

// accessCheck resolves whether the actor may see the invoice (the
// booking's tenant or the property owner) and returns the owner id.
func (s *InvoiceService) accessCheck(ctx context.Context, actorID uuid.UUID, inv *models.Invoice) (uuid.UUID, error) {
	b, err := s.bookings.GetByID(ctx, inv.BookingID)
	if err != nil {
		return uuid.Nil, err
	}
	if b == nil {
		return uuid.Nil, utils.ErrNotFound
	}
	ownerID, err := s.props.GetOwnerID(ctx, b.PropertyID)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := roleFor(b, ownerID, actorID); err != nil {
		return uuid.Nil, err
	}
	return ownerID, nil
}

func (s *InvoiceService) Get(ctx context.Context, actorID, id uuid.UUID) (*models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, utils.ErrNotFound
	}
	if _, err := s.accessCheck(ctx, actorID, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListMine returns the actor's invoices from both sides: as a tenant of
// bookings and as the owner of booked properties.
func (s *InvoiceService) ListMine(ctx context.Context, actorID uuid.UUID) ([]*models.Invoice, error) {
	asTenant, err := s.invoices.ListForTenant(ctx, actorID)
	if err != nil {
		return nil, err
	}
	asOwner, err := s.invoices.ListForOwner(ctx, actorID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(asTenant))
	out := make([]*models.Invoice, 0, len(asTenant)+len(asOwner))
	for _, inv := range asTenant {
		seen[inv.ID] = true
		out = append(out, inv)
	}
	for _, inv := range asOwner {
		if !seen[inv.ID] {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *InvoiceService) ListByBooking(ctx context.Context, actorID, bookingID uuid.UUID) ([]*models.Invoice, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, utils.ErrNotFound
	}
	ownerID, err := s.props.GetOwnerID(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}
	if _, err := roleFor(b, ownerID, actorID); err != nil {
		return nil, err
	}
	return s.invoices.ListByBookingID(ctx, bookingID)
}

// UpdateStatus is owner-only: marking paid or cancelling.
func (s *InvoiceService) UpdateStatus(
	ctx context.Context,
	actorID, id uuid.UUID,
	req *dtos.UpdateInvoiceStatusRequest,
) (*models.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, utils.ErrNotFound
	}
	ownerID, err := s.accessCheck(ctx, actorID, inv)
	if err != nil {
		return nil, err
	}
	if actorID != ownerID {
		return nil, utils.ErrForbidden
	}
	if !canTransitionInvoice(inv.Status, req.Status) {
		return nil, utils.ErrInvalidTransition
	}

	updated, err := s.invoices.UpdateStatusIfVersion(ctx, id, req.Status, req.RowVersion)
	if err != nil {
		return updated, mapNotFound(err)
	}

	utils.Logger.WithFields(map[string]any{
		"invoice_id": id,
		"status":     req.Status,
	}).Info("invoice status changed")
	return updated, nil
}

// SweepOverdue is the cron entry point: flips past-due PENDING invoices
// to OVERDUE and alerts operations.
func (s *InvoiceService) SweepOverdue(ctx context.Context) error {
	n, err := s.invoices.MarkOverdue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		utils.Logger.WithField("count", n).Warn("invoices became overdue")
		s.publisher.Publish(ctx, events.KeyInvoiceOverdue, map[string]any{"count": n})
		s.notifier.Notify("Overdue invoices", fmt.Sprintf("%d invoice(s) passed their due date", n))
	}
	return nil
}
