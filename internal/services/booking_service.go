package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/casaflow/booking-service/internal/constants"
	"github.com/casaflow/booking-service/internal/dtos"
	"github.com/casaflow/booking-service/internal/events"
	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/notifications"
	"github.com/casaflow/booking-service/internal/repositories"
	"github.com/casaflow/booking-service/internal/utils"
)

type BookingService struct {
	bookings  repositories.BookingRepository
	props     repositories.PropertyRepository
	floors    repositories.FloorRepository
	units     repositories.UnitRepository
	publisher events.Publisher
	notifier  notifications.Notifier
}

func NewBookingService(
	bookings repositories.BookingRepository,
	props repositories.PropertyRepository,
	floors repositories.FloorRepository,
	units repositories.UnitRepository,
	publisher events.Publisher,
	notifier notifications.Notifier,
) *BookingService {
	return &BookingService{
		bookings:  bookings,
		props:     props,
		floors:    floors,
		units:     units,
		publisher: publisher,
		notifier:  notifier,
	}
}

// mapNotFound folds the driver's no-rows into the domain sentinel so
// controllers only ever see domain errors.
func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return utils.ErrNotFound
	}
	return err
}

func validateInterval(start time.Time, end *time.Time) error {
	if end == nil {
		return nil
	}
	if !end.After(start) {
		return utils.ErrInvalidInterval
	}
	if end.Sub(start) < constants.MinBookingDuration {
		return utils.ErrDurationTooShort
	}
	return nil
}

// roleFor derives the actor's role relative to a booking from ownership,
// not from token claims: the property owner acts as OWNER, the booking's
// tenant as TENANT, everyone else is forbidden.
func roleFor(b *models.Booking, ownerID, actorID uuid.UUID) (models.ActorRole, error) {
	if actorID == ownerID {
		return models.RoleOwner, nil
	}
	if b.TenantID != nil && actorID == *b.TenantID {
		return models.RoleTenant, nil
	}
	return "", utils.ErrForbidden
}

/* ---------- create ---------- */

func (s *BookingService) Create(ctx context.Context, actorID uuid.UUID, req *dtos.CreateBookingRequest) (*models.Booking, error) {
	if err := validateInterval(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	prop, err := s.props.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, utils.ErrNotFound
	}

	bookedByOwner := actorID == prop.OwnerID

	tenantID := &actorID
	if bookedByOwner {
		// owners may record offline tenants, or none at all
		tenantID = req.TenantID
	}

	floorID := req.FloorID
	if floorID != nil {
		floor, err := s.floors.GetByID(ctx, *floorID)
		if err != nil {
			return nil, err
		}
		if floor == nil || floor.PropertyID != prop.ID {
			return nil, utils.ErrNotFound
		}
	}
	if req.UnitID != nil {
		unit, err := s.units.GetByID(ctx, *req.UnitID)
		if err != nil {
			return nil, err
		}
		if unit == nil || unit.PropertyID != prop.ID {
			return nil, utils.ErrNotFound
		}
		if floorID == nil {
			floorID = &unit.FloorID
		}
	}

	b := &models.Booking{
		ID:            uuid.New(),
		TenantID:      tenantID,
		PropertyID:    prop.ID,
		FloorID:       floorID,
		UnitID:        req.UnitID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Status:        models.BookingStatusPending,
		BookedByOwner: bookedByOwner,
		TotalPrice:    req.TotalPrice,
		Notes:         req.Notes,
	}

	if err := s.bookings.CreateAtomic(ctx, b); err != nil {
		return nil, mapNotFound(err)
	}

	created, err := s.bookings.GetByID(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	utils.Logger.WithField("booking_id", b.ID).Info("booking created")
	s.publisher.Publish(ctx, events.KeyBookingCreated, dtos.ToBookingResponse(created))
	s.notifier.Notify("New booking", "booking "+b.ID.String()+" created for property "+prop.ID.String())
	return created, nil
}

/* ---------- reads ---------- */

func (s *BookingService) Get(ctx context.Context, actorID, id uuid.UUID) (*models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
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
	return b, nil
}

func (s *BookingService) ListMine(ctx context.Context, tenantID uuid.UUID) ([]*models.Booking, error) {
	return s.bookings.ListByTenantID(ctx, tenantID)
}

func (s *BookingService) ListOwnerCreated(ctx context.Context, ownerID uuid.UUID) ([]*models.Booking, error) {
	return s.bookings.ListOwnerCreated(ctx, ownerID)
}

func (s *BookingService) ListIncoming(ctx context.Context, ownerID uuid.UUID) ([]*models.Booking, error) {
	return s.bookings.ListForOwnerProperties(ctx, ownerID)
}

func (s *BookingService) ListByProperty(ctx context.Context, actorID, propertyID uuid.UUID) ([]*models.Booking, error) {
	ownerID, err := s.props.GetOwnerID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if ownerID == uuid.Nil {
		return nil, utils.ErrNotFound
	}
	if ownerID != actorID {
		return nil, utils.ErrForbidden
	}
	return s.bookings.ListByPropertyID(ctx, propertyID)
}

func (s *BookingService) ListByUnit(ctx context.Context, actorID, unitID uuid.UUID) ([]*models.Booking, error) {
	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, utils.ErrNotFound
	}
	ownerID, err := s.props.GetOwnerID(ctx, unit.PropertyID)
	if err != nil {
		return nil, err
	}
	if ownerID != actorID {
		return nil, utils.ErrForbidden
	}
	return s.bookings.ListByUnitID(ctx, unitID)
}

/* ---------- status transitions ---------- */

func (s *BookingService) UpdateStatus(
	ctx context.Context,
	actorID, id uuid.UUID,
	req *dtos.UpdateBookingStatusRequest,
) (*models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
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
	role, err := roleFor(b, ownerID, actorID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(b.Status, req.Status, role) {
		return nil, utils.ErrInvalidTransition
	}

	var inv *models.Invoice
	if req.Status == models.BookingStatusActive {
		inv = BuildInvoice(b)
	}

	updated, err := s.bookings.TransitionAtomic(ctx, id, req.Status, req.RowVersion, inv)
	if err != nil {
		return updated, mapNotFound(err)
	}

	utils.Logger.WithFields(map[string]any{
		"booking_id": id,
		"from":       b.Status,
		"to":         req.Status,
	}).Info("booking status changed")

	s.publisher.Publish(ctx, events.KeyBookingStatusChanged, dtos.ToBookingResponse(updated))
	if inv != nil {
		s.publisher.Publish(ctx, events.KeyInvoiceIssued, dtos.ToInvoiceResponse(inv))
	}
	s.notifier.Notify("Booking "+string(req.Status), "booking "+id.String()+" moved to "+string(req.Status))
	return updated, nil
}

/* ---------- field updates ---------- */

func (s *BookingService) UpdateFields(
	ctx context.Context,
	actorID, id uuid.UUID,
	req *dtos.UpdateBookingFieldsRequest,
) (*models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
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
	role, err := roleFor(b, ownerID, actorID)
	if err != nil {
		return nil, err
	}
	if b.Status.IsTerminal() {
		return nil, utils.ErrStatusImmutable
	}

	datesTouched := req.StartDate != nil || req.EndDate != nil || req.ClearEnd
	priceTouched := req.TotalPrice != nil

	if role == models.RoleTenant {
		if priceTouched {
			return nil, utils.ErrForbidden
		}
		if datesTouched && b.Status != models.BookingStatusPending {
			return nil, utils.ErrForbidden
		}
	} else {
		// owners may reschedule only before the tenancy starts
		if datesTouched && b.Status == models.BookingStatusActive {
			return nil, utils.ErrForbidden
		}
	}

	next := *b
	if req.StartDate != nil {
		next.StartDate = *req.StartDate
	}
	switch {
	case req.ClearEnd:
		next.EndDate = nil
	case req.EndDate != nil:
		next.EndDate = req.EndDate
	}
	if req.TotalPrice != nil {
		next.TotalPrice = *req.TotalPrice
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
	}

	if err := validateInterval(next.StartDate, next.EndDate); err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateFieldsAtomic(ctx, &next, req.RowVersion)
	if err != nil {
		return updated, mapNotFound(err)
	}

	s.publisher.Publish(ctx, events.KeyBookingUpdated, dtos.ToBookingResponse(updated))
	return updated, nil
}

/* ---------- delete ---------- */

func (s *BookingService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return utils.ErrNotFound
	}
	ownerID, err := s.props.GetOwnerID(ctx, b.PropertyID)
	if err != nil {
		return err
	}
	role, err := roleFor(b, ownerID, actorID)
	if err != nil {
		return err
	}
	if role == models.RoleTenant && b.Status != models.BookingStatusPending {
		return utils.ErrForbidden
	}

	if err := s.bookings.DeleteAtomic(ctx, id); err != nil {
		return mapNotFound(err)
	}

	utils.Logger.WithField("booking_id", id).Info("booking deleted")
	s.publisher.Publish(ctx, events.KeyBookingDeleted, map[string]any{"id": id})
	return nil
}
