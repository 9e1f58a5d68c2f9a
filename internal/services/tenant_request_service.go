package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/casaflow/booking-service/internal/dtos"
	"github.com/casaflow/booking-service/internal/events"
	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/notifications"
	"github.com/casaflow/booking-service/internal/repositories"
	"github.com/casaflow/booking-service/internal/utils"
)

type TenantRequestService struct {
	requests  repositories.TenantRequestRepository
	bookings  repositories.BookingRepository
	props     repositories.PropertyRepository
	floors    repositories.FloorRepository
	units     repositories.UnitRepository
	publisher events.Publisher
	notifier  notifications.Notifier
}

func NewTenantRequestService(
	requests repositories.TenantRequestRepository,
	bookings repositories.BookingRepository,
	props repositories.PropertyRepository,
	floors repositories.FloorRepository,
	units repositories.UnitRepository,
	publisher events.Publisher,
	notifier notifications.Notifier,
) *TenantRequestService {
	return &TenantRequestService{
		requests:  requests,
		bookings:  bookings,
		props:     props,
		floors:    floors,
		units:     units,
		publisher: publisher,
		notifier:  notifier,
	}
}

/* ---------- create ---------- */

func (s *TenantRequestService) Create(
	ctx context.Context,
	tenantID uuid.UUID,
	req *dtos.CreateTenantRequestRequest,
) (*models.TenantRequest, error) {
	prop, err := s.props.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, utils.ErrNotFound
	}
	if tenantID == prop.OwnerID {
		return nil, utils.ErrSelfRequest
	}

	tr := &models.TenantRequest{
		ID:         uuid.New(),
		Type:       req.Type,
		TenantID:   tenantID,
		OwnerID:    prop.OwnerID,
		PropertyID: prop.ID,
		FloorID:    req.FloorID,
		UnitID:     req.UnitID,
		BookingID:  req.BookingID,
		Status:     models.RequestStatusPending,
		Message:    req.Message,

		PreferredMoveIn: req.PreferredMoveIn,
		PreferredEnd:    req.PreferredEnd,
		MonthlyOffer:    req.MonthlyOffer,
		DurationMonths:  req.DurationMonths,
	}

	if tr.FloorID != nil {
		floor, err := s.floors.GetByID(ctx, *tr.FloorID)
		if err != nil {
			return nil, err
		}
		if floor == nil || floor.PropertyID != prop.ID {
			return nil, utils.ErrNotFound
		}
	}

	switch req.Type {
	case models.RequestTypeBooking:
		if err := s.validateBookingRequest(ctx, prop, tr); err != nil {
			return nil, err
		}
	case models.RequestTypeCancellation:
		if err := s.validateCancellationRequest(ctx, tenantID, tr); err != nil {
			return nil, err
		}
	}

	// one open request per tenant per target, regardless of type
	existing, err := s.requests.FindOpenByTenantAndTarget(ctx, tenantID, tr.PropertyID, tr.UnitID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.ErrDuplicateRequest
	}

	if err := s.requests.Create(ctx, tr); err != nil {
		return nil, err
	}

	utils.Logger.WithFields(map[string]any{
		"request_id": tr.ID,
		"type":       tr.Type,
	}).Info("tenant request created")
	s.publisher.Publish(ctx, events.KeyRequestCreated, dtos.ToTenantRequestResponse(tr))
	s.notifier.Notify("New tenant request", string(tr.Type)+" request "+tr.ID.String()+" for property "+prop.ID.String())
	return tr, nil
}

func (s *TenantRequestService) validateBookingRequest(
	ctx context.Context,
	prop *models.Property,
	tr *models.TenantRequest,
) error {
	if tr.PreferredMoveIn == nil {
		return utils.ErrInvalidInterval
	}
	if tr.PreferredEnd == nil && tr.DurationMonths > 0 {
		end := tr.PreferredMoveIn.AddDate(0, tr.DurationMonths, 0)
		tr.PreferredEnd = &end
	}
	if err := validateInterval(*tr.PreferredMoveIn, tr.PreferredEnd); err != nil {
		return err
	}

	// fail-fast on the cached flags; acceptance re-verifies under locks
	if tr.UnitID != nil {
		unit, err := s.units.GetByID(ctx, *tr.UnitID)
		if err != nil {
			return err
		}
		if unit == nil || unit.PropertyID != prop.ID {
			return utils.ErrNotFound
		}
		if unit.Occupied {
			return utils.ErrUnitOccupied
		}
		if tr.FloorID == nil {
			tr.FloorID = &unit.FloorID
		}
	} else if prop.Occupied {
		return utils.ErrUnitOccupied
	}
	return nil
}

func (s *TenantRequestService) validateCancellationRequest(
	ctx context.Context,
	tenantID uuid.UUID,
	tr *models.TenantRequest,
) error {
	if tr.BookingID == nil {
		return utils.ErrNotFound
	}
	b, err := s.bookings.GetByID(ctx, *tr.BookingID)
	if err != nil {
		return err
	}
	if b == nil {
		return utils.ErrNotFound
	}
	if b.TenantID == nil || *b.TenantID != tenantID {
		return utils.ErrForbidden
	}
	if !models.CanTransition(b.Status, models.BookingStatusCancelledByTenant, models.RoleTenant) {
		return utils.ErrInvalidTransition
	}
	// target the booking's actual resource
	tr.PropertyID = b.PropertyID
	tr.FloorID = b.FloorID
	tr.UnitID = b.UnitID
	return nil
}

/* ---------- reads ---------- */

func (s *TenantRequestService) Get(ctx context.Context, actorID, id uuid.UUID) (*models.TenantRequest, error) {
	tr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, utils.ErrNotFound
	}
	if actorID != tr.TenantID && actorID != tr.OwnerID {
		return nil, utils.ErrForbidden
	}
	return tr, nil
}

func (s *TenantRequestService) ListMine(ctx context.Context, tenantID uuid.UUID, typ models.TenantRequestType) ([]*models.TenantRequest, error) {
	list, err := s.requests.ListByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return filterByType(list, typ), nil
}

func (s *TenantRequestService) ListIncoming(ctx context.Context, ownerID uuid.UUID, typ models.TenantRequestType) ([]*models.TenantRequest, error) {
	list, err := s.requests.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return filterByType(list, typ), nil
}

func filterByType(list []*models.TenantRequest, typ models.TenantRequestType) []*models.TenantRequest {
	if typ == "" {
		return list
	}
	out := list[:0:0]
	for _, tr := range list {
		if tr.Type == typ {
			out = append(out, tr)
		}
	}
	return out
}

/* ---------- resolution ---------- */

// UpdateStatus resolves a PENDING request. Only the owner decides.
// Accepting a BOOKING request creates the booking atomically; a
// conflicting interval rolls the whole acceptance back and the request
// stays PENDING. Accepting a CANCELLATION cancels the target booking.
func (s *TenantRequestService) UpdateStatus(
	ctx context.Context,
	actorID, id uuid.UUID,
	req *dtos.UpdateTenantRequestStatusRequest,
) (*models.TenantRequest, error) {
	tr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, utils.ErrNotFound
	}
	if actorID != tr.OwnerID {
		return nil, utils.ErrForbidden
	}
	if tr.Status.IsTerminal() {
		return nil, utils.ErrInvalidTransition
	}

	var resolved *models.TenantRequest
	switch {
	case req.Status == models.RequestStatusRejected:
		resolved, err = s.requests.ResolveAtomic(ctx, id, models.RequestStatusRejected, req.RowVersion)

	case tr.Type == models.RequestTypeBooking:
		resolved, err = s.acceptBooking(ctx, tr, req.RowVersion)

	case tr.Type == models.RequestTypeCancellation:
		resolved, err = s.acceptCancellation(ctx, tr, req.RowVersion)

	default: // maintenance has no side effects
		resolved, err = s.requests.ResolveAtomic(ctx, id, models.RequestStatusAccepted, req.RowVersion)
	}
	if err != nil {
		return resolved, mapNotFound(err)
	}

	utils.Logger.WithFields(map[string]any{
		"request_id": id,
		"status":     req.Status,
	}).Info("tenant request resolved")
	s.publisher.Publish(ctx, events.KeyRequestResolved, dtos.ToTenantRequestResponse(resolved))
	s.notifier.Notify("Request "+string(req.Status), string(tr.Type)+" request "+id.String()+" was "+string(req.Status))
	return resolved, nil
}

func (s *TenantRequestService) acceptBooking(
	ctx context.Context,
	tr *models.TenantRequest,
	expectedVersion int64,
) (*models.TenantRequest, error) {
	if tr.PreferredMoveIn == nil {
		return nil, utils.ErrInvalidInterval
	}

	price := tr.MonthlyOffer
	if tr.DurationMonths > 0 {
		price = tr.MonthlyOffer * float64(tr.DurationMonths)
	}

	b := &models.Booking{
		ID:            uuid.New(),
		TenantID:      &tr.TenantID,
		PropertyID:    tr.PropertyID,
		FloorID:       tr.FloorID,
		UnitID:        tr.UnitID,
		FromRequestID: &tr.ID,
		StartDate:     *tr.PreferredMoveIn,
		EndDate:       tr.PreferredEnd,
		Status:        models.BookingStatusPending,
		TotalPrice:    price,
		Notes:         tr.Message,
	}

	resolved, err := s.requests.AcceptBookingAtomic(ctx, tr.ID, expectedVersion, b)
	if err != nil {
		return resolved, err
	}

	s.publisher.Publish(ctx, events.KeyBookingCreated, dtos.ToBookingResponse(b))
	return resolved, nil
}

func (s *TenantRequestService) acceptCancellation(
	ctx context.Context,
	tr *models.TenantRequest,
	expectedVersion int64,
) (*models.TenantRequest, error) {
	resolved, b, err := s.requests.AcceptCancellationAtomic(ctx, tr.ID, expectedVersion)
	if err != nil {
		return resolved, err
	}

	s.publisher.Publish(ctx, events.KeyBookingStatusChanged, dtos.ToBookingResponse(b))
	return resolved, nil
}

func (s *TenantRequestService) MarkSeen(ctx context.Context, actorID, id uuid.UUID) error {
	tr, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tr == nil {
		return utils.ErrNotFound
	}
	if actorID != tr.OwnerID {
		return utils.ErrForbidden
	}
	return mapNotFound(s.requests.MarkSeen(ctx, id))
}
