package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/casaflow/booking-service/internal/dtos"
	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/repositories"
	"github.com/casaflow/booking-service/internal/utils"
)

// AvailabilityService answers "is this resource free for [start,end)?".
// Results are advisory: the authoritative check happens again inside the
// booking transaction under row locks.
type AvailabilityService struct {
	bookings repositories.BookingRepository
	props    repositories.PropertyRepository
	units    repositories.UnitRepository
}

func NewAvailabilityService(
	bookings repositories.BookingRepository,
	props repositories.PropertyRepository,
	units repositories.UnitRepository,
) *AvailabilityService {
	return &AvailabilityService{bookings: bookings, props: props, units: units}
}

func (s *AvailabilityService) CheckUnit(
	ctx context.Context,
	unitID uuid.UUID,
	start time.Time,
	end *time.Time,
) (*dtos.AvailabilityResponse, error) {
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}
	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, utils.ErrNotFound
	}

	blocking, err := s.bookings.FindOverlapping(ctx, unit.PropertyID, &unitID, start, end, uuid.Nil)
	if err != nil {
		return nil, err
	}
	return toAvailability(blocking), nil
}

// CheckProperty treats the property as the union of its units: it is
// available only when no occupying booking overlaps anywhere under it.
func (s *AvailabilityService) CheckProperty(
	ctx context.Context,
	propertyID uuid.UUID,
	start time.Time,
	end *time.Time,
) (*dtos.AvailabilityResponse, error) {
	if err := validateInterval(start, end); err != nil {
		return nil, err
	}
	prop, err := s.props.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, utils.ErrNotFound
	}

	blocking, err := s.bookings.FindOverlapping(ctx, propertyID, nil, start, end, uuid.Nil)
	if err != nil {
		return nil, err
	}
	return toAvailability(blocking), nil
}

func toAvailability(blocking []*models.Booking) *dtos.AvailabilityResponse {
	if len(blocking) == 0 {
		return &dtos.AvailabilityResponse{Available: true}
	}
	id := blocking[0].ID
	return &dtos.AvailabilityResponse{Available: false, BlockingBookingID: &id}
}
