package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/casaflow/booking-service/internal/dtos"
	"github.com/casaflow/booking-service/internal/events"
	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/notifications"
	"github.com/casaflow/booking-service/internal/utils"
)

type fixture struct {
	st *fakeStore

	bookingSvc *BookingService
	requestSvc *TenantRequestService
	invoiceSvc *InvoiceService
	availSvc   *AvailabilityService

	invoiceRepo *fakeInvoiceRepo

	ownerID  uuid.UUID
	tenantID uuid.UUID
	otherID  uuid.UUID

	prop  *models.Property
	floor *models.Floor
	unitA *models.Unit
	unitB *models.Unit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newFakeStore()

	f := &fixture{
		st:       st,
		ownerID:  uuid.New(),
		tenantID: uuid.New(),
		otherID:  uuid.New(),
	}

	f.prop = &models.Property{
		ID:           uuid.New(),
		OwnerID:      f.ownerID,
		PropertyName: "Riverside House",
	}
	f.prop.RowVersion = 1
	st.props[f.prop.ID] = f.prop

	f.floor = &models.Floor{ID: uuid.New(), PropertyID: f.prop.ID, Number: 1}
	f.floor.RowVersion = 1
	st.floors[f.floor.ID] = f.floor

	f.unitA = &models.Unit{ID: uuid.New(), PropertyID: f.prop.ID, FloorID: f.floor.ID, UnitNumber: "A1"}
	f.unitA.RowVersion = 1
	f.unitB = &models.Unit{ID: uuid.New(), PropertyID: f.prop.ID, FloorID: f.floor.ID, UnitNumber: "A2"}
	f.unitB.RowVersion = 1
	st.units[f.unitA.ID] = f.unitA
	st.units[f.unitB.ID] = f.unitB

	bookings := &fakeBookingRepo{st: st}
	props := &fakePropertyRepo{st: st}
	floors := &fakeFloorRepo{st: st}
	units := &fakeUnitRepo{st: st}
	requests := &fakeTenantRequestRepo{st: st}
	f.invoiceRepo = &fakeInvoiceRepo{st: st}

	pub := events.NopPublisher{}
	notif := notifications.NopNotifier{}

	f.bookingSvc = NewBookingService(bookings, props, floors, units, pub, notif)
	f.requestSvc = NewTenantRequestService(requests, bookings, props, floors, units, pub, notif)
	f.invoiceSvc = NewInvoiceService(f.invoiceRepo, bookings, props, pub, notif)
	f.availSvc = NewAvailabilityService(bookings, props, units)
	return f
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func (f *fixture) createBooking(t *testing.T, actorID uuid.UUID, unitID *uuid.UUID, start string, end *string) *models.Booking {
	t.Helper()
	req := &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		UnitID:     unitID,
		StartDate:  date(start),
		TotalPrice: 1200,
	}
	if end != nil {
		req.EndDate = datePtr(*end)
	}
	b, err := f.bookingSvc.Create(context.Background(), actorID, req)
	require.NoError(t, err)
	return b
}

func strPtr(s string) *string { return &s }

/* ---------- create ---------- */

func TestCreateBooking_UnitHappyPath(t *testing.T) {
	f := newFixture(t)

	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	require.Equal(t, models.BookingStatusPending, b.Status)
	require.Equal(t, int64(1), b.RowVersion)
	require.False(t, b.BookedByOwner)
	require.NotNil(t, b.TenantID)
	require.Equal(t, f.tenantID, *b.TenantID)

	require.True(t, f.st.units[f.unitA.ID].Occupied)
	require.False(t, f.st.units[f.unitB.ID].Occupied)
	require.True(t, f.st.props[f.prop.ID].Occupied)
}

func TestCreateBooking_OwnerRecordsOfflineTenant(t *testing.T) {
	f := newFixture(t)

	req := &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		UnitID:     &f.unitA.ID,
		TenantID:   &f.tenantID,
		StartDate:  date("2026-10-01"),
	}
	b, err := f.bookingSvc.Create(context.Background(), f.ownerID, req)
	require.NoError(t, err)
	require.True(t, b.BookedByOwner)
	require.Equal(t, f.tenantID, *b.TenantID)
	require.Equal(t, models.BookingStatusPending, b.Status)
}

func TestCreateBooking_OverlapRejected(t *testing.T) {
	f := newFixture(t)
	first := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	_, err := f.bookingSvc.Create(context.Background(), f.otherID, &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		UnitID:     &f.unitA.ID,
		StartDate:  date("2027-01-01"),
		EndDate:    datePtr("2027-06-01"),
	})
	require.Error(t, err)
	var conflict *utils.IntervalConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, first.ID, conflict.BlockingBookingID)
	require.Equal(t, "unit", conflict.ResourceKind)
}

func TestCreateBooking_TouchingIntervalsBothSucceed(t *testing.T) {
	f := newFixture(t)
	f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))
	// second tenancy starts the instant the first ends
	f.createBooking(t, f.otherID, &f.unitA.ID, "2027-10-01", strPtr("2028-10-01"))
}

func TestCreateBooking_OpenEndedBlocksDistantFuture(t *testing.T) {
	f := newFixture(t)
	f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", nil)

	_, err := f.bookingSvc.Create(context.Background(), f.otherID, &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		UnitID:     &f.unitA.ID,
		StartDate:  date("2031-01-01"),
		EndDate:    datePtr("2031-06-01"),
	})
	var conflict *utils.IntervalConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCreateBooking_WholePropertyConflictsWithUnitBooking(t *testing.T) {
	f := newFixture(t)
	f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	// whole property overlaps the unit tenancy
	_, err := f.bookingSvc.Create(context.Background(), f.otherID, &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		StartDate:  date("2027-01-01"),
		EndDate:    datePtr("2027-03-01"),
	})
	var conflict *utils.IntervalConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "property", conflict.ResourceKind)

	// and the reverse: unit booking under an existing whole-property booking
	f2 := newFixture(t)
	f2.createBooking(t, f2.tenantID, nil, "2026-10-01", strPtr("2027-10-01"))
	_, err = f2.bookingSvc.Create(context.Background(), f2.otherID, &dtos.CreateBookingRequest{
		PropertyID: f2.prop.ID,
		UnitID:     &f2.unitB.ID,
		StartDate:  date("2027-01-01"),
		EndDate:    datePtr("2027-03-01"),
	})
	require.ErrorAs(t, err, &conflict)
}

func TestCreateBooking_DifferentUnitsDoNotConflict(t *testing.T) {
	f := newFixture(t)
	f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))
	f.createBooking(t, f.otherID, &f.unitB.ID, "2026-10-01", strPtr("2027-10-01"))
}

func TestCreateBooking_InvalidIntervals(t *testing.T) {
	f := newFixture(t)

	_, err := f.bookingSvc.Create(context.Background(), f.tenantID, &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		UnitID:     &f.unitA.ID,
		StartDate:  date("2026-10-02"),
		EndDate:    datePtr("2026-10-01"),
	})
	require.ErrorIs(t, err, utils.ErrInvalidInterval)

	start := date("2026-10-01")
	end := start.Add(2 * time.Hour)
	_, err = f.bookingSvc.Create(context.Background(), f.tenantID, &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		UnitID:     &f.unitA.ID,
		StartDate:  start,
		EndDate:    &end,
	})
	require.ErrorIs(t, err, utils.ErrDurationTooShort)
}

func TestCreateBooking_UnknownTargets(t *testing.T) {
	f := newFixture(t)

	_, err := f.bookingSvc.Create(context.Background(), f.tenantID, &dtos.CreateBookingRequest{
		PropertyID: uuid.New(),
		StartDate:  date("2026-10-01"),
	})
	require.ErrorIs(t, err, utils.ErrNotFound)

	unknown := uuid.New()
	_, err = f.bookingSvc.Create(context.Background(), f.tenantID, &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		UnitID:     &unknown,
		StartDate:  date("2026-10-01"),
	})
	require.ErrorIs(t, err, utils.ErrNotFound)

	_, err = f.bookingSvc.Create(context.Background(), f.tenantID, &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		FloorID:    &unknown,
		StartDate:  date("2026-10-01"),
	})
	require.ErrorIs(t, err, utils.ErrNotFound)
}

func TestCreateBooking_FloorTarget(t *testing.T) {
	f := newFixture(t)

	b, err := f.bookingSvc.Create(context.Background(), f.tenantID, &dtos.CreateBookingRequest{
		PropertyID: f.prop.ID,
		UnitID:     &f.unitA.ID,
		FloorID:    &f.floor.ID,
		StartDate:  date("2026-10-01"),
	})
	require.NoError(t, err)
	require.Equal(t, f.floor.ID, *b.FloorID)
}

func TestCreateBooking_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.bookingSvc.Create(context.Background(), uuid.New(), &dtos.CreateBookingRequest{
				PropertyID: f.prop.ID,
				UnitID:     &f.unitA.ID,
				StartDate:  date("2026-10-01"),
				EndDate:    datePtr("2027-10-01"),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			var conflict *utils.IntervalConflictError
			require.ErrorAs(t, err, &conflict)
		}
	}
	require.Equal(t, 1, succeeded)
}

/* ---------- transitions ---------- */

func (f *fixture) transition(t *testing.T, actorID uuid.UUID, b *models.Booking, to models.BookingStatusType) (*models.Booking, error) {
	t.Helper()
	return f.bookingSvc.UpdateStatus(context.Background(), actorID, b.ID, &dtos.UpdateBookingStatusRequest{
		Status:     to,
		RowVersion: b.RowVersion,
	})
}

func TestUpdateStatus_FullLifecycleWithInvoice(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	b, err := f.transition(t, f.ownerID, b, models.BookingStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusConfirmed, b.Status)
	require.Equal(t, int64(2), b.RowVersion)
	require.Empty(t, f.st.invoices)

	b, err = f.transition(t, f.ownerID, b, models.BookingStatusActive)
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusActive, b.Status)

	require.Len(t, f.st.invoices, 1)
	for _, inv := range f.st.invoices {
		require.Equal(t, b.ID, inv.BookingID)
		require.Equal(t, models.InvoiceStatusPending, inv.Status)
		require.Equal(t, date("2026-10-01").AddDate(0, 0, -30), inv.DueDate)
		require.Equal(t, date("2026-10-01"), inv.BillingMonth)
	}

	b, err = f.transition(t, f.ownerID, b, models.BookingStatusCompleted)
	require.NoError(t, err)
	require.True(t, b.Status.IsTerminal())
	require.False(t, f.st.units[f.unitA.ID].Occupied)
	require.False(t, f.st.props[f.prop.ID].Occupied)
}

func TestUpdateStatus_RoleGating(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	// tenant cannot confirm
	_, err := f.transition(t, f.tenantID, b, models.BookingStatusConfirmed)
	require.ErrorIs(t, err, utils.ErrInvalidTransition)

	// stranger cannot touch it at all
	_, err = f.transition(t, f.otherID, b, models.BookingStatusConfirmed)
	require.ErrorIs(t, err, utils.ErrForbidden)

	// tenant can cancel while pending
	b2, err := f.transition(t, f.tenantID, b, models.BookingStatusCancelledByTenant)
	require.NoError(t, err)
	require.Equal(t, models.BookingStatusCancelledByTenant, b2.Status)
}

func TestUpdateStatus_NoSkippingAndNoTerminalExit(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	// PENDING -> ACTIVE skips CONFIRMED
	_, err := f.transition(t, f.ownerID, b, models.BookingStatusActive)
	require.ErrorIs(t, err, utils.ErrInvalidTransition)

	b, err = f.transition(t, f.ownerID, b, models.BookingStatusRejected)
	require.NoError(t, err)

	// terminal states have no exits
	_, err = f.transition(t, f.ownerID, b, models.BookingStatusConfirmed)
	require.ErrorIs(t, err, utils.ErrInvalidTransition)
}

func TestUpdateStatus_StaleVersionConflict(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	_, err := f.transition(t, f.ownerID, b, models.BookingStatusConfirmed)
	require.NoError(t, err)

	// retry with the stale version
	_, err = f.bookingSvc.UpdateStatus(context.Background(), f.ownerID, b.ID, &dtos.UpdateBookingStatusRequest{
		Status:     models.BookingStatusConfirmed,
		RowVersion: b.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrInvalidTransition)
}

func TestUpdateStatus_InvoiceIdempotentOnRetry(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))
	b, err := f.transition(t, f.ownerID, b, models.BookingStatusConfirmed)
	require.NoError(t, err)

	// a repeated activation attempt cannot produce a second invoice
	_, err1 := f.transition(t, f.ownerID, b, models.BookingStatusActive)
	_, err2 := f.transition(t, f.ownerID, b, models.BookingStatusActive)
	require.True(t, (err1 == nil) != (err2 == nil))
	require.Len(t, f.st.invoices, 1)
}

func TestUpdateStatus_TerminalReleaseKeepsOtherOccupants(t *testing.T) {
	f := newFixture(t)
	a := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))
	f.createBooking(t, f.otherID, &f.unitB.ID, "2026-10-01", strPtr("2027-10-01"))

	_, err := f.transition(t, f.tenantID, a, models.BookingStatusCancelledByTenant)
	require.NoError(t, err)

	require.False(t, f.st.units[f.unitA.ID].Occupied)
	require.True(t, f.st.units[f.unitB.ID].Occupied)
	// property still has an occupying booking
	require.True(t, f.st.props[f.prop.ID].Occupied)
}

/* ---------- field updates ---------- */

func TestUpdateFields_TenantRules(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	// tenant reschedules while PENDING
	updated, err := f.bookingSvc.UpdateFields(context.Background(), f.tenantID, b.ID, &dtos.UpdateBookingFieldsRequest{
		StartDate:  datePtr("2026-11-01"),
		RowVersion: b.RowVersion,
	})
	require.NoError(t, err)
	require.Equal(t, date("2026-11-01"), updated.StartDate)

	// tenant cannot change the price
	price := 999.0
	_, err = f.bookingSvc.UpdateFields(context.Background(), f.tenantID, b.ID, &dtos.UpdateBookingFieldsRequest{
		TotalPrice: &price,
		RowVersion: updated.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrForbidden)

	// once confirmed, tenant date edits are rejected, notes still fine
	confirmed, err := f.transition(t, f.ownerID, updated, models.BookingStatusConfirmed)
	require.NoError(t, err)

	_, err = f.bookingSvc.UpdateFields(context.Background(), f.tenantID, b.ID, &dtos.UpdateBookingFieldsRequest{
		StartDate:  datePtr("2026-12-01"),
		RowVersion: confirmed.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrForbidden)

	notes := "late arrival"
	withNotes, err := f.bookingSvc.UpdateFields(context.Background(), f.tenantID, b.ID, &dtos.UpdateBookingFieldsRequest{
		Notes:      &notes,
		RowVersion: confirmed.RowVersion,
	})
	require.NoError(t, err)
	require.Equal(t, notes, withNotes.Notes)
}

func TestUpdateFields_DateChangeOverlapRejected(t *testing.T) {
	f := newFixture(t)
	f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))
	b := f.createBooking(t, f.otherID, &f.unitA.ID, "2027-10-01", strPtr("2028-10-01"))

	_, err := f.bookingSvc.UpdateFields(context.Background(), f.otherID, b.ID, &dtos.UpdateBookingFieldsRequest{
		StartDate:  datePtr("2027-01-01"),
		RowVersion: b.RowVersion,
	})
	var conflict *utils.IntervalConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestUpdateFields_TerminalBookingImmutable(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))
	b, err := f.transition(t, f.ownerID, b, models.BookingStatusRejected)
	require.NoError(t, err)

	notes := "x"
	_, err = f.bookingSvc.UpdateFields(context.Background(), f.ownerID, b.ID, &dtos.UpdateBookingFieldsRequest{
		Notes:      &notes,
		RowVersion: b.RowVersion,
	})
	require.ErrorIs(t, err, utils.ErrStatusImmutable)
}

/* ---------- delete ---------- */

func TestDelete_Rules(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	// stranger forbidden
	require.ErrorIs(t, f.bookingSvc.Delete(context.Background(), f.otherID, b.ID), utils.ErrForbidden)

	// tenant may delete while PENDING; occupancy is released
	require.NoError(t, f.bookingSvc.Delete(context.Background(), f.tenantID, b.ID))
	require.False(t, f.st.units[f.unitA.ID].Occupied)
	require.False(t, f.st.props[f.prop.ID].Occupied)

	// tenant cannot delete once confirmed; owner can
	b2 := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))
	b2, err := f.transition(t, f.ownerID, b2, models.BookingStatusConfirmed)
	require.NoError(t, err)
	require.ErrorIs(t, f.bookingSvc.Delete(context.Background(), f.tenantID, b2.ID), utils.ErrForbidden)
	require.NoError(t, f.bookingSvc.Delete(context.Background(), f.ownerID, b2.ID))
}

// An owner delete must go through even after activation has attached an
// invoice and a cancellation request references the booking.
func TestDelete_CleansUpDependents(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))
	b, err := f.transition(t, f.ownerID, b, models.BookingStatusConfirmed)
	require.NoError(t, err)
	b, err = f.transition(t, f.ownerID, b, models.BookingStatusActive)
	require.NoError(t, err)
	require.Len(t, f.st.invoices, 1)

	tr, err := f.requestSvc.Create(context.Background(), f.tenantID, &dtos.CreateTenantRequestRequest{
		Type:       models.RequestTypeCancellation,
		PropertyID: f.prop.ID,
		BookingID:  &b.ID,
	})
	require.NoError(t, err)

	require.NoError(t, f.bookingSvc.Delete(context.Background(), f.ownerID, b.ID))

	require.Empty(t, f.st.bookings)
	require.Empty(t, f.st.invoices)
	// the request survives as history, detached from the gone booking
	require.Nil(t, f.st.requests[tr.ID].BookingID)
	require.False(t, f.st.units[f.unitA.ID].Occupied)
	require.False(t, f.st.props[f.prop.ID].Occupied)
}

/* ---------- availability ---------- */

func TestAvailability_Checks(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	res, err := f.availSvc.CheckUnit(context.Background(), f.unitA.ID, date("2027-01-01"), datePtr("2027-02-01"))
	require.NoError(t, err)
	require.False(t, res.Available)
	require.Equal(t, b.ID, *res.BlockingBookingID)

	// the interval starting exactly at the end is free
	res, err = f.availSvc.CheckUnit(context.Background(), f.unitA.ID, date("2027-10-01"), datePtr("2028-10-01"))
	require.NoError(t, err)
	require.True(t, res.Available)

	// the other unit is free, but the property as a whole is not
	res, err = f.availSvc.CheckUnit(context.Background(), f.unitB.ID, date("2027-01-01"), datePtr("2027-02-01"))
	require.NoError(t, err)
	require.True(t, res.Available)

	res, err = f.availSvc.CheckProperty(context.Background(), f.prop.ID, date("2027-01-01"), datePtr("2027-02-01"))
	require.NoError(t, err)
	require.False(t, res.Available)

	_, err = f.availSvc.CheckUnit(context.Background(), uuid.New(), date("2027-01-01"), nil)
	require.ErrorIs(t, err, utils.ErrNotFound)
}

/* ---------- occupancy reconciliation ---------- */

func TestOccupancyReconciler_CorrectsDrift(t *testing.T) {
	f := newFixture(t)
	f.createBooking(t, f.tenantID, &f.unitA.ID, "2026-10-01", strPtr("2027-10-01"))

	// simulate drift
	f.st.units[f.unitA.ID].Occupied = false
	f.st.props[f.prop.ID].Occupied = false
	f.st.units[f.unitB.ID].Occupied = true

	reconciler := NewOccupancyReconciler(&fakeBookingRepo{st: f.st})
	require.NoError(t, reconciler.Run(context.Background()))

	require.True(t, f.st.units[f.unitA.ID].Occupied)
	require.False(t, f.st.units[f.unitB.ID].Occupied)
	require.True(t, f.st.props[f.prop.ID].Occupied)
}
