package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/utils"
)

// fakeStore backs the in-memory repositories. A single mutex gives the
// fakes the same serialization guarantees the real repositories get from
// row locks, so the concurrency tests exercise real interleavings.
type fakeStore struct {
	mu       sync.Mutex
	props    map[uuid.UUID]*models.Property
	floors   map[uuid.UUID]*models.Floor
	units    map[uuid.UUID]*models.Unit
	bookings map[uuid.UUID]*models.Booking
	requests map[uuid.UUID]*models.TenantRequest
	invoices map[uuid.UUID]*models.Invoice
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		props:    map[uuid.UUID]*models.Property{},
		floors:   map[uuid.UUID]*models.Floor{},
		units:    map[uuid.UUID]*models.Unit{},
		bookings: map[uuid.UUID]*models.Booking{},
		requests: map[uuid.UUID]*models.TenantRequest{},
		invoices: map[uuid.UUID]*models.Invoice{},
	}
}

func cloneBooking(b *models.Booking) *models.Booking {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

func cloneRequest(tr *models.TenantRequest) *models.TenantRequest {
	if tr == nil {
		return nil
	}
	c := *tr
	return &c
}

func cloneInvoice(inv *models.Invoice) *models.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.LineItems = append([]models.InvoiceLineItem(nil), inv.LineItems...)
	return &c
}

// overlapping mirrors the SQL overlap predicate: whole-property targets
// conflict with anything under the property; unit targets conflict with
// that unit plus whole-property bookings.
func (st *fakeStore) overlapping(propertyID uuid.UUID, unitID *uuid.UUID, start time.Time, end *time.Time, exclude uuid.UUID) *models.Booking {
	for _, b := range st.bookings {
		if b.ID == exclude || !b.Status.IsOccupying() {
			continue
		}
		var covers bool
		if unitID == nil {
			covers = b.PropertyID == propertyID
		} else {
			covers = (b.UnitID != nil && *b.UnitID == *unitID) ||
				(b.UnitID == nil && b.PropertyID == propertyID)
		}
		if covers && b.Overlaps(start, end) {
			return b
		}
	}
	return nil
}

func (st *fakeStore) unitsOf(propertyID uuid.UUID) []*models.Unit {
	var out []*models.Unit
	for _, u := range st.units {
		if u.PropertyID == propertyID && u.DeletedAt == nil {
			out = append(out, u)
		}
	}
	return out
}

func (st *fakeStore) recomputeOccupancy() int64 {
	var changed int64
	for _, u := range st.units {
		want := false
		for _, b := range st.bookings {
			if !b.Status.IsOccupying() {
				continue
			}
			if (b.UnitID != nil && *b.UnitID == u.ID) || (b.UnitID == nil && b.PropertyID == u.PropertyID) {
				want = true
				break
			}
		}
		if u.Occupied != want {
			u.Occupied = want
			changed++
		}
	}
	for _, p := range st.props {
		want := false
		for _, b := range st.bookings {
			if b.Status.IsOccupying() && b.PropertyID == p.ID {
				want = true
				break
			}
		}
		if p.Occupied != want {
			p.Occupied = want
			changed++
		}
	}
	return changed
}

func (st *fakeStore) setOccupiedFor(b *models.Booking) {
	if b.UnitID != nil {
		if u, ok := st.units[*b.UnitID]; ok {
			u.Occupied = true
		}
	} else {
		for _, u := range st.unitsOf(b.PropertyID) {
			u.Occupied = true
		}
	}
	if p, ok := st.props[b.PropertyID]; ok {
		p.Occupied = true
	}
}

func (st *fakeStore) intervalConflict(b *models.Booking, blocking *models.Booking) error {
	if b.UnitID != nil {
		return utils.NewIntervalConflictError("unit", *b.UnitID, blocking.ID)
	}
	return utils.NewIntervalConflictError("property", b.PropertyID, blocking.ID)
}

/* ───────────── property repo ───────────── */

type fakePropertyRepo struct{ st *fakeStore }

func (r *fakePropertyRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Property, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.props[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r *fakePropertyRepo) GetOwnerID(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.props[id]
	if !ok || p.DeletedAt != nil {
		return uuid.Nil, nil
	}
	return p.OwnerID, nil
}

/* ───────────── floor repo ───────────── */

type fakeFloorRepo struct{ st *fakeStore }

func (r *fakeFloorRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Floor, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	f, ok := r.st.floors[id]
	if !ok || f.DeletedAt != nil {
		return nil, nil
	}
	c := *f
	return &c, nil
}

/* ───────────── unit repo ───────────── */

type fakeUnitRepo struct{ st *fakeStore }

func (r *fakeUnitRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Unit, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	u, ok := r.st.units[id]
	if !ok || u.DeletedAt != nil {
		return nil, nil
	}
	c := *u
	return &c, nil
}

/* ───────────── booking repo ───────────── */

type fakeBookingRepo struct{ st *fakeStore }

func (r *fakeBookingRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return cloneBooking(r.st.bookings[id]), nil
}

func (r *fakeBookingRepo) ListByTenantID(_ context.Context, tenantID uuid.UUID) ([]*models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.st.bookings {
		if b.TenantID != nil && *b.TenantID == tenantID {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) listByOwner(ownerID uuid.UUID, ownerCreated bool) []*models.Booking {
	var out []*models.Booking
	for _, b := range r.st.bookings {
		p, ok := r.st.props[b.PropertyID]
		if ok && p.OwnerID == ownerID && b.BookedByOwner == ownerCreated {
			out = append(out, cloneBooking(b))
		}
	}
	return out
}

func (r *fakeBookingRepo) ListForOwnerProperties(_ context.Context, ownerID uuid.UUID) ([]*models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.listByOwner(ownerID, false), nil
}

func (r *fakeBookingRepo) ListOwnerCreated(_ context.Context, ownerID uuid.UUID) ([]*models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.listByOwner(ownerID, true), nil
}

func (r *fakeBookingRepo) ListByPropertyID(_ context.Context, propertyID uuid.UUID) ([]*models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.st.bookings {
		if b.PropertyID == propertyID {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) ListByUnitID(_ context.Context, unitID uuid.UUID) ([]*models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Booking
	for _, b := range r.st.bookings {
		if b.UnitID != nil && *b.UnitID == unitID {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindOverlapping(
	_ context.Context,
	propertyID uuid.UUID,
	unitID *uuid.UUID,
	start time.Time,
	end *time.Time,
	excludeBookingID uuid.UUID,
) ([]*models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Booking
	if b := r.st.overlapping(propertyID, unitID, start, end, excludeBookingID); b != nil {
		out = append(out, cloneBooking(b))
	}
	return out, nil
}

func (r *fakeBookingRepo) CreateAtomic(_ context.Context, b *models.Booking) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if len(r.st.unitsOf(b.PropertyID)) == 0 {
		return utils.ErrNoUnits
	}
	if blocking := r.st.overlapping(b.PropertyID, b.UnitID, b.StartDate, b.EndDate, b.ID); blocking != nil {
		return r.st.intervalConflict(b, blocking)
	}

	b.RowVersion = 1
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	r.st.bookings[b.ID] = cloneBooking(b)
	r.st.setOccupiedFor(b)
	return nil
}

func (r *fakeBookingRepo) TransitionAtomic(
	_ context.Context,
	bookingID uuid.UUID,
	newStatus models.BookingStatusType,
	expectedVersion int64,
	inv *models.Invoice,
) (*models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	b, ok := r.st.bookings[bookingID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if b.RowVersion != expectedVersion {
		return cloneBooking(b), utils.NewRowVersionConflictError(cloneBooking(b))
	}

	if inv != nil {
		exists := false
		for _, existing := range r.st.invoices {
			if existing.BookingID == bookingID && existing.BillingMonth.Equal(inv.BillingMonth) {
				exists = true
				break
			}
		}
		if !exists {
			stored := cloneInvoice(inv)
			stored.RowVersion = 1
			stored.CreatedAt = time.Now()
			stored.UpdatedAt = stored.CreatedAt
			r.st.invoices[stored.ID] = stored
		}
	}

	b.Status = newStatus
	b.RowVersion++
	b.UpdatedAt = time.Now()
	if newStatus.IsTerminal() {
		r.st.recomputeOccupancy()
	}
	return cloneBooking(b), nil
}

func (r *fakeBookingRepo) UpdateFieldsAtomic(_ context.Context, next *models.Booking, expectedVersion int64) (*models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	b, ok := r.st.bookings[next.ID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if b.RowVersion != expectedVersion {
		return cloneBooking(b), utils.NewRowVersionConflictError(cloneBooking(b))
	}

	datesChanged := !b.StartDate.Equal(next.StartDate) ||
		(b.EndDate == nil) != (next.EndDate == nil) ||
		(b.EndDate != nil && next.EndDate != nil && !b.EndDate.Equal(*next.EndDate))
	if datesChanged {
		if blocking := r.st.overlapping(b.PropertyID, b.UnitID, next.StartDate, next.EndDate, b.ID); blocking != nil {
			return nil, r.st.intervalConflict(b, blocking)
		}
	}

	b.StartDate = next.StartDate
	b.EndDate = next.EndDate
	b.TotalPrice = next.TotalPrice
	b.Notes = next.Notes
	b.RowVersion++
	b.UpdatedAt = time.Now()
	return cloneBooking(b), nil
}

func (r *fakeBookingRepo) DeleteAtomic(_ context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if _, ok := r.st.bookings[id]; !ok {
		return pgx.ErrNoRows
	}
	for _, tr := range r.st.requests {
		if tr.BookingID != nil && *tr.BookingID == id {
			tr.BookingID = nil
		}
	}
	for invID, inv := range r.st.invoices {
		if inv.BookingID == id {
			delete(r.st.invoices, invID)
		}
	}
	delete(r.st.bookings, id)
	r.st.recomputeOccupancy()
	return nil
}

func (r *fakeBookingRepo) ReconcileOccupancy(_ context.Context) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return r.st.recomputeOccupancy(), nil
}

/* ───────────── tenant request repo ───────────── */

type fakeTenantRequestRepo struct{ st *fakeStore }

func (r *fakeTenantRequestRepo) Create(_ context.Context, tr *models.TenantRequest) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	tr.RowVersion = 1
	tr.CreatedAt = time.Now()
	tr.UpdatedAt = tr.CreatedAt
	r.st.requests[tr.ID] = cloneRequest(tr)
	return nil
}

func (r *fakeTenantRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*models.TenantRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return cloneRequest(r.st.requests[id]), nil
}

func (r *fakeTenantRequestRepo) ListByTenantID(_ context.Context, tenantID uuid.UUID) ([]*models.TenantRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.TenantRequest
	for _, tr := range r.st.requests {
		if tr.TenantID == tenantID {
			out = append(out, cloneRequest(tr))
		}
	}
	return out, nil
}

func (r *fakeTenantRequestRepo) ListByOwnerID(_ context.Context, ownerID uuid.UUID) ([]*models.TenantRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.TenantRequest
	for _, tr := range r.st.requests {
		if tr.OwnerID == ownerID {
			out = append(out, cloneRequest(tr))
		}
	}
	return out, nil
}

func (r *fakeTenantRequestRepo) FindOpenByTenantAndTarget(
	_ context.Context,
	tenantID uuid.UUID,
	propertyID uuid.UUID,
	unitID *uuid.UUID,
) (*models.TenantRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, tr := range r.st.requests {
		if tr.TenantID != tenantID || tr.PropertyID != propertyID {
			continue
		}
		if tr.Status != models.RequestStatusPending {
			continue
		}
		sameUnit := (tr.UnitID == nil && unitID == nil) ||
			(tr.UnitID != nil && unitID != nil && *tr.UnitID == *unitID)
		if sameUnit {
			return cloneRequest(tr), nil
		}
	}
	return nil, nil
}

func (r *fakeTenantRequestRepo) lockPending(requestID uuid.UUID, expectedVersion int64) (*models.TenantRequest, error) {
	tr, ok := r.st.requests[requestID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if tr.RowVersion != expectedVersion {
		return cloneRequest(tr), utils.NewRowVersionConflictError(cloneRequest(tr))
	}
	if tr.Status != models.RequestStatusPending {
		return cloneRequest(tr), utils.ErrInvalidTransition
	}
	return tr, nil
}

func (r *fakeTenantRequestRepo) AcceptBookingAtomic(
	_ context.Context,
	requestID uuid.UUID,
	expectedVersion int64,
	b *models.Booking,
) (*models.TenantRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	tr, err := r.lockPending(requestID, expectedVersion)
	if err != nil {
		return tr, err
	}
	if len(r.st.unitsOf(b.PropertyID)) == 0 {
		return nil, utils.ErrNoUnits
	}
	if blocking := r.st.overlapping(b.PropertyID, b.UnitID, b.StartDate, b.EndDate, b.ID); blocking != nil {
		// whole acceptance rolls back; the request stays PENDING
		return nil, r.st.intervalConflict(b, blocking)
	}

	b.RowVersion = 1
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	r.st.bookings[b.ID] = cloneBooking(b)
	r.st.setOccupiedFor(b)

	tr.Status = models.RequestStatusAccepted
	tr.RowVersion++
	tr.UpdatedAt = time.Now()
	return cloneRequest(tr), nil
}

func (r *fakeTenantRequestRepo) AcceptCancellationAtomic(
	_ context.Context,
	requestID uuid.UUID,
	expectedVersion int64,
) (*models.TenantRequest, *models.Booking, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	tr, err := r.lockPending(requestID, expectedVersion)
	if err != nil {
		return tr, nil, err
	}
	if tr.BookingID == nil {
		return cloneRequest(tr), nil, utils.ErrNotFound
	}
	b, ok := r.st.bookings[*tr.BookingID]
	if !ok {
		return cloneRequest(tr), nil, utils.ErrNotFound
	}
	if !models.CanTransition(b.Status, models.BookingStatusCancelledByTenant, models.RoleTenant) {
		return cloneRequest(tr), cloneBooking(b), utils.ErrInvalidTransition
	}

	b.Status = models.BookingStatusCancelledByTenant
	b.RowVersion++
	b.UpdatedAt = time.Now()
	r.st.recomputeOccupancy()

	tr.Status = models.RequestStatusAccepted
	tr.RowVersion++
	tr.UpdatedAt = time.Now()
	return cloneRequest(tr), cloneBooking(b), nil
}

func (r *fakeTenantRequestRepo) ResolveAtomic(
	_ context.Context,
	requestID uuid.UUID,
	newStatus models.TenantRequestStatusType,
	expectedVersion int64,
) (*models.TenantRequest, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	tr, err := r.lockPending(requestID, expectedVersion)
	if err != nil {
		return tr, err
	}
	tr.Status = newStatus
	tr.RowVersion++
	tr.UpdatedAt = time.Now()
	return cloneRequest(tr), nil
}

func (r *fakeTenantRequestRepo) MarkSeen(_ context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	tr, ok := r.st.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	tr.IsSeen = true
	tr.RowVersion++
	tr.UpdatedAt = time.Now()
	return nil
}

/* ───────────── invoice repo ───────────── */

type fakeInvoiceRepo struct{ st *fakeStore }

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *models.Invoice) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, existing := range r.st.invoices {
		if existing.BookingID == inv.BookingID && existing.BillingMonth.Equal(inv.BillingMonth) {
			return utils.ErrDuplicateInvoice
		}
	}
	inv.RowVersion = 1
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	r.st.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return cloneInvoice(r.st.invoices[id]), nil
}

func (r *fakeInvoiceRepo) GetByBookingAndMonth(_ context.Context, bookingID uuid.UUID, billingMonth time.Time) (*models.Invoice, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, inv := range r.st.invoices {
		if inv.BookingID == bookingID && inv.BillingMonth.Equal(billingMonth) {
			return cloneInvoice(inv), nil
		}
	}
	return nil, nil
}

func (r *fakeInvoiceRepo) ListByBookingID(_ context.Context, bookingID uuid.UUID) ([]*models.Invoice, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Invoice
	for _, inv := range r.st.invoices {
		if inv.BookingID == bookingID {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListForTenant(_ context.Context, tenantID uuid.UUID) ([]*models.Invoice, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Invoice
	for _, inv := range r.st.invoices {
		b, ok := r.st.bookings[inv.BookingID]
		if ok && b.TenantID != nil && *b.TenantID == tenantID {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListForOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Invoice, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*models.Invoice
	for _, inv := range r.st.invoices {
		b, ok := r.st.bookings[inv.BookingID]
		if !ok {
			continue
		}
		p, ok := r.st.props[b.PropertyID]
		if ok && p.OwnerID == ownerID {
			out = append(out, cloneInvoice(inv))
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) UpdateStatusIfVersion(_ context.Context, id uuid.UUID, newStatus models.InvoiceStatusType, expected int64) (*models.Invoice, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	inv, ok := r.st.invoices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if inv.RowVersion != expected {
		return cloneInvoice(inv), utils.NewRowVersionConflictError(cloneInvoice(inv))
	}
	inv.Status = newStatus
	inv.RowVersion++
	inv.UpdatedAt = time.Now()
	return cloneInvoice(inv), nil
}

func (r *fakeInvoiceRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var n int64
	for _, inv := range r.st.invoices {
		if inv.Status == models.InvoiceStatusPending && inv.DueDate.Before(now) {
			inv.Status = models.InvoiceStatusOverdue
			inv.RowVersion++
			n++
		}
	}
	return n, nil
}
