package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/utils"
)

type TenantRequestRepository interface {
	Create(ctx context.Context, tr *models.TenantRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TenantRequest, error)
	ListByTenantID(ctx context.Context, tenantID uuid.UUID) ([]*models.TenantRequest, error)
	ListByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*models.TenantRequest, error)

	// FindOpenByTenantAndTarget returns a PENDING request by the same
	// tenant for the same property/unit, regardless of type, if any.
	FindOpenByTenantAndTarget(
		ctx context.Context,
		tenantID uuid.UUID,
		propertyID uuid.UUID,
		unitID *uuid.UUID,
	) (*models.TenantRequest, error)

	// AcceptBookingAtomic accepts a BOOKING request and creates the booking
	// in the same transaction: the availability re-check runs under the unit
	// row locks, and a conflict rolls everything back, leaving the request
	// PENDING.
	AcceptBookingAtomic(
		ctx context.Context,
		requestID uuid.UUID,
		expectedVersion int64,
		b *models.Booking,
	) (*models.TenantRequest, error)

	// AcceptCancellationAtomic accepts a CANCELLATION request and cancels
	// its target booking in the same transaction.
	AcceptCancellationAtomic(
		ctx context.Context,
		requestID uuid.UUID,
		expectedVersion int64,
	) (*models.TenantRequest, *models.Booking, error)

	// ResolveAtomic moves a PENDING request to a terminal status with no
	// side effects (rejections, maintenance acceptance).
	ResolveAtomic(
		ctx context.Context,
		requestID uuid.UUID,
		newStatus models.TenantRequestStatusType,
		expectedVersion int64,
	) (*models.TenantRequest, error)

	MarkSeen(ctx context.Context, id uuid.UUID) error
}

type tenantRequestRepo struct {
	*BaseVersionedRepo[*models.TenantRequest]
	db DB
}

func NewTenantRequestRepository(db DB) TenantRequestRepository {
	r := &tenantRequestRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectTenantRequest()+" WHERE id=$1", scanTenantRequest)
	return r
}

func baseSelectTenantRequest() string {
	return `
        SELECT
            id, type, tenant_id, owner_id, property_id, floor_id, unit_id,
            booking_id, status, message, is_seen,
            preferred_move_in, preferred_end, monthly_offer, duration_months,
            row_version, created_at, updated_at
        FROM tenant_requests
    `
}

func scanTenantRequest(row pgx.Row) (*models.TenantRequest, error) {
	var tr models.TenantRequest
	err := row.Scan(
		&tr.ID,
		&tr.Type,
		&tr.TenantID,
		&tr.OwnerID,
		&tr.PropertyID,
		&tr.FloorID,
		&tr.UnitID,
		&tr.BookingID,
		&tr.Status,
		&tr.Message,
		&tr.IsSeen,
		&tr.PreferredMoveIn,
		&tr.PreferredEnd,
		&tr.MonthlyOffer,
		&tr.DurationMonths,
		&tr.RowVersion,
		&tr.CreatedAt,
		&tr.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &tr, nil
}

func (r *tenantRequestRepo) scanTenantRequests(rows pgx.Rows) ([]*models.TenantRequest, error) {
	var out []*models.TenantRequest
	for rows.Next() {
		tr, err := scanTenantRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

/* ---------- create / reads ---------- */

func (r *tenantRequestRepo) Create(ctx context.Context, tr *models.TenantRequest) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO tenant_requests (
            id, type, tenant_id, owner_id, property_id, floor_id, unit_id,
            booking_id, status, message, is_seen,
            preferred_move_in, preferred_end, monthly_offer, duration_months,
            created_at, updated_at, row_version
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15, NOW(), NOW(), 1
        )
    `,
		tr.ID, tr.Type, tr.TenantID, tr.OwnerID, tr.PropertyID, tr.FloorID, tr.UnitID,
		tr.BookingID, tr.Status, tr.Message, tr.IsSeen,
		tr.PreferredMoveIn, tr.PreferredEnd, tr.MonthlyOffer, tr.DurationMonths,
	)
	if err == nil {
		tr.RowVersion = 1
	}
	return err
}

func (r *tenantRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TenantRequest, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *tenantRequestRepo) ListByTenantID(ctx context.Context, tenantID uuid.UUID) ([]*models.TenantRequest, error) {
	rows, err := r.db.Query(ctx, baseSelectTenantRequest()+" WHERE tenant_id=$1 ORDER BY created_at DESC", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanTenantRequests(rows)
}

func (r *tenantRequestRepo) ListByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*models.TenantRequest, error) {
	rows, err := r.db.Query(ctx, baseSelectTenantRequest()+" WHERE owner_id=$1 ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanTenantRequests(rows)
}

func (r *tenantRequestRepo) FindOpenByTenantAndTarget(
	ctx context.Context,
	tenantID uuid.UUID,
	propertyID uuid.UUID,
	unitID *uuid.UUID,
) (*models.TenantRequest, error) {
	row := r.db.QueryRow(ctx, baseSelectTenantRequest()+`
        WHERE tenant_id=$1 AND property_id=$2
          AND status=$3
          AND (unit_id = $4 OR (unit_id IS NULL AND $4::uuid IS NULL))
        LIMIT 1
    `, tenantID, propertyID, models.RequestStatusPending, unitID)
	return scanTenantRequest(row)
}

/* ---------- acceptance transactions ---------- */

// lockRequestPending loads the request FOR UPDATE and verifies it is still
// PENDING at the expected version.
func lockRequestPending(
	ctx context.Context,
	tx pgx.Tx,
	requestID uuid.UUID,
	expectedVersion int64,
) (*models.TenantRequest, error) {
	row := tx.QueryRow(ctx, baseSelectTenantRequest()+" WHERE id=$1 FOR UPDATE", requestID)
	tr, err := scanTenantRequest(row)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, pgx.ErrNoRows
	}
	if tr.RowVersion != expectedVersion {
		return tr, utils.NewRowVersionConflictError(tr)
	}
	if tr.Status != models.RequestStatusPending {
		return tr, utils.ErrInvalidTransition
	}
	return tr, nil
}

func markRequestResolvedTx(
	ctx context.Context,
	tx pgx.Tx,
	requestID uuid.UUID,
	newStatus models.TenantRequestStatusType,
) (*models.TenantRequest, error) {
	_, err := tx.Exec(ctx, `
        UPDATE tenant_requests
        SET status=$1, row_version=row_version+1, updated_at=NOW()
        WHERE id=$2
    `, newStatus, requestID)
	if err != nil {
		return nil, err
	}
	row := tx.QueryRow(ctx, baseSelectTenantRequest()+" WHERE id=$1", requestID)
	return scanTenantRequest(row)
}

func (r *tenantRequestRepo) AcceptBookingAtomic(
	ctx context.Context,
	requestID uuid.UUID,
	expectedVersion int64,
	b *models.Booking,
) (*models.TenantRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	tr, err := lockRequestPending(ctx, tx, requestID, expectedVersion)
	if err != nil {
		return tr, err
	}

	unitIDs, err := lockCoveredUnits(ctx, tx, b.PropertyID, b.UnitID)
	if err != nil {
		return nil, err
	}
	if len(unitIDs) == 0 {
		err = utils.ErrNoUnits
		return nil, err
	}

	var blocking *models.Booking
	blocking, err = findOverlappingTx(ctx, tx, b.PropertyID, b.UnitID, b.StartDate, b.EndDate, b.ID)
	if err != nil {
		return nil, err
	}
	if blocking != nil {
		if b.UnitID != nil {
			err = utils.NewIntervalConflictError("unit", *b.UnitID, blocking.ID)
		} else {
			err = utils.NewIntervalConflictError("property", b.PropertyID, blocking.ID)
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO bookings (
            id, tenant_id, property_id, floor_id, unit_id, from_request_id,
            start_date, end_date, status, booked_by_owner, total_price, notes,
            created_at, updated_at, row_version
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, NOW(), NOW(), 1
        )
    `,
		b.ID, b.TenantID, b.PropertyID, b.FloorID, b.UnitID, b.FromRequestID,
		b.StartDate, b.EndDate, b.Status, b.BookedByOwner, b.TotalPrice, b.Notes,
	)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `UPDATE units SET occupied=TRUE, updated_at=NOW() WHERE id = ANY($1)`, unitIDs)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `UPDATE properties SET occupied=TRUE, updated_at=NOW() WHERE id=$1`, b.PropertyID)
	if err != nil {
		return nil, err
	}

	b.RowVersion = 1
	var resolved *models.TenantRequest
	resolved, err = markRequestResolvedTx(ctx, tx, requestID, models.RequestStatusAccepted)
	return resolved, err
}

func (r *tenantRequestRepo) AcceptCancellationAtomic(
	ctx context.Context,
	requestID uuid.UUID,
	expectedVersion int64,
) (*models.TenantRequest, *models.Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	tr, err := lockRequestPending(ctx, tx, requestID, expectedVersion)
	if err != nil {
		return tr, nil, err
	}
	if tr.BookingID == nil {
		err = utils.ErrNotFound
		return tr, nil, err
	}

	row := tx.QueryRow(ctx, baseSelectBooking()+" WHERE id=$1 FOR UPDATE", *tr.BookingID)
	b, err := scanBooking(row)
	if err != nil {
		return nil, nil, err
	}
	if b == nil {
		err = utils.ErrNotFound
		return tr, nil, err
	}
	// cancelling on the tenant's behalf: only statuses the tenant could
	// cancel themselves qualify
	if !models.CanTransition(b.Status, models.BookingStatusCancelledByTenant, models.RoleTenant) {
		err = utils.ErrInvalidTransition
		return tr, b, err
	}

	_, err = tx.Exec(ctx, `
        UPDATE bookings
        SET status=$1, row_version=row_version+1, updated_at=NOW()
        WHERE id=$2
    `, models.BookingStatusCancelledByTenant, b.ID)
	if err != nil {
		return nil, nil, err
	}
	if err = releaseOccupancyTx(ctx, tx, b); err != nil {
		return nil, nil, err
	}

	tr, err = markRequestResolvedTx(ctx, tx, requestID, models.RequestStatusAccepted)
	if err != nil {
		return nil, nil, err
	}

	b.Status = models.BookingStatusCancelledByTenant
	b.RowVersion++
	return tr, b, nil
}

func (r *tenantRequestRepo) ResolveAtomic(
	ctx context.Context,
	requestID uuid.UUID,
	newStatus models.TenantRequestStatusType,
	expectedVersion int64,
) (*models.TenantRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	tr, err := lockRequestPending(ctx, tx, requestID, expectedVersion)
	if err != nil {
		return tr, err
	}
	var resolved *models.TenantRequest
	resolved, err = markRequestResolvedTx(ctx, tx, requestID, newStatus)
	return resolved, err
}

func (r *tenantRequestRepo) updateSeenIfVersion(
	ctx context.Context,
	tr *models.TenantRequest,
	expected int64,
) (pgconn.CommandTag, error) {
	return r.db.Exec(ctx, `
        UPDATE tenant_requests
        SET is_seen=$1, row_version=row_version+1, updated_at=NOW()
        WHERE id=$2 AND row_version=$3
    `, tr.IsSeen, tr.ID, expected)
}

// MarkSeen is a server-side flag flip with no client-supplied version, so
// it goes through the optimistic retry loop instead of failing on a
// concurrent resolution.
func (r *tenantRequestRepo) MarkSeen(ctx context.Context, id uuid.UUID) error {
	return r.BaseVersionedRepo.UpdateWithRetry(ctx, id.String(), func(tr *models.TenantRequest) error {
		tr.IsSeen = true
		return nil
	}, r.updateSeenIfVersion)
}
