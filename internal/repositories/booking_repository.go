package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/utils"
)

type BookingRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByTenantID(ctx context.Context, tenantID uuid.UUID) ([]*models.Booking, error)
	ListForOwnerProperties(ctx context.Context, ownerID uuid.UUID) ([]*models.Booking, error)
	ListOwnerCreated(ctx context.Context, ownerID uuid.UUID) ([]*models.Booking, error)
	ListByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.Booking, error)
	ListByUnitID(ctx context.Context, unitID uuid.UUID) ([]*models.Booking, error)

	// FindOverlapping returns occupying bookings whose interval conflicts
	// with [start,end) for the given target. For whole-property checks every
	// booking under the property counts; for a unit check only bookings on
	// that unit plus whole-property bookings of its property count.
	FindOverlapping(
		ctx context.Context,
		propertyID uuid.UUID,
		unitID *uuid.UUID,
		start time.Time,
		end *time.Time,
		excludeBookingID uuid.UUID,
	) ([]*models.Booking, error)

	// CreateAtomic locks the covered unit rows, re-runs the overlap check
	// under that lock, inserts the booking and flips the occupancy flags —
	// all in one transaction, so two concurrent creations for overlapping
	// intervals cannot both observe "available".
	CreateAtomic(ctx context.Context, b *models.Booking) error

	// TransitionAtomic flips the booking status guarded by row version.
	// When inv is non-nil (activation) the invoice is written in the same
	// transaction, with an idempotence check per (booking, billing month).
	// Terminal target statuses release occupancy flags for resources no
	// other occupying booking holds.
	TransitionAtomic(
		ctx context.Context,
		bookingID uuid.UUID,
		newStatus models.BookingStatusType,
		expectedVersion int64,
		inv *models.Invoice,
	) (*models.Booking, error)

	// UpdateFieldsAtomic persists date/price/notes edits guarded by row
	// version; a date change re-runs the overlap check (excluding the
	// booking itself) under the same lock.
	UpdateFieldsAtomic(ctx context.Context, b *models.Booking, expectedVersion int64) (*models.Booking, error)

	// DeleteAtomic removes the booking and restores occupancy flags in one
	// transaction.
	DeleteAtomic(ctx context.Context, id uuid.UUID) error

	// ReconcileOccupancy recomputes every cached occupied flag from the
	// occupying bookings. Returns the number of corrected rows.
	ReconcileOccupancy(ctx context.Context) (int64, error)
}

type bookingRepo struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &bookingRepo{db: db}
}

func occupyingStatusStrings() []string {
	occ := models.OccupyingStatuses()
	out := make([]string, len(occ))
	for i, s := range occ {
		out[i] = string(s)
	}
	return out
}

func baseSelectBooking() string {
	return `
        SELECT
            id, tenant_id, property_id, floor_id, unit_id, from_request_id,
            start_date, end_date, status, booked_by_owner, total_price, notes,
            row_version, created_at, updated_at
        FROM bookings
    `
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.PropertyID,
		&b.FloorID,
		&b.UnitID,
		&b.FromRequestID,
		&b.StartDate,
		&b.EndDate,
		&b.Status,
		&b.BookedByOwner,
		&b.TotalPrice,
		&b.Notes,
		&b.RowVersion,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepo) scanBookings(rows pgx.Rows) ([]*models.Booking, error) {
	var out []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

/* ---------- reads ---------- */

func (r *bookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	row := r.db.QueryRow(ctx, baseSelectBooking()+" WHERE id=$1", id)
	return scanBooking(row)
}

func (r *bookingRepo) ListByTenantID(ctx context.Context, tenantID uuid.UUID) ([]*models.Booking, error) {
	rows, err := r.db.Query(ctx, baseSelectBooking()+" WHERE tenant_id=$1 ORDER BY start_date DESC", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanBookings(rows)
}

func (r *bookingRepo) ListForOwnerProperties(ctx context.Context, ownerID uuid.UUID) ([]*models.Booking, error) {
	rows, err := r.db.Query(ctx, baseSelectBooking()+`
        WHERE booked_by_owner=FALSE
          AND property_id IN (SELECT id FROM properties WHERE owner_id=$1 AND deleted_at IS NULL)
        ORDER BY start_date DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanBookings(rows)
}

func (r *bookingRepo) ListOwnerCreated(ctx context.Context, ownerID uuid.UUID) ([]*models.Booking, error) {
	rows, err := r.db.Query(ctx, baseSelectBooking()+`
        WHERE booked_by_owner=TRUE
          AND property_id IN (SELECT id FROM properties WHERE owner_id=$1 AND deleted_at IS NULL)
        ORDER BY start_date DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanBookings(rows)
}

func (r *bookingRepo) ListByPropertyID(ctx context.Context, propertyID uuid.UUID) ([]*models.Booking, error) {
	rows, err := r.db.Query(ctx, baseSelectBooking()+" WHERE property_id=$1 ORDER BY start_date DESC", propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanBookings(rows)
}

func (r *bookingRepo) ListByUnitID(ctx context.Context, unitID uuid.UUID) ([]*models.Booking, error) {
	rows, err := r.db.Query(ctx, baseSelectBooking()+" WHERE unit_id=$1 ORDER BY start_date DESC", unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanBookings(rows)
}

/* ---------- overlap query ---------- */

// overlapWhere matches occupying bookings conflicting with [start,end).
// $1=start $2=end(null=open) $3=exclude $4=property $5=unit(null=whole) $6=statuses
const overlapWhere = `
        WHERE status = ANY($6)
          AND id <> $3
          AND start_date < COALESCE($2::timestamptz, 'infinity'::timestamptz)
          AND COALESCE(end_date, 'infinity'::timestamptz) > $1
          AND (
              ($5::uuid IS NULL AND property_id = $4)
              OR unit_id = $5
              OR (unit_id IS NULL AND property_id = $4)
          )
`

func (r *bookingRepo) FindOverlapping(
	ctx context.Context,
	propertyID uuid.UUID,
	unitID *uuid.UUID,
	start time.Time,
	end *time.Time,
	excludeBookingID uuid.UUID,
) ([]*models.Booking, error) {
	rows, err := r.db.Query(ctx,
		baseSelectBooking()+overlapWhere+" ORDER BY start_date",
		start, end, excludeBookingID, propertyID, unitID, occupyingStatusStrings(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanBookings(rows)
}

func findOverlappingTx(
	ctx context.Context,
	tx pgx.Tx,
	propertyID uuid.UUID,
	unitID *uuid.UUID,
	start time.Time,
	end *time.Time,
	excludeBookingID uuid.UUID,
) (*models.Booking, error) {
	row := tx.QueryRow(ctx,
		baseSelectBooking()+overlapWhere+" LIMIT 1",
		start, end, excludeBookingID, propertyID, unitID, occupyingStatusStrings(),
	)
	return scanBooking(row)
}

// lockCoveredUnits takes row locks on every unit the booking covers so
// concurrent creations serialize on the same resource.
func lockCoveredUnits(ctx context.Context, tx pgx.Tx, propertyID uuid.UUID, unitID *uuid.UUID) ([]uuid.UUID, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if unitID != nil {
		rows, err = tx.Query(ctx,
			`SELECT id FROM units WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`, *unitID)
	} else {
		rows, err = tx.Query(ctx,
			`SELECT id FROM units WHERE property_id=$1 AND deleted_at IS NULL ORDER BY id FOR UPDATE`, propertyID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

/* ---------- create ---------- */

func (r *bookingRepo) CreateAtomic(ctx context.Context, b *models.Booking) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	unitIDs, err := lockCoveredUnits(ctx, tx, b.PropertyID, b.UnitID)
	if err != nil {
		return err
	}
	if len(unitIDs) == 0 {
		err = utils.ErrNoUnits
		return err
	}

	var blocking *models.Booking
	blocking, err = findOverlappingTx(ctx, tx, b.PropertyID, b.UnitID, b.StartDate, b.EndDate, b.ID)
	if err != nil {
		return err
	}
	if blocking != nil {
		if b.UnitID != nil {
			err = utils.NewIntervalConflictError("unit", *b.UnitID, blocking.ID)
		} else {
			err = utils.NewIntervalConflictError("property", b.PropertyID, blocking.ID)
		}
		return err
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
		return err
	}

	_, err = tx.Exec(ctx, `UPDATE units SET occupied=TRUE, updated_at=NOW() WHERE id = ANY($1)`, unitIDs)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE properties SET occupied=TRUE, updated_at=NOW() WHERE id=$1`, b.PropertyID)
	if err != nil {
		return err
	}

	b.RowVersion = 1
	return nil
}

/* ---------- status transition ---------- */

func (r *bookingRepo) TransitionAtomic(
	ctx context.Context,
	bookingID uuid.UUID,
	newStatus models.BookingStatusType,
	expectedVersion int64,
	inv *models.Invoice,
) (*models.Booking, error) {
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

	row := tx.QueryRow(ctx, baseSelectBooking()+" WHERE id=$1 FOR UPDATE", bookingID)
	b, err := scanBooking(row)
	if err != nil {
		return nil, err
	}
	if b == nil {
		err = pgx.ErrNoRows
		return nil, err
	}
	if b.RowVersion != expectedVersion {
		err = utils.NewRowVersionConflictError(b)
		return b, err
	}

	if inv != nil {
		// idempotence per (booking, billing month): a retried activation
		// must not write a second invoice
		var existing uuid.UUID
		scanErr := tx.QueryRow(ctx,
			`SELECT id FROM invoices WHERE booking_id=$1 AND billing_month=$2`,
			bookingID, inv.BillingMonth,
		).Scan(&existing)
		switch scanErr {
		case nil:
			inv = nil
		case pgx.ErrNoRows:
			// fall through to insert
		default:
			err = scanErr
			return nil, err
		}
	}

	if inv != nil {
		_, err = tx.Exec(ctx, `
            INSERT INTO invoices (
                id, booking_id, reference_number, amount, due_date,
                billing_month, status, created_at, updated_at, row_version
            ) VALUES ($1,$2,$3,$4,$5,$6,$7, NOW(), NOW(), 1)
        `, inv.ID, inv.BookingID, inv.ReferenceNumber, inv.Amount, inv.DueDate, inv.BillingMonth, inv.Status)
		if err != nil {
			return nil, err
		}
		for _, li := range inv.LineItems {
			_, err = tx.Exec(ctx, `
                INSERT INTO invoice_line_items (id, invoice_id, description, amount)
                VALUES ($1,$2,$3,$4)
            `, li.ID, li.InvoiceID, li.Description, li.Amount)
			if err != nil {
				return nil, err
			}
		}
	}

	_, err = tx.Exec(ctx, `
        UPDATE bookings
        SET status=$1, row_version=row_version+1, updated_at=NOW()
        WHERE id=$2
    `, newStatus, bookingID)
	if err != nil {
		return nil, err
	}

	if newStatus.IsTerminal() {
		if err = releaseOccupancyTx(ctx, tx, b); err != nil {
			return nil, err
		}
	}

	var updated *models.Booking
	updated, err = scanBooking(tx.QueryRow(ctx, baseSelectBooking()+" WHERE id=$1", bookingID))
	return updated, err
}

// releaseOccupancyTx recomputes the occupied flags for the resources the
// booking covered, leaving them set when another occupying booking remains.
func releaseOccupancyTx(ctx context.Context, tx pgx.Tx, b *models.Booking) error {
	occ := occupyingStatusStrings()

	var err error
	if b.UnitID != nil {
		_, err = tx.Exec(ctx, `
            UPDATE units u SET occupied = EXISTS (
                SELECT 1 FROM bookings ob
                WHERE ob.id <> $1 AND ob.status = ANY($2)
                  AND (ob.unit_id = u.id OR (ob.unit_id IS NULL AND ob.property_id = u.property_id))
            ), updated_at=NOW()
            WHERE u.id=$3
        `, b.ID, occ, *b.UnitID)
	} else {
		_, err = tx.Exec(ctx, `
            UPDATE units u SET occupied = EXISTS (
                SELECT 1 FROM bookings ob
                WHERE ob.id <> $1 AND ob.status = ANY($2)
                  AND (ob.unit_id = u.id OR (ob.unit_id IS NULL AND ob.property_id = u.property_id))
            ), updated_at=NOW()
            WHERE u.property_id=$3
        `, b.ID, occ, b.PropertyID)
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
        UPDATE properties p SET occupied = EXISTS (
            SELECT 1 FROM bookings ob
            WHERE ob.id <> $1 AND ob.status = ANY($2) AND ob.property_id = p.id
        ), updated_at=NOW()
        WHERE p.id=$3
    `, b.ID, occ, b.PropertyID)
	return err
}

/* ---------- field updates ---------- */

func (r *bookingRepo) UpdateFieldsAtomic(ctx context.Context, b *models.Booking, expectedVersion int64) (*models.Booking, error) {
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

	row := tx.QueryRow(ctx, baseSelectBooking()+" WHERE id=$1 FOR UPDATE", b.ID)
	current, err := scanBooking(row)
	if err != nil {
		return nil, err
	}
	if current == nil {
		err = pgx.ErrNoRows
		return nil, err
	}
	if current.RowVersion != expectedVersion {
		err = utils.NewRowVersionConflictError(current)
		return current, err
	}

	datesChanged := !current.StartDate.Equal(b.StartDate) ||
		(current.EndDate == nil) != (b.EndDate == nil) ||
		(current.EndDate != nil && b.EndDate != nil && !current.EndDate.Equal(*b.EndDate))

	if datesChanged {
		if _, err = lockCoveredUnits(ctx, tx, current.PropertyID, current.UnitID); err != nil {
			return nil, err
		}
		var blocking *models.Booking
		blocking, err = findOverlappingTx(ctx, tx, current.PropertyID, current.UnitID, b.StartDate, b.EndDate, b.ID)
		if err != nil {
			return nil, err
		}
		if blocking != nil {
			if current.UnitID != nil {
				err = utils.NewIntervalConflictError("unit", *current.UnitID, blocking.ID)
			} else {
				err = utils.NewIntervalConflictError("property", current.PropertyID, blocking.ID)
			}
			return nil, err
		}
	}

	_, err = tx.Exec(ctx, `
        UPDATE bookings
        SET start_date=$1, end_date=$2, total_price=$3, notes=$4,
            row_version=row_version+1, updated_at=NOW()
        WHERE id=$5
    `, b.StartDate, b.EndDate, b.TotalPrice, b.Notes, b.ID)
	if err != nil {
		return nil, err
	}

	var updated *models.Booking
	updated, err = scanBooking(tx.QueryRow(ctx, baseSelectBooking()+" WHERE id=$1", b.ID))
	return updated, err
}

/* ---------- delete ---------- */

func (r *bookingRepo) DeleteAtomic(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	row := tx.QueryRow(ctx, baseSelectBooking()+" WHERE id=$1 FOR UPDATE", id)
	b, err := scanBooking(row)
	if err != nil {
		return err
	}
	if b == nil {
		err = pgx.ErrNoRows
		return err
	}

	// detach dependents before the delete so the FK constraints cannot
	// block it: requests keep their history, invoices go with the booking
	if _, err = tx.Exec(ctx, `UPDATE tenant_requests SET booking_id=NULL, updated_at=NOW() WHERE booking_id=$1`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM invoices WHERE booking_id=$1`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id); err != nil {
		return err
	}

	// the booking row is gone, so the EXISTS recomputation naturally
	// excludes it
	err = releaseOccupancyTx(ctx, tx, b)
	return err
}

/* ---------- reconciliation ---------- */

func (r *bookingRepo) ReconcileOccupancy(ctx context.Context) (int64, error) {
	occ := occupyingStatusStrings()

	unitTag, err := r.db.Exec(ctx, `
        UPDATE units u SET occupied = computed.val, updated_at=NOW()
        FROM (
            SELECT u2.id, EXISTS (
                SELECT 1 FROM bookings b
                WHERE b.status = ANY($1)
                  AND (b.unit_id = u2.id OR (b.unit_id IS NULL AND b.property_id = u2.property_id))
            ) AS val
            FROM units u2
        ) computed
        WHERE computed.id = u.id AND u.occupied <> computed.val
    `, occ)
	if err != nil {
		return 0, err
	}

	propTag, err := r.db.Exec(ctx, `
        UPDATE properties p SET occupied = computed.val, updated_at=NOW()
        FROM (
            SELECT p2.id, EXISTS (
                SELECT 1 FROM bookings b
                WHERE b.status = ANY($1) AND b.property_id = p2.id
            ) AS val
            FROM properties p2
        ) computed
        WHERE computed.id = p.id AND p.occupied <> computed.val
    `, occ)
	if err != nil {
		return unitTag.RowsAffected(), err
	}

	return unitTag.RowsAffected() + propTag.RowsAffected(), nil
}
