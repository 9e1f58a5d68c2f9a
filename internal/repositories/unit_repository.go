package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/casaflow/booking-service/internal/models"
)

// UnitRepository is a read view over the property service's units. Unit
// occupancy is flipped inside booking transactions, not here.
type UnitRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error)
}

type unitRepo struct {
	*BaseVersionedRepo[*models.Unit]
	db DB
}

func NewUnitRepository(db DB) UnitRepository {
	r := &unitRepo{db: db}
	selectStmt := baseSelectUnit() + " WHERE id=$1 AND deleted_at IS NULL"
	r.BaseVersionedRepo = NewBaseRepo(db, selectStmt, r.scanUnit)
	return r
}

func (r *unitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func baseSelectUnit() string {
	return `
		SELECT id, property_id, floor_id, unit_number, monthly_rent, occupied,
		created_at, updated_at, row_version, deleted_at
		FROM units`
}

func (r *unitRepo) scanUnit(row pgx.Row) (*models.Unit, error) {
	var u models.Unit
	var deletedAt pgtype.Timestamptz
	if err := row.Scan(
		&u.ID, &u.PropertyID, &u.FloorID,
		&u.UnitNumber, &u.MonthlyRent, &u.Occupied,
		&u.CreatedAt, &u.UpdatedAt, &u.RowVersion, &deletedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if deletedAt.Status == pgtype.Present {
		u.DeletedAt = &deletedAt.Time
	}
	return &u, nil
}
