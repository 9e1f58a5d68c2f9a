package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/casaflow/booking-service/internal/models"
)

// FloorRepository is a read view used to validate floor targets.
type FloorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Floor, error)
}

type floorRepo struct {
	*BaseVersionedRepo[*models.Floor]
	db DB
}

func NewFloorRepository(db DB) FloorRepository {
	r := &floorRepo{db: db}
	selectStmt := baseSelectFloor() + " WHERE id=$1 AND deleted_at IS NULL"
	r.BaseVersionedRepo = NewBaseRepo(db, selectStmt, r.scanFloor)
	return r
}

func (r *floorRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Floor, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func baseSelectFloor() string {
	return `
		SELECT id, property_id, number, created_at, updated_at, row_version, deleted_at
		FROM floors`
}

func (r *floorRepo) scanFloor(row pgx.Row) (*models.Floor, error) {
	var f models.Floor
	var deletedAt pgtype.Timestamptz
	if err := row.Scan(&f.ID, &f.PropertyID, &f.Number, &f.CreatedAt, &f.UpdatedAt, &f.RowVersion, &deletedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if deletedAt.Status == pgtype.Present {
		f.DeletedAt = &deletedAt.Time
	}
	return &f, nil
}
