package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"

	"github.com/casaflow/booking-service/internal/models"
)

// PropertyRepository is a read view: properties are provisioned by the
// property service, this service only resolves them. The occupied flag
// is written inside booking transactions, never through this repo.
type PropertyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	GetOwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type propertyRepo struct {
	*BaseVersionedRepo[*models.Property]
	db DB
}

func NewPropertyRepository(db DB) PropertyRepository {
	r := &propertyRepo{db: db}
	selectStmt := baseSelectProperty() + " WHERE id=$1 AND deleted_at IS NULL"
	r.BaseVersionedRepo = NewBaseRepo(db, selectStmt, r.scanProperty)
	return r
}

func (r *propertyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	return r.BaseVersionedRepo.GetByID(ctx, id.String())
}

func (r *propertyRepo) GetOwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := r.db.QueryRow(ctx,
		`SELECT owner_id FROM properties WHERE id=$1 AND deleted_at IS NULL`, id,
	).Scan(&ownerID)
	if err == pgx.ErrNoRows {
		return uuid.Nil, nil
	}
	return ownerID, err
}

func baseSelectProperty() string {
	return `
		SELECT id, owner_id, property_name, address, city, occupied,
		created_at, updated_at, row_version, deleted_at
		FROM properties`
}

func (r *propertyRepo) scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	var deletedAt pgtype.Timestamptz
	if err := row.Scan(
		&p.ID, &p.OwnerID, &p.PropertyName, &p.Address, &p.City, &p.Occupied,
		&p.CreatedAt, &p.UpdatedAt, &p.RowVersion, &deletedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if deletedAt.Status == pgtype.Present {
		p.DeletedAt = &deletedAt.Time
	}
	return &p, nil
}
