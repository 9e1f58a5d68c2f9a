package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/casaflow/booking-service/internal/models"
	"github.com/casaflow/booking-service/internal/utils"
)

type InvoiceRepository interface {
	Create(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	GetByBookingAndMonth(ctx context.Context, bookingID uuid.UUID, billingMonth time.Time) (*models.Invoice, error)
	ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*models.Invoice, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Invoice, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Invoice, error)

	UpdateStatusIfVersion(ctx context.Context, id uuid.UUID, newStatus models.InvoiceStatusType, expected int64) (*models.Invoice, error)

	// MarkOverdue flips PENDING invoices whose due date has passed to
	// OVERDUE. Returns the number of invoices flipped.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type invoiceRepo struct {
	db DB
}

func NewInvoiceRepository(db DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func baseSelectInvoice() string {
	return `
        SELECT
            id, booking_id, reference_number, amount, due_date, billing_month,
            status, row_version, created_at, updated_at
        FROM invoices
    `
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.BookingID,
		&inv.ReferenceNumber,
		&inv.Amount,
		&inv.DueDate,
		&inv.BillingMonth,
		&inv.Status,
		&inv.RowVersion,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) loadLineItems(ctx context.Context, invoices []*models.Invoice) error {
	for _, inv := range invoices {
		rows, err := r.db.Query(ctx, `
            SELECT id, invoice_id, description, amount
            FROM invoice_line_items WHERE invoice_id=$1 ORDER BY id
        `, inv.ID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var li models.InvoiceLineItem
			if err := rows.Scan(&li.ID, &li.InvoiceID, &li.Description, &li.Amount); err != nil {
				rows.Close()
				return err
			}
			inv.LineItems = append(inv.LineItems, li)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepo) scanInvoices(rows pgx.Rows) ([]*models.Invoice, error) {
	var out []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

/* ---------- create / reads ---------- */

func (r *invoiceRepo) Create(ctx context.Context, inv *models.Invoice) error {
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

	var existing uuid.UUID
	scanErr := tx.QueryRow(ctx,
		`SELECT id FROM invoices WHERE booking_id=$1 AND billing_month=$2`,
		inv.BookingID, inv.BillingMonth,
	).Scan(&existing)
	if scanErr == nil {
		err = utils.ErrDuplicateInvoice
		return err
	}
	if scanErr != pgx.ErrNoRows {
		err = scanErr
		return err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO invoices (
            id, booking_id, reference_number, amount, due_date,
            billing_month, status, created_at, updated_at, row_version
        ) VALUES ($1,$2,$3,$4,$5,$6,$7, NOW(), NOW(), 1)
    `, inv.ID, inv.BookingID, inv.ReferenceNumber, inv.Amount, inv.DueDate, inv.BillingMonth, inv.Status)
	if err != nil {
		return err
	}
	for _, li := range inv.LineItems {
		_, err = tx.Exec(ctx, `
            INSERT INTO invoice_line_items (id, invoice_id, description, amount)
            VALUES ($1,$2,$3,$4)
        `, li.ID, li.InvoiceID, li.Description, li.Amount)
		if err != nil {
			return err
		}
	}

	inv.RowVersion = 1
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	row := r.db.QueryRow(ctx, baseSelectInvoice()+" WHERE id=$1", id)
	inv, err := scanInvoice(row)
	if err != nil || inv == nil {
		return inv, err
	}
	if err := r.loadLineItems(ctx, []*models.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *invoiceRepo) GetByBookingAndMonth(ctx context.Context, bookingID uuid.UUID, billingMonth time.Time) (*models.Invoice, error) {
	row := r.db.QueryRow(ctx, baseSelectInvoice()+" WHERE booking_id=$1 AND billing_month=$2", bookingID, billingMonth)
	return scanInvoice(row)
}

func (r *invoiceRepo) ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*models.Invoice, error) {
	rows, err := r.db.Query(ctx, baseSelectInvoice()+" WHERE booking_id=$1 ORDER BY billing_month", bookingID)
	if err != nil {
		return nil, err
	}
	invoices, err := func() ([]*models.Invoice, error) {
		defer rows.Close()
		return r.scanInvoices(rows)
	}()
	if err != nil {
		return nil, err
	}
	if err := r.loadLineItems(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepo) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Invoice, error) {
	rows, err := r.db.Query(ctx, baseSelectInvoice()+`
        WHERE booking_id IN (SELECT id FROM bookings WHERE tenant_id=$1)
        ORDER BY due_date DESC
    `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanInvoices(rows)
}

func (r *invoiceRepo) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Invoice, error) {
	rows, err := r.db.Query(ctx, baseSelectInvoice()+`
        WHERE booking_id IN (
            SELECT b.id FROM bookings b
            JOIN properties p ON p.id = b.property_id
            WHERE p.owner_id=$1
        )
        ORDER BY due_date DESC
    `, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanInvoices(rows)
}

/* ---------- updates ---------- */

func (r *invoiceRepo) UpdateStatusIfVersion(ctx context.Context, id uuid.UUID, newStatus models.InvoiceStatusType, expected int64) (*models.Invoice, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE invoices
        SET status=$1, row_version=row_version+1, updated_at=NOW()
        WHERE id=$2 AND row_version=$3
    `, newStatus, id, expected)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, pgx.ErrNoRows
		}
		return current, utils.NewRowVersionConflictError(current)
	}
	return r.GetByID(ctx, id)
}

func (r *invoiceRepo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE invoices
        SET status=$1, row_version=row_version+1, updated_at=NOW()
        WHERE status=$2 AND due_date < $3
    `, models.InvoiceStatusOverdue, models.InvoiceStatusPending, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
