package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
)

// DB is the subset of pgxpool.Pool the repository needs. Begin gives the
// repository a real transaction for multi-row writes.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const invoiceColumns = `id, tenant_id, clinic_id, owner_id, appointment_id, status, subtotal_cents, tax_cents, total_cents, created_at, updated_at`

// Repository stores invoices and their line items.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgx.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("billing: db required")
	}
	return &Repository{db: db}
}

// CreateWithItems writes the invoice and all of its line items in one
// transaction. Either everything lands or nothing does.
func (r *Repository) CreateWithItems(ctx context.Context, inv *Invoice) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("billing: begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO invoices (id, tenant_id, clinic_id, owner_id, appointment_id, status, subtotal_cents, tax_cents, total_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		inv.ID, inv.TenantID, inv.ClinicID, inv.OwnerID, inv.AppointmentID,
		inv.Status, inv.SubtotalCents, inv.TaxCents, inv.TotalCents,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.New(apperr.KindInvalidInput, "owner, clinic, or appointment does not exist")
		}
		return fmt.Errorf("billing: insert invoice failed: %w", err)
	}

	for i := range inv.Items {
		item := &inv.Items[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_cents, amount_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, item.InvoiceID, item.Description, item.Quantity, item.UnitCents, item.AmountCents)
		if err != nil {
			return fmt.Errorf("billing: insert line item failed: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("billing: commit failed: %w", err)
	}
	return nil
}

// GetByID fetches an invoice and its line items within the scope.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, scope access.Scope) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	args := []any{id}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $" + strconv.Itoa(len(args))
	}
	if scope.ClinicID != nil {
		args = append(args, *scope.ClinicID)
		query += " AND clinic_id = $" + strconv.Itoa(len(args))
	}

	inv, err := scanInvoice(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "invoice not found")
		}
		return nil, fmt.Errorf("billing: select invoice failed: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_cents, amount_cents
		FROM invoice_items WHERE invoice_id = $1 ORDER BY description
	`, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("billing: select items failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity, &item.UnitCents, &item.AmountCents); err != nil {
			return nil, fmt.Errorf("billing: scan item failed: %w", err)
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, rows.Err()
}

// List returns invoices in the scope, optionally filtered by owner and
// status, newest first. Line items are not loaded on the list path.
func (r *Repository) List(ctx context.Context, scope access.Scope, ownerID *uuid.UUID, status *InvoiceStatus, limit, offset int) ([]*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $" + strconv.Itoa(len(args))
	}
	if scope.ClinicID != nil {
		args = append(args, *scope.ClinicID)
		query += " AND clinic_id = $" + strconv.Itoa(len(args))
	}
	if ownerID != nil {
		args = append(args, *ownerID)
		query += " AND owner_id = $" + strconv.Itoa(len(args))
	}
	if status != nil {
		args = append(args, *status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))
	args = append(args, offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("billing: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("billing: scan failed: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// UpdateStatus persists a status change.
func (r *Repository) UpdateStatus(ctx context.Context, inv *Invoice) error {
	err := r.db.QueryRow(ctx, `
		UPDATE invoices SET status = $2, updated_at = now() WHERE id = $1
		RETURNING updated_at
	`, inv.ID, inv.Status).Scan(&inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "invoice not found")
		}
		return fmt.Errorf("billing: update status failed: %w", err)
	}
	return nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.ClinicID, &inv.OwnerID, &inv.AppointmentID,
		&inv.Status, &inv.SubtotalCents, &inv.TaxCents, &inv.TotalCents,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
