package inventory

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

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

const itemColumns = `id, tenant_id, clinic_id, sku, name, category, quantity, reorder_level, unit_cents, created_at, updated_at`

// Repository stores inventory items.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgx.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("inventory: db required")
	}
	return &Repository{db: db}
}

// Create inserts a new item. A duplicate SKU within the clinic surfaces as
// Conflict.
func (r *Repository) Create(ctx context.Context, i *Item) error {
	query := `
		INSERT INTO inventory_items (id, tenant_id, clinic_id, sku, name, category, quantity, reorder_level, unit_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		i.ID, i.TenantID, i.ClinicID, i.SKU, i.Name, i.Category, i.Quantity, i.ReorderLevel, i.UnitCents,
	).Scan(&i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.New(apperr.KindConflict, "an item with this sku already exists at this clinic")
		}
		return fmt.Errorf("inventory: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches an item within the principal's scope.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, scope access.Scope) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`
	args := []any{id}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $" + strconv.Itoa(len(args))
	}
	if scope.ClinicID != nil {
		args = append(args, *scope.ClinicID)
		query += " AND clinic_id = $" + strconv.Itoa(len(args))
	}

	i, err := scanItem(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "item not found")
		}
		return nil, fmt.Errorf("inventory: select failed: %w", err)
	}
	return i, nil
}

// List returns items in the scope ordered by name. When lowStock is set only
// items at or below their reorder level are returned.
func (r *Repository) List(ctx context.Context, scope access.Scope, lowStock bool, limit, offset int) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE 1=1`
	args := []any{}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $" + strconv.Itoa(len(args))
	}
	if scope.ClinicID != nil {
		args = append(args, *scope.ClinicID)
		query += " AND clinic_id = $" + strconv.Itoa(len(args))
	}
	if lowStock {
		query += " AND reorder_level > 0 AND quantity <= reorder_level"
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += " ORDER BY name LIMIT $" + strconv.Itoa(len(args))
	args = append(args, offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Item
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("inventory: scan failed: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// AdjustStock applies a signed delta to the on-hand quantity in a single
// statement. The guard in the WHERE clause makes the adjustment atomic: two
// concurrent dispenses can never drive the count below zero.
func (r *Repository) AdjustStock(ctx context.Context, id uuid.UUID, scope access.Scope, delta int) (*Item, error) {
	query := `
		UPDATE inventory_items
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0
	`
	args := []any{id, delta}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $" + strconv.Itoa(len(args))
	}
	if scope.ClinicID != nil {
		args = append(args, *scope.ClinicID)
		query += " AND clinic_id = $" + strconv.Itoa(len(args))
	}
	query += " RETURNING " + itemColumns

	i, err := scanItem(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return i, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("inventory: adjust failed: %w", err)
	}

	// Zero rows: either the item is out of scope or the delta would go
	// negative. Re-read to tell the two apart.
	existing, getErr := r.GetByID(ctx, id, scope)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperr.Newf(apperr.KindInvalidInput,
		"stock cannot go below zero: have %d, requested %+d", existing.Quantity, delta)
}

func scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(
		&i.ID, &i.TenantID, &i.ClinicID, &i.SKU, &i.Name, &i.Category,
		&i.Quantity, &i.ReorderLevel, &i.UnitCents, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
