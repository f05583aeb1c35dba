package clinics

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

const clinicColumns = `id, tenant_id, name, slug, timezone, address, phone, email, is_active, created_at, updated_at`

// Repository stores clinics.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgx.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("clinics: db required")
	}
	return &Repository{db: db}
}

// Create inserts a new clinic. A duplicate slug within the tenant surfaces as
// Conflict.
func (r *Repository) Create(ctx context.Context, c *Clinic) error {
	query := `
		INSERT INTO clinics (id, tenant_id, name, slug, timezone, address, phone, email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		c.ID, c.TenantID, c.Name, c.Slug, c.Timezone, c.Address, c.Phone, c.Email, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.New(apperr.KindConflict, "a clinic with this slug already exists")
		}
		return fmt.Errorf("clinics: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches a clinic within the principal's tenant scope.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, scope access.Scope) (*Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE id = $1`
	args := []any{id}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $2"
	}

	c, err := scanClinic(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "clinic not found")
		}
		return nil, fmt.Errorf("clinics: select failed: %w", err)
	}
	return c, nil
}

// List returns clinics in the scope ordered by name.
func (r *Repository) List(ctx context.Context, scope access.Scope, limit, offset int) ([]*Clinic, error) {
	query := `SELECT ` + clinicColumns + ` FROM clinics WHERE 1=1`
	args := []any{}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $" + strconv.Itoa(len(args))
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
		return nil, fmt.Errorf("clinics: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Clinic
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, fmt.Errorf("clinics: scan failed: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update persists mutable clinic fields.
func (r *Repository) Update(ctx context.Context, c *Clinic) error {
	query := `
		UPDATE clinics
		SET name = $2, address = $3, phone = $4, email = $5, is_active = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, c.ID, c.Name, c.Address, c.Phone, c.Email, c.IsActive).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "clinic not found")
		}
		return fmt.Errorf("clinics: update failed: %w", err)
	}
	return nil
}

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Slug, &c.Timezone, &c.Address, &c.Phone, &c.Email,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
