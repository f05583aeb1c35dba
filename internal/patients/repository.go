package patients

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

// Repository stores owners and patients.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgx.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("patients: db required")
	}
	return &Repository{db: db}
}

// CreateOwner inserts a new owner row.
func (r *Repository) CreateOwner(ctx context.Context, o *Owner) error {
	query := `
		INSERT INTO owners (id, tenant_id, name, email, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, o.ID, o.TenantID, o.Name, o.Email, o.Phone).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("patients: insert owner failed: %w", err)
	}
	return nil
}

// GetOwner fetches an owner within the tenant scope. Owners carry no clinic,
// so only the tenant constraint applies.
func (r *Repository) GetOwner(ctx context.Context, id uuid.UUID, scope access.Scope) (*Owner, error) {
	query := `SELECT id, tenant_id, name, email, phone, created_at, updated_at FROM owners WHERE id = $1`
	args := []any{id}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $2"
	}

	var o Owner
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&o.ID, &o.TenantID, &o.Name, &o.Email, &o.Phone, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "owner not found")
		}
		return nil, fmt.Errorf("patients: select owner failed: %w", err)
	}
	return &o, nil
}

const patientColumns = `id, tenant_id, clinic_id, owner_id, name, species, breed, date_of_birth, weight_kg, created_at, updated_at`

// CreatePatient inserts a new patient row.
func (r *Repository) CreatePatient(ctx context.Context, p *Patient) error {
	query := `
		INSERT INTO patients (id, tenant_id, clinic_id, owner_id, name, species, breed, date_of_birth, weight_kg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID, p.TenantID, p.ClinicID, p.OwnerID, p.Name, p.Species, p.Breed, p.DateOfBirth, p.WeightKg,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.New(apperr.KindInvalidInput, "owner or clinic does not exist")
		}
		return fmt.Errorf("patients: insert patient failed: %w", err)
	}
	return nil
}

// GetPatient fetches a patient within the principal's scope.
func (r *Repository) GetPatient(ctx context.Context, id uuid.UUID, scope access.Scope) (*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	args := []any{id}
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $" + strconv.Itoa(len(args))
	}
	if scope.ClinicID != nil {
		args = append(args, *scope.ClinicID)
		query += " AND clinic_id = $" + strconv.Itoa(len(args))
	}

	p, err := scanPatient(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "patient not found")
		}
		return nil, fmt.Errorf("patients: select patient failed: %w", err)
	}
	return p, nil
}

// ListPatients returns patients in the scope, optionally filtered by owner.
func (r *Repository) ListPatients(ctx context.Context, scope access.Scope, ownerID *uuid.UUID, limit, offset int) ([]*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE 1=1`
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

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += " ORDER BY name LIMIT $" + strconv.Itoa(len(args))
	args = append(args, offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePatient persists mutable patient fields.
func (r *Repository) UpdatePatient(ctx context.Context, p *Patient) error {
	query := `
		UPDATE patients
		SET name = $2, breed = $3, date_of_birth = $4, weight_kg = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, p.ID, p.Name, p.Breed, p.DateOfBirth, p.WeightKg).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "patient not found")
		}
		return fmt.Errorf("patients: update failed: %w", err)
	}
	return nil
}

// Contact is the owner-facing contact block for one patient, used when
// sending confirmations and reminders.
type Contact struct {
	OwnerName   string
	Email       string
	Phone       string
	PatientName string
}

// ContactForPatient resolves the owner contact details for a patient.
func (r *Repository) ContactForPatient(ctx context.Context, patientID uuid.UUID) (*Contact, error) {
	query := `
		SELECT o.name, o.email, o.phone, p.name
		FROM patients p
		JOIN owners o ON o.id = p.owner_id
		WHERE p.id = $1
	`
	var c Contact
	err := r.db.QueryRow(ctx, query, patientID).Scan(&c.OwnerName, &c.Email, &c.Phone, &c.PatientName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "patient not found")
		}
		return nil, fmt.Errorf("patients: contact lookup failed: %w", err)
	}
	return &c, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.TenantID, &p.ClinicID, &p.OwnerID,
		&p.Name, &p.Species, &p.Breed, &p.DateOfBirth, &p.WeightKg,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
