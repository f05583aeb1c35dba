package appointments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/internal/scheduling"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores appointments in the relational database.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgx.
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("appointments: db required")
	}
	return &Repository{db: db}
}

const appointmentColumns = `id, tenant_id, clinic_id, provider_id, patient_id, start_time, end_time, duration_minutes, status, reason, notes, created_at, updated_at`

// SQLSTATE for the exclusion-constraint violation raised by the no-overlap
// backstop the migrations create.
const exclusionViolation = "23P01"

// Create inserts a new appointment row. An exclusion-constraint violation
// maps to Conflict: the slot was taken between check and write.
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	query := `
		INSERT INTO appointments (id, tenant_id, clinic_id, provider_id, patient_id, start_time, end_time, duration_minutes, status, reason, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		a.ID,
		a.TenantID,
		a.ClinicID,
		a.ProviderID,
		a.PatientID,
		a.StartTime,
		a.EndTime,
		a.DurationMinutes,
		a.Status,
		a.Reason,
		a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return apperr.Wrap(apperr.KindConflict, "provider already booked for this time slot", err)
		}
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

// GetByID fetches an appointment within the principal's scope. Rows outside
// the scope are indistinguishable from absent rows.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, scope access.Scope) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	args := []any{id}
	query, args = applyScope(query, args, scope)

	a, err := scanAppointment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "appointment not found")
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return a, nil
}

// List returns appointments matching the filter within the scope, newest
// start time first.
func (r *Repository) List(ctx context.Context, scope access.Scope, filter ListFilter) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []any{}
	query, args = applyScope(query, args, scope)

	if filter.ClinicID != nil {
		args = append(args, *filter.ClinicID)
		query += " AND clinic_id = $" + strconv.Itoa(len(args))
	}
	if filter.ProviderID != nil {
		args = append(args, *filter.ProviderID)
		query += " AND provider_id = $" + strconv.Itoa(len(args))
	}
	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		query += " AND patient_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += " AND end_time > $" + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += " AND start_time < $" + strconv.Itoa(len(args))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += " ORDER BY start_time DESC LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan failed: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update persists a rescheduled or annotated appointment.
func (r *Repository) Update(ctx context.Context, a *Appointment) error {
	query := `
		UPDATE appointments
		SET start_time = $2, end_time = $3, duration_minutes = $4, status = $5, reason = $6, notes = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		a.ID,
		a.StartTime,
		a.EndTime,
		a.DurationMinutes,
		a.Status,
		a.Reason,
		a.Notes,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return apperr.Wrap(apperr.KindConflict, "provider already booked for this time slot", err)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "appointment not found")
		}
		return fmt.Errorf("appointments: update failed: %w", err)
	}
	return nil
}

// FindConflicts implements scheduling.ConflictFinder with the half-open
// overlap predicate: existing.start < end AND existing.end > start.
func (r *Repository) FindConflicts(ctx context.Context, providerID, clinicID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]scheduling.Window, error) {
	query := `
		SELECT id, provider_id, clinic_id, start_time, end_time, status
		FROM appointments
		WHERE provider_id = $1 AND clinic_id = $2
		  AND status <> 'cancelled'
		  AND start_time < $4 AND end_time > $3
	`
	args := []any{providerID, clinicID, start, end}
	if excludeID != nil {
		args = append(args, *excludeID)
		query += " AND id <> $5"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: conflict query failed: %w", err)
	}
	defer rows.Close()

	var out []scheduling.Window
	for rows.Next() {
		var w scheduling.Window
		if err := rows.Scan(&w.ID, &w.ProviderID, &w.ClinicID, &w.StartTime, &w.EndTime, &w.Status); err != nil {
			return nil, fmt.Errorf("appointments: conflict scan failed: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func applyScope(query string, args []any, scope access.Scope) (string, []any) {
	if scope.TenantID != nil {
		args = append(args, *scope.TenantID)
		query += " AND tenant_id = $" + strconv.Itoa(len(args))
	}
	if scope.ClinicID != nil {
		args = append(args, *scope.ClinicID)
		query += " AND clinic_id = $" + strconv.Itoa(len(args))
	}
	return query, args
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.ClinicID,
		&a.ProviderID,
		&a.PatientID,
		&a.StartTime,
		&a.EndTime,
		&a.DurationMinutes,
		&a.Status,
		&a.Reason,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolation
}
