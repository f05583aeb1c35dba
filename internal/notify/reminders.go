package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the reminder repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReminderRepository tracks which appointments have been reminded.
type ReminderRepository struct {
	db DB
}

// NewReminderRepository initializes the repository.
func NewReminderRepository(db DB) *ReminderRepository {
	if db == nil {
		panic("notify: db required")
	}
	return &ReminderRepository{db: db}
}

// MarkSent records the reminder in one atomic statement. It returns false
// when a reminder was already recorded for this appointment or the
// appointment is no longer in an active status, so concurrent workers can
// never double-send.
func (r *ReminderRepository) MarkSent(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO reminders (appointment_id, sent_at)
		SELECT $1, now()
		WHERE EXISTS (
			SELECT 1 FROM appointments
			WHERE id = $1 AND status IN ('scheduled', 'confirmed')
		)
		ON CONFLICT (appointment_id) DO NOTHING
	`, appointmentID)
	if err != nil {
		return false, fmt.Errorf("notify: mark reminder sent failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

var _ ReminderStore = (*ReminderRepository)(nil)
