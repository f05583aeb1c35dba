// Package scheduling validates proposed appointment windows against existing
// bookings. The conflict key is always (provider, clinic), never the tenant:
// a provider cannot be double-booked even if two tenants were to share a
// provider id by mistake.
package scheduling

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/pkg/logging"
)

var tracer = otel.Tracer("vetpms.internal.scheduling")

// Window is an existing booking as the guard sees it.
type Window struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	ClinicID   uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	Status     string
}

// ConflictFinder returns non-cancelled windows for (provider, clinic) whose
// [start, end) interval overlaps the given one. A window matching excludeID
// is omitted so an update never conflicts with its own prior version.
type ConflictFinder interface {
	FindConflicts(ctx context.Context, providerID, clinicID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Window, error)
}

// ValidateWindow rejects empty and inverted windows. Half-open semantics make
// start == end a zero-duration window, which is invalid.
func ValidateWindow(start, end time.Time) error {
	if !end.After(start) {
		return apperr.New(apperr.KindInvalidInput, "appointment end must be after start")
	}
	return nil
}

// DeriveDuration computes the stored duration in minutes when the caller does
// not supply one. The value is persisted with the appointment and never
// recomputed later.
func DeriveDuration(start, end time.Time) int {
	return int(math.Round(float64(end.Sub(start).Milliseconds()) / 60000.0))
}

// Guard performs the check half of check-and-write. The Locker closes the
// race between two requests checking the same slot concurrently; the database
// exclusion constraint is the backstop should the lock ever be unavailable.
type Guard struct {
	conflicts ConflictFinder
	locks     Locker
	logger    *logging.Logger
	lockTTL   time.Duration
}

// NewGuard builds a guard. A nil locker disables advisory locking, leaving
// only the database constraint.
func NewGuard(conflicts ConflictFinder, locks Locker, logger *logging.Logger) *Guard {
	if conflicts == nil {
		panic("scheduling: conflict finder required")
	}
	if locks == nil {
		locks = NoopLocker{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{
		conflicts: conflicts,
		locks:     locks,
		logger:    logger,
		lockTTL:   10 * time.Second,
	}
}

// Reserve validates the window, takes the advisory lock for the slot, and
// checks for conflicts. On success it returns a release function that the
// caller must invoke after the write commits (or fails). On any error nothing
// is held and the release function is nil.
func (g *Guard) Reserve(ctx context.Context, providerID, clinicID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (func(), error) {
	ctx, span := tracer.Start(ctx, "scheduling.reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("vetpms.provider_id", providerID.String()),
		attribute.String("vetpms.clinic_id", clinicID.String()),
	)

	if err := ValidateWindow(start, end); err != nil {
		return nil, err
	}

	release, err := g.locks.Acquire(ctx, slotKeys(providerID, clinicID, start, end), g.lockTTL)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	conflicts, err := g.conflicts.FindConflicts(ctx, providerID, clinicID, start, end, excludeID)
	if err != nil {
		release()
		span.RecordError(err)
		return nil, err
	}
	if len(conflicts) > 0 {
		release()
		g.logger.Info("scheduling conflict detected",
			"provider_id", providerID,
			"clinic_id", clinicID,
			"start", start,
			"end", end,
			"conflicts", len(conflicts),
		)
		return nil, apperr.Newf(apperr.KindConflict, "provider already booked for %d overlapping appointment(s)", len(conflicts))
	}

	return release, nil
}

// slotKeys buckets the window into hour-aligned lock keys so two requests for
// overlapping slots always contend on at least one key.
func slotKeys(providerID, clinicID uuid.UUID, start, end time.Time) []string {
	keys := []string{}
	for t := start.UTC().Truncate(time.Hour); t.Before(end); t = t.Add(time.Hour) {
		keys = append(keys, "sched:"+providerID.String()+":"+clinicID.String()+":"+t.Format("2006010215"))
	}
	return keys
}
