package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborvet/vetpms/internal/apperr"
)

type fakeConflictFinder struct {
	windows []Window
	err     error

	gotProvider uuid.UUID
	gotClinic   uuid.UUID
	gotStart    time.Time
	gotEnd      time.Time
	gotExclude  *uuid.UUID
}

func (f *fakeConflictFinder) FindConflicts(_ context.Context, providerID, clinicID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]Window, error) {
	f.gotProvider = providerID
	f.gotClinic = clinicID
	f.gotStart = start
	f.gotEnd = end
	f.gotExclude = excludeID
	if f.err != nil {
		return nil, f.err
	}
	// Half-open overlap test, same as the SQL predicate.
	var out []Window
	for _, w := range f.windows {
		if w.ProviderID != providerID || w.ClinicID != clinicID {
			continue
		}
		if w.Status == "cancelled" {
			continue
		}
		if excludeID != nil && w.ID == *excludeID {
			continue
		}
		if w.StartTime.Before(end) && w.EndTime.After(start) {
			out = append(out, w)
		}
	}
	return out, nil
}

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2026-03-02 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func TestValidateWindow(t *testing.T) {
	assert.NoError(t, ValidateWindow(at("09:00"), at("09:30")))
	assert.Error(t, ValidateWindow(at("09:30"), at("09:00")), "inverted window")

	err := ValidateWindow(at("09:00"), at("09:00"))
	require.Error(t, err, "zero-duration window")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestDeriveDuration(t *testing.T) {
	assert.Equal(t, 30, DeriveDuration(at("09:00"), at("09:30")))
	assert.Equal(t, 90, DeriveDuration(at("09:00"), at("10:30")))

	// Sub-minute remainders round to the nearest minute.
	start := at("09:00")
	assert.Equal(t, 15, DeriveDuration(start, start.Add(15*time.Minute+20*time.Second)))
	assert.Equal(t, 16, DeriveDuration(start, start.Add(15*time.Minute+40*time.Second)))
}

func TestReserveBackToBackIsNotAConflict(t *testing.T) {
	provider, clinic := uuid.New(), uuid.New()
	finder := &fakeConflictFinder{windows: []Window{
		{ID: uuid.New(), ProviderID: provider, ClinicID: clinic, StartTime: at("09:00"), EndTime: at("09:30"), Status: "scheduled"},
	}}
	guard := NewGuard(finder, nil, nil)

	release, err := guard.Reserve(context.Background(), provider, clinic, at("09:30"), at("10:00"), nil)
	require.NoError(t, err, "window starting exactly at another's end must not conflict")
	release()
}

func TestReserveOverlapConflicts(t *testing.T) {
	provider, clinic := uuid.New(), uuid.New()
	finder := &fakeConflictFinder{windows: []Window{
		{ID: uuid.New(), ProviderID: provider, ClinicID: clinic, StartTime: at("09:00"), EndTime: at("09:30"), Status: "scheduled"},
	}}
	guard := NewGuard(finder, nil, nil)

	_, err := guard.Reserve(context.Background(), provider, clinic, at("09:15"), at("09:45"), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestReserveCancelledWindowsIgnored(t *testing.T) {
	provider, clinic := uuid.New(), uuid.New()
	finder := &fakeConflictFinder{windows: []Window{
		{ID: uuid.New(), ProviderID: provider, ClinicID: clinic, StartTime: at("09:00"), EndTime: at("09:30"), Status: "cancelled"},
	}}
	guard := NewGuard(finder, nil, nil)

	release, err := guard.Reserve(context.Background(), provider, clinic, at("09:00"), at("09:30"), nil)
	require.NoError(t, err, "cancelled windows are excluded from conflict detection")
	release()
}

func TestReserveExcludesOwnPriorVersion(t *testing.T) {
	provider, clinic := uuid.New(), uuid.New()
	existingID := uuid.New()
	finder := &fakeConflictFinder{windows: []Window{
		{ID: existingID, ProviderID: provider, ClinicID: clinic, StartTime: at("09:00"), EndTime: at("09:30"), Status: "confirmed"},
	}}
	guard := NewGuard(finder, nil, nil)

	// Update path: shifting the same appointment by 15 minutes.
	release, err := guard.Reserve(context.Background(), provider, clinic, at("09:15"), at("09:45"), &existingID)
	require.NoError(t, err)
	release()
	require.NotNil(t, finder.gotExclude)
	assert.Equal(t, existingID, *finder.gotExclude)
}

func TestReserveDifferentProviderOrClinicIsFree(t *testing.T) {
	provider, clinic := uuid.New(), uuid.New()
	finder := &fakeConflictFinder{windows: []Window{
		{ID: uuid.New(), ProviderID: uuid.New(), ClinicID: clinic, StartTime: at("09:00"), EndTime: at("09:30"), Status: "scheduled"},
		{ID: uuid.New(), ProviderID: provider, ClinicID: uuid.New(), StartTime: at("09:00"), EndTime: at("09:30"), Status: "scheduled"},
	}}
	guard := NewGuard(finder, nil, nil)

	release, err := guard.Reserve(context.Background(), provider, clinic, at("09:00"), at("09:30"), nil)
	require.NoError(t, err)
	release()
}

func TestReserveInvalidWindowSkipsConflictCheck(t *testing.T) {
	provider, clinic := uuid.New(), uuid.New()
	finder := &fakeConflictFinder{}
	guard := NewGuard(finder, nil, nil)

	_, err := guard.Reserve(context.Background(), provider, clinic, at("10:00"), at("10:00"), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	assert.True(t, finder.gotStart.IsZero(), "conflict finder must not run for invalid windows")
}

func TestSlotKeysCoverWindow(t *testing.T) {
	provider, clinic := uuid.New(), uuid.New()

	keys := slotKeys(provider, clinic, at("09:15"), at("11:05"))
	assert.Len(t, keys, 3, "09, 10 and 11 hour buckets")

	keys = slotKeys(provider, clinic, at("09:00"), at("10:00"))
	assert.Len(t, keys, 1, "end is exclusive, only the 09 bucket")
}
