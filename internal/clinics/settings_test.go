package clinics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SettingsStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSettingsStore(client)
}

func TestSettingsGetReturnsDefaultsWhenUnset(t *testing.T) {
	store := newTestStore(t)
	clinicID := uuid.New()

	cfg, err := store.Get(context.Background(), clinicID)
	require.NoError(t, err)
	assert.Equal(t, clinicID, cfg.ClinicID)
	assert.Equal(t, 30, cfg.DefaultVisitMinutes)
	assert.Equal(t, 24, cfg.Notifications.ReminderLeadHours)
	assert.Nil(t, cfg.BusinessHours.Sunday)
}

func TestSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	clinicID := uuid.New()

	cfg := DefaultSettings(clinicID)
	cfg.Timezone = "America/Chicago"
	cfg.DefaultVisitMinutes = 20
	cfg.BusinessHours.Saturday = nil
	require.NoError(t, store.Set(context.Background(), cfg))

	got, err := store.Get(context.Background(), clinicID)
	require.NoError(t, err)
	assert.Equal(t, "America/Chicago", got.Timezone)
	assert.Equal(t, 20, got.DefaultVisitMinutes)
	assert.Nil(t, got.BusinessHours.Saturday)
	assert.NotNil(t, got.BusinessHours.Monday)
}

func TestSettingsIsolatedPerClinic(t *testing.T) {
	store := newTestStore(t)
	a, b := uuid.New(), uuid.New()

	cfg := DefaultSettings(a)
	cfg.DefaultVisitMinutes = 45
	require.NoError(t, store.Set(context.Background(), cfg))

	other, err := store.Get(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 30, other.DefaultVisitMinutes, "clinic b must not see clinic a's settings")
}

func TestIsOpenAt(t *testing.T) {
	cfg := DefaultSettings(uuid.New())
	cfg.Timezone = "UTC"

	monday10 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.True(t, cfg.IsOpenAt(monday10))

	monday7 := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	assert.False(t, cfg.IsOpenAt(monday7))

	sunday := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.False(t, cfg.IsOpenAt(sunday))
}

func TestIsOpenAtNoHoursConfigured(t *testing.T) {
	cfg := &Settings{ClinicID: uuid.New(), Timezone: "UTC"}
	assert.True(t, cfg.IsOpenAt(time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)),
		"a clinic with no configured hours is appointment-only and always open")
}
