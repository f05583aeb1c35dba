package clinics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DayHours is the opening window for a single day. Nil means closed that day.
type DayHours struct {
	Open  string `json:"open"`  // "08:00" in 24-hour format
	Close string `json:"close"` // "18:00" in 24-hour format
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// ForDay returns the hours for a given weekday.
func (b *BusinessHours) ForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// HasAnyHours reports whether at least one day is configured.
func (b *BusinessHours) HasAnyHours() bool {
	return b.Sunday != nil || b.Monday != nil || b.Tuesday != nil ||
		b.Wednesday != nil || b.Thursday != nil || b.Friday != nil || b.Saturday != nil
}

// NotificationPrefs holds per-clinic notification preferences.
type NotificationPrefs struct {
	EmailEnabled        bool `json:"email_enabled"`
	SMSEnabled          bool `json:"sms_enabled"`
	SendConfirmations   bool `json:"send_confirmations"`
	SendReminders       bool `json:"send_reminders"`
	ReminderLeadHours   int  `json:"reminder_lead_hours"`
	NotifyStaffOnBook   bool `json:"notify_staff_on_book"`
	NotifyStaffOnCancel bool `json:"notify_staff_on_cancel"`
}

// Settings is the per-clinic operational configuration. It lives in redis,
// not Postgres: settings change often, are read on every booking, and losing
// them only means falling back to defaults.
type Settings struct {
	ClinicID            uuid.UUID         `json:"clinic_id"`
	Timezone            string            `json:"timezone"`
	BusinessHours       BusinessHours     `json:"business_hours"`
	DefaultVisitMinutes int               `json:"default_visit_minutes"`
	Notifications       NotificationPrefs `json:"notifications"`
}

// DefaultSettings returns the configuration a clinic starts with.
func DefaultSettings(clinicID uuid.UUID) *Settings {
	weekday := &DayHours{Open: "08:00", Close: "18:00"}
	return &Settings{
		ClinicID: clinicID,
		Timezone: "America/New_York",
		BusinessHours: BusinessHours{
			Monday:    weekday,
			Tuesday:   weekday,
			Wednesday: weekday,
			Thursday:  weekday,
			Friday:    &DayHours{Open: "08:00", Close: "17:00"},
			Saturday:  &DayHours{Open: "09:00", Close: "13:00"},
			Sunday:    nil,
		},
		DefaultVisitMinutes: 30,
		Notifications: NotificationPrefs{
			EmailEnabled:      true,
			SMSEnabled:        false,
			SendConfirmations: true,
			SendReminders:     true,
			ReminderLeadHours: 24,
			NotifyStaffOnBook: false,
		},
	}
}

// IsOpenAt reports whether the clinic is open at the given time. A clinic
// with no configured hours is treated as always open (appointment-only).
func (s *Settings) IsOpenAt(t time.Time) bool {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)

	hours := s.BusinessHours.ForDay(local.Weekday())
	if hours == nil {
		return !s.BusinessHours.HasAnyHours()
	}

	open, err := time.Parse("15:04", hours.Open)
	if err != nil {
		return false
	}
	clos, err := time.Parse("15:04", hours.Close)
	if err != nil {
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= open.Hour()*60+open.Minute() && minutes < clos.Hour()*60+clos.Minute()
}

// SettingsStore persists clinic settings in redis.
type SettingsStore struct {
	redis *redis.Client
}

// NewSettingsStore creates a settings store.
func NewSettingsStore(client *redis.Client) *SettingsStore {
	return &SettingsStore{redis: client}
}

func (s *SettingsStore) key(clinicID uuid.UUID) string {
	return fmt.Sprintf("clinic:settings:%s", clinicID)
}

// Get retrieves clinic settings, returning defaults when none are stored.
func (s *SettingsStore) Get(ctx context.Context, clinicID uuid.UUID) (*Settings, error) {
	data, err := s.redis.Get(ctx, s.key(clinicID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultSettings(clinicID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("clinics: get settings: %w", err)
	}

	var cfg Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("clinics: unmarshal settings: %w", err)
	}
	return &cfg, nil
}

// Set saves clinic settings.
func (s *SettingsStore) Set(ctx context.Context, cfg *Settings) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("clinics: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(cfg.ClinicID), data, 0).Err(); err != nil {
		return fmt.Errorf("clinics: set settings: %w", err)
	}
	return nil
}
