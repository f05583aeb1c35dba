package appointments

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/internal/scheduling"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// allowedTransitions encodes the lifecycle: scheduled -> confirmed ->
// completed/cancelled/no-show. Completed, cancelled and no-show are terminal;
// administrative correction bypasses this table.
var allowedTransitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether the appointment is immutable except for
// administrative correction.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Appointment is a booked window for a provider at a clinic.
type Appointment struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          Status    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateAppointmentRequest is the booking payload. TenantID is taken from the
// principal unless a system admin supplies one explicitly.
type CreateAppointmentRequest struct {
	TenantID        uuid.UUID `json:"tenant_id,omitempty"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	ProviderID      uuid.UUID `json:"provider_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	// Override books outside clinic business hours; admins only.
	Override bool `json:"override,omitempty"`
}

// Validate checks required fields and the time window.
func (r *CreateAppointmentRequest) Validate() error {
	if r.ClinicID == uuid.Nil {
		return apperr.New(apperr.KindInvalidInput, "clinic_id is required")
	}
	if r.ProviderID == uuid.Nil {
		return apperr.New(apperr.KindInvalidInput, "provider_id is required")
	}
	if r.PatientID == uuid.Nil {
		return apperr.New(apperr.KindInvalidInput, "patient_id is required")
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return apperr.New(apperr.KindInvalidInput, "start_time and end_time are required")
	}
	if err := scheduling.ValidateWindow(r.StartTime, r.EndTime); err != nil {
		return err
	}
	if r.DurationMinutes != nil && *r.DurationMinutes <= 0 {
		return apperr.New(apperr.KindInvalidInput, "duration_minutes must be positive")
	}
	return nil
}

// UpdateAppointmentRequest reschedules or annotates an appointment. Nil
// fields are left unchanged.
type UpdateAppointmentRequest struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Reason    *string    `json:"reason,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	// Override marks an administrative correction of a terminal appointment.
	Override bool `json:"override,omitempty"`
}

// StatusChangeRequest moves an appointment through its lifecycle.
type StatusChangeRequest struct {
	Status   Status `json:"status"`
	Override bool   `json:"override,omitempty"`
}

// ListFilter narrows appointment listings. Scope constraints are applied on
// top of it by the repository.
type ListFilter struct {
	ClinicID   *uuid.UUID
	ProviderID *uuid.UUID
	PatientID  *uuid.UUID
	Status     *Status
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
