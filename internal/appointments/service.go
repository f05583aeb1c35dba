package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/internal/clinics"
	"github.com/harborvet/vetpms/internal/observability/metrics"
	"github.com/harborvet/vetpms/internal/scheduling"
	"github.com/harborvet/vetpms/pkg/logging"
)

var tracer = otel.Tracer("vetpms.internal.appointments")

// Store is the persistence surface the service needs. *Repository implements
// it; tests inject fakes.
type Store interface {
	scheduling.ConflictFinder
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID, scope access.Scope) (*Appointment, error)
	List(ctx context.Context, scope access.Scope, filter ListFilter) ([]*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
}

// Notifier delivers booking notifications. Failures are logged by the
// implementation and never fail the booking itself.
type Notifier interface {
	AppointmentBooked(ctx context.Context, a *Appointment)
	AppointmentCancelled(ctx context.Context, a *Appointment)
}

// HoursSource reports a clinic's configured business hours. Nil disables the
// business-hours policy on bookings.
type HoursSource interface {
	Get(ctx context.Context, clinicID uuid.UUID) (*clinics.Settings, error)
}

// Service enforces access control and scheduling policy around appointment
// writes. All decisions happen before any persistence call; a rejected
// request writes nothing.
type Service struct {
	store    Store
	guard    *scheduling.Guard
	notifier Notifier
	hours    HoursSource
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
}

// NewService constructs an appointments service.
func NewService(store Store, guard *scheduling.Guard, notifier Notifier, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if guard == nil {
		panic("appointments: scheduling guard required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, guard: guard, notifier: notifier, metrics: m, logger: logger}
}

// WithHours enables the business-hours policy using the given source.
func (s *Service) WithHours(hours HoursSource) *Service {
	s.hours = hours
	return s
}

// Create books a new appointment for the principal's tenant.
func (s *Service) Create(ctx context.Context, principal *access.Principal, req *CreateAppointmentRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.create")
	defer span.End()

	if err := s.authorize(principal, access.ActionCreate); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenantID := req.TenantID
	if principal.Role != access.RoleSystemAdmin || tenantID == uuid.Nil {
		tenantID = principal.TenantID
	}
	if tenantID == uuid.Nil {
		return nil, apperr.New(apperr.KindInvalidInput, "tenant_id is required")
	}
	if err := access.AssertOwnership(principal, access.EntityScope{TenantID: tenantID, ClinicID: &req.ClinicID}); err != nil {
		return nil, err
	}

	if err := s.checkBusinessHours(ctx, principal, req.ClinicID, req.StartTime, req.Override); err != nil {
		return nil, err
	}

	duration := scheduling.DeriveDuration(req.StartTime, req.EndTime)
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}

	checkStart := time.Now()
	release, err := s.guard.Reserve(ctx, req.ProviderID, req.ClinicID, req.StartTime, req.EndTime, nil)
	s.metrics.ObserveConflictCheck("create", time.Since(checkStart).Seconds())
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.metrics.ObserveConflict("create")
		}
		s.metrics.ObserveBooking("create", "rejected")
		return nil, err
	}
	defer release()

	appt := &Appointment{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ClinicID:        req.ClinicID,
		ProviderID:      req.ProviderID,
		PatientID:       req.PatientID,
		StartTime:       req.StartTime.UTC(),
		EndTime:         req.EndTime.UTC(),
		DurationMinutes: duration,
		Status:          StatusScheduled,
		Reason:          req.Reason,
		Notes:           req.Notes,
	}
	if err := s.store.Create(ctx, appt); err != nil {
		s.metrics.ObserveBooking("create", "error")
		return nil, err
	}

	span.SetAttributes(attribute.String("vetpms.appointment_id", appt.ID.String()))
	s.metrics.ObserveBooking("create", "ok")
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"clinic_id", appt.ClinicID,
		"provider_id", appt.ProviderID,
		"start", appt.StartTime,
	)
	if s.notifier != nil {
		s.notifier.AppointmentBooked(ctx, appt)
	}
	return appt, nil
}

// Get returns one appointment within the principal's scope.
func (s *Service) Get(ctx context.Context, principal *access.Principal, id uuid.UUID) (*Appointment, error) {
	if err := s.authorize(principal, access.ActionRead); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id, access.ScopeFilter(principal))
}

// List returns appointments matching the filter within the principal's scope.
func (s *Service) List(ctx context.Context, principal *access.Principal, filter ListFilter) ([]*Appointment, error) {
	if err := s.authorize(principal, access.ActionRead); err != nil {
		return nil, err
	}
	return s.store.List(ctx, access.ScopeFilter(principal), filter)
}

// Update reschedules or annotates an appointment. Rescheduling re-runs the
// conflict check with the appointment's own id excluded so it never conflicts
// with its prior version.
func (s *Service) Update(ctx context.Context, principal *access.Principal, id uuid.UUID, req *UpdateAppointmentRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.update")
	defer span.End()

	if err := s.authorize(principal, access.ActionUpdate); err != nil {
		return nil, err
	}

	appt, err := s.store.GetByID(ctx, id, access.ScopeFilter(principal))
	if err != nil {
		return nil, err
	}
	if err := s.guardTerminal(principal, appt, req.Override); err != nil {
		return nil, err
	}

	rescheduled := false
	start, end := appt.StartTime, appt.EndTime
	if req.StartTime != nil {
		start = req.StartTime.UTC()
		rescheduled = true
	}
	if req.EndTime != nil {
		end = req.EndTime.UTC()
		rescheduled = true
	}

	if rescheduled {
		if err := s.checkBusinessHours(ctx, principal, appt.ClinicID, start, req.Override); err != nil {
			return nil, err
		}

		checkStart := time.Now()
		release, err := s.guard.Reserve(ctx, appt.ProviderID, appt.ClinicID, start, end, &appt.ID)
		s.metrics.ObserveConflictCheck("update", time.Since(checkStart).Seconds())
		if err != nil {
			if apperr.Is(err, apperr.KindConflict) {
				s.metrics.ObserveConflict("update")
			}
			s.metrics.ObserveBooking("update", "rejected")
			return nil, err
		}
		defer release()

		appt.StartTime = start
		appt.EndTime = end
		appt.DurationMinutes = scheduling.DeriveDuration(start, end)
	}
	if req.Reason != nil {
		appt.Reason = *req.Reason
	}
	if req.Notes != nil {
		appt.Notes = *req.Notes
	}

	if err := s.store.Update(ctx, appt); err != nil {
		s.metrics.ObserveBooking("update", "error")
		return nil, err
	}
	s.metrics.ObserveBooking("update", "ok")
	return appt, nil
}

// ChangeStatus moves an appointment through its lifecycle. Cancelling frees
// the slot for new bookings; terminal states only move under administrative
// correction.
func (s *Service) ChangeStatus(ctx context.Context, principal *access.Principal, id uuid.UUID, req *StatusChangeRequest) (*Appointment, error) {
	if err := s.authorize(principal, access.ActionUpdate); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, apperr.Newf(apperr.KindInvalidInput, "unknown status %q", req.Status)
	}

	appt, err := s.store.GetByID(ctx, id, access.ScopeFilter(principal))
	if err != nil {
		return nil, err
	}

	if !appt.Status.CanTransitionTo(req.Status) {
		if err := s.guardTerminal(principal, appt, req.Override); err != nil {
			return nil, err
		}
		if !appt.Status.Terminal() {
			return nil, apperr.Newf(apperr.KindInvalidOperation, "cannot move appointment from %s to %s", appt.Status, req.Status)
		}
	}

	prev := appt.Status
	appt.Status = req.Status
	if err := s.store.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.logger.Info("appointment status changed",
		"appointment_id", appt.ID,
		"from", prev,
		"to", appt.Status,
	)
	if appt.Status == StatusCancelled && s.notifier != nil {
		s.notifier.AppointmentCancelled(ctx, appt)
	}
	return appt, nil
}

func (s *Service) authorize(principal *access.Principal, action string) error {
	if principal == nil {
		return apperr.New(apperr.KindUnauthenticated, "no principal")
	}
	if !access.Authorize(principal, access.ResourceAppointments, action) {
		s.metrics.ObserveDenied(string(principal.Role), access.ResourceAppointments, action)
		return apperr.New(apperr.KindForbidden, "insufficient permissions")
	}
	return nil
}

// checkBusinessHours rejects bookings outside the clinic's opening hours.
// Admins may override; an unreachable settings store fails open since hours
// are a front-desk convenience, not a safety property.
func (s *Service) checkBusinessHours(ctx context.Context, principal *access.Principal, clinicID uuid.UUID, start time.Time, override bool) error {
	if s.hours == nil {
		return nil
	}
	cfg, err := s.hours.Get(ctx, clinicID)
	if err != nil || cfg == nil {
		s.logger.Warn("business hours unavailable, allowing booking", "clinic_id", clinicID, "error", err)
		return nil
	}
	if cfg.IsOpenAt(start) {
		return nil
	}
	if override && (principal.Role == access.RoleSystemAdmin || principal.Role == access.RoleClinicAdmin) {
		return nil
	}
	return apperr.New(apperr.KindInvalidOperation, "requested time is outside clinic business hours")
}

// guardTerminal enforces immutability of completed/cancelled/no-show
// appointments. Administrative correction requires an explicit override by a
// clinic-admin or system-admin.
func (s *Service) guardTerminal(principal *access.Principal, appt *Appointment, override bool) error {
	if !appt.Status.Terminal() {
		return nil
	}
	if override && (principal.Role == access.RoleSystemAdmin || principal.Role == access.RoleClinicAdmin) {
		return nil
	}
	return apperr.Newf(apperr.KindInvalidOperation, "appointment in status %s cannot be modified", appt.Status)
}
