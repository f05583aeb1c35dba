package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/appointments"
	"github.com/harborvet/vetpms/internal/clinics"
	"github.com/harborvet/vetpms/internal/observability/metrics"
	"github.com/harborvet/vetpms/internal/patients"
	"github.com/harborvet/vetpms/pkg/logging"
)

// ContactResolver looks up the owner contact block for a patient.
type ContactResolver interface {
	ContactForPatient(ctx context.Context, patientID uuid.UUID) (*patients.Contact, error)
}

// SettingsSource serves per-clinic notification preferences.
type SettingsSource interface {
	Get(ctx context.Context, clinicID uuid.UUID) (*clinics.Settings, error)
}

// ReminderStore records that a reminder went out, exactly once per
// appointment.
type ReminderStore interface {
	MarkSent(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

// Service sends appointment confirmations, cancellations, and reminders.
// Delivery failures are logged and counted but never propagate into the
// booking path: a down email provider must not block the front desk.
type Service struct {
	email    EmailSender
	sms      SMSSender
	settings SettingsSource
	contacts ContactResolver
	queue    Queue
	store    ReminderStore
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
}

// NewService wires the notification service. Any of email, sms, queue, and
// store may be nil; the corresponding channel is skipped.
func NewService(
	email EmailSender,
	sms SMSSender,
	settings SettingsSource,
	contacts ContactResolver,
	queue Queue,
	store ReminderStore,
	m *metrics.SchedulingMetrics,
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:    email,
		sms:      sms,
		settings: settings,
		contacts: contacts,
		queue:    queue,
		store:    store,
		metrics:  m,
		logger:   logger,
	}
}

// AppointmentBooked sends the booking confirmation and queues the visit
// reminder.
func (s *Service) AppointmentBooked(ctx context.Context, a *appointments.Appointment) {
	prefs, contact, ok := s.resolve(ctx, a)
	if !ok {
		return
	}

	if prefs.Notifications.SendConfirmations {
		subject := "Appointment confirmed"
		body := fmt.Sprintf("Hi %s, %s's visit is booked for %s.",
			contact.OwnerName, contact.PatientName, a.StartTime.Format("Monday, January 2 at 3:04 PM"))
		s.deliver(ctx, prefs, contact, subject, body)
	}

	if prefs.Notifications.SendReminders && s.queue != nil {
		job := ReminderJob{
			AppointmentID: a.ID,
			ClinicID:      a.ClinicID,
			OwnerName:     contact.OwnerName,
			OwnerEmail:    contact.Email,
			OwnerPhone:    contact.Phone,
			PatientName:   contact.PatientName,
			StartTime:     a.StartTime,
		}
		body, err := job.Encode()
		if err != nil {
			s.logger.Error("reminder job encode failed", "error", err, "appointment_id", a.ID)
			return
		}
		if err := s.queue.Send(ctx, body); err != nil {
			s.logger.Error("reminder enqueue failed", "error", err, "appointment_id", a.ID)
		}
	}
}

// AppointmentCancelled notifies the owner that the visit was cancelled.
func (s *Service) AppointmentCancelled(ctx context.Context, a *appointments.Appointment) {
	prefs, contact, ok := s.resolve(ctx, a)
	if !ok {
		return
	}
	if !prefs.Notifications.SendConfirmations {
		return
	}

	subject := "Appointment cancelled"
	body := fmt.Sprintf("Hi %s, %s's visit on %s has been cancelled. Call the clinic to rebook.",
		contact.OwnerName, contact.PatientName, a.StartTime.Format("Monday, January 2 at 3:04 PM"))
	s.deliver(ctx, prefs, contact, subject, body)
}

// SendReminder delivers one queued reminder. It returns nil when the
// reminder was already sent or the appointment is no longer active; only
// transport failures are errors, so the worker can retry them.
func (s *Service) SendReminder(ctx context.Context, job ReminderJob) error {
	if s.store != nil {
		fresh, err := s.store.MarkSent(ctx, job.AppointmentID)
		if err != nil {
			return fmt.Errorf("notify: reminder dedupe failed: %w", err)
		}
		if !fresh {
			s.logger.Info("reminder skipped", "appointment_id", job.AppointmentID)
			s.metrics.ObserveReminder("none", "skipped")
			return nil
		}
	}

	prefs, err := s.prefsFor(ctx, job.ClinicID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Hi %s, a reminder that %s has an appointment %s.",
		job.OwnerName, job.PatientName, job.StartTime.Format("Monday, January 2 at 3:04 PM"))

	var firstErr error
	if prefs.Notifications.EmailEnabled && job.OwnerEmail != "" && s.email != nil {
		err := s.email.Send(ctx, EmailMessage{
			To:      job.OwnerEmail,
			ToName:  job.OwnerName,
			Subject: "Appointment reminder",
			Body:    body,
		})
		s.observe("email", err)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if prefs.Notifications.SMSEnabled && job.OwnerPhone != "" && s.sms != nil {
		err := s.sms.SendSMS(ctx, job.OwnerPhone, body)
		s.observe("sms", err)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) resolve(ctx context.Context, a *appointments.Appointment) (*clinics.Settings, *patients.Contact, bool) {
	prefs, err := s.prefsFor(ctx, a.ClinicID)
	if err != nil {
		s.logger.Error("notification settings lookup failed", "error", err, "clinic_id", a.ClinicID)
		return nil, nil, false
	}
	if s.contacts == nil {
		return nil, nil, false
	}
	contact, err := s.contacts.ContactForPatient(ctx, a.PatientID)
	if err != nil {
		s.logger.Error("owner contact lookup failed", "error", err, "patient_id", a.PatientID)
		return nil, nil, false
	}
	return prefs, contact, true
}

func (s *Service) prefsFor(ctx context.Context, clinicID uuid.UUID) (*clinics.Settings, error) {
	if s.settings == nil {
		return clinics.DefaultSettings(clinicID), nil
	}
	return s.settings.Get(ctx, clinicID)
}

func (s *Service) deliver(ctx context.Context, prefs *clinics.Settings, contact *patients.Contact, subject, body string) {
	if prefs.Notifications.EmailEnabled && contact.Email != "" && s.email != nil {
		if err := s.email.Send(ctx, EmailMessage{
			To:      contact.Email,
			ToName:  contact.OwnerName,
			Subject: subject,
			Body:    body,
		}); err != nil {
			s.logger.Error("confirmation email failed", "error", err, "to", contact.Email)
		}
	}
	if prefs.Notifications.SMSEnabled && contact.Phone != "" && s.sms != nil {
		if err := s.sms.SendSMS(ctx, contact.Phone, body); err != nil {
			s.logger.Error("confirmation sms failed", "error", err, "to", contact.Phone)
		}
	}
}

func (s *Service) observe(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	s.metrics.ObserveReminder(channel, status)
}

var _ appointments.Notifier = (*Service)(nil)
