package appointments

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/internal/auth"
	"github.com/harborvet/vetpms/internal/http/httpx"
	"github.com/harborvet/vetpms/pkg/logging"
)

// Handler handles HTTP requests for appointments.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new appointments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the appointment endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{appointmentID}", h.Get)
	r.Put("/{appointmentID}", h.Update)
	r.Post("/{appointmentID}/status", h.ChangeStatus)
	return r
}

// Create handles POST /appointments.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}

	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}

	appt, err := h.service.Create(r.Context(), principal, &req)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, appt)
}

// ListAppointmentsResponse is the response for listing appointments.
type ListAppointmentsResponse struct {
	Appointments []*Appointment `json:"appointments"`
	Count        int            `json:"count"`
	Offset       int            `json:"offset"`
	Limit        int            `json:"limit"`
}

// List handles GET /appointments.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}

	filter := ListFilter{Limit: 50}
	q := r.URL.Query()

	if v := q.Get("clinic_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid clinic_id"))
			return
		}
		filter.ClinicID = &id
	}
	if v := q.Get("provider_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid provider_id"))
			return
		}
		filter.ProviderID = &id
	}
	if v := q.Get("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid patient_id"))
			return
		}
		filter.PatientID = &id
	}
	if v := q.Get("status"); v != "" {
		status := Status(v)
		if !status.Valid() {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid status"))
			return
		}
		filter.Status = &status
	}
	if v := q.Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid from timestamp"))
			return
		}
		filter.From = &ts
	}
	if v := q.Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid to timestamp"))
			return
		}
		filter.To = &ts
	}
	if v := q.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil && limit > 0 && limit <= 200 {
			filter.Limit = limit
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}

	appts, err := h.service.List(r.Context(), principal, filter)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListAppointmentsResponse{
		Appointments: appts,
		Count:        len(appts),
		Offset:       filter.Offset,
		Limit:        filter.Limit,
	})
}

// Get handles GET /appointments/{appointmentID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid appointment id"))
		return
	}

	appt, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

// Update handles PUT /appointments/{appointmentID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid appointment id"))
		return
	}

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}

	appt, err := h.service.Update(r.Context(), principal, id, &req)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

// ChangeStatus handles POST /appointments/{appointmentID}/status.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid appointment id"))
		return
	}

	var req StatusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}

	appt, err := h.service.ChangeStatus(r.Context(), principal, id, &req)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}
