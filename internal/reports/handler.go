package reports

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/internal/auth"
	"github.com/harborvet/vetpms/internal/http/httpx"
	"github.com/harborvet/vetpms/pkg/logging"
)

// Handler handles HTTP requests for reports.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new reports handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the report endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/clinics/{clinicID}/dashboard", h.ClinicDashboard)
	return r
}

// ClinicDashboard handles GET /reports/clinics/{clinicID}/dashboard.
// Accepts optional start and end query params as RFC3339; the default window
// is the last 30 days.
func (h *Handler) ClinicDashboard(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourceReports, access.ActionRead) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid clinic id"))
		return
	}
	if err := access.AssertOwnership(principal, access.EntityScope{TenantID: principal.TenantID, ClinicID: &clinicID}); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if v := r.URL.Query().Get("start"); v != "" {
		start, err = time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "start must be RFC3339"))
			return
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		end, err = time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "end must be RFC3339"))
			return
		}
	}
	if !end.After(start) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "end must be after start"))
		return
	}

	stats, err := h.service.ClinicDashboard(r.Context(), access.ScopeFilter(principal), clinicID, start, end)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
