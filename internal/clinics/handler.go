package clinics

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/internal/auth"
	"github.com/harborvet/vetpms/internal/http/httpx"
	"github.com/harborvet/vetpms/pkg/logging"
)

// Handler handles HTTP requests for clinics and their settings.
type Handler struct {
	repo     *Repository
	settings *SettingsStore
	logger   *logging.Logger
}

// NewHandler creates a new clinics handler.
func NewHandler(repo *Repository, settings *SettingsStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, settings: settings, logger: logger}
}

// Routes mounts the clinic endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{clinicID}", h.Get)
	r.Put("/{clinicID}", h.Update)
	r.Get("/{clinicID}/settings", h.GetSettings)
	r.Put("/{clinicID}/settings", h.PutSettings)
	return r
}

// Create handles POST /clinics.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourceClinics, access.ActionCreate) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	var req CreateClinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	tz := req.Timezone
	if tz == "" {
		tz = "America/New_York"
	}
	clinic := &Clinic{
		ID:       uuid.New(),
		TenantID: principal.TenantID,
		Name:     req.Name,
		Slug:     req.Slug,
		Timezone: tz,
		Address:  req.Address,
		Phone:    req.Phone,
		Email:    req.Email,
		IsActive: true,
	}
	if err := h.repo.Create(r.Context(), clinic); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("clinic created", "clinic_id", clinic.ID, "slug", clinic.Slug)
	httpx.JSON(w, http.StatusCreated, clinic)
}

// Get handles GET /clinics/{clinicID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, clinicID, ok := h.resolve(w, r, access.ActionRead)
	if !ok {
		return
	}
	clinic, err := h.repo.GetByID(r.Context(), clinicID, access.ScopeFilter(principal))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clinic)
}

// List handles GET /clinics.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourceClinics, access.ActionRead) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	list, err := h.repo.List(r.Context(), access.ScopeFilter(principal), limit, offset)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clinics": list, "count": len(list)})
}

// Update handles PUT /clinics/{clinicID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal, clinicID, ok := h.resolve(w, r, access.ActionUpdate)
	if !ok {
		return
	}

	var req UpdateClinicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}

	clinic, err := h.repo.GetByID(r.Context(), clinicID, access.ScopeFilter(principal))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if req.Name != nil {
		clinic.Name = *req.Name
	}
	if req.Address != nil {
		clinic.Address = *req.Address
	}
	if req.Phone != nil {
		clinic.Phone = *req.Phone
	}
	if req.Email != nil {
		clinic.Email = *req.Email
	}
	if req.IsActive != nil {
		clinic.IsActive = *req.IsActive
	}
	if err := h.repo.Update(r.Context(), clinic); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, clinic)
}

// GetSettings handles GET /clinics/{clinicID}/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	principal, clinicID, ok := h.resolveSettings(w, r, access.ActionRead)
	if !ok {
		return
	}
	// The clinic must exist and be visible before settings are served.
	if _, err := h.repo.GetByID(r.Context(), clinicID, access.ScopeFilter(principal)); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	cfg, err := h.settings.Get(r.Context(), clinicID)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cfg)
}

// PutSettings handles PUT /clinics/{clinicID}/settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	principal, clinicID, ok := h.resolveSettings(w, r, access.ActionUpdate)
	if !ok {
		return
	}
	if _, err := h.repo.GetByID(r.Context(), clinicID, access.ScopeFilter(principal)); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	var cfg Settings
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			httpx.Error(w, h.logger, apperr.Newf(apperr.KindInvalidInput, "unknown timezone %q", cfg.Timezone))
			return
		}
	}
	cfg.ClinicID = clinicID
	if err := h.settings.Set(r.Context(), &cfg); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("clinic settings updated", "clinic_id", clinicID)
	httpx.JSON(w, http.StatusOK, &cfg)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, action string) (*access.Principal, uuid.UUID, bool) {
	return h.authorizeParam(w, r, access.ResourceClinics, action)
}

func (h *Handler) resolveSettings(w http.ResponseWriter, r *http.Request, action string) (*access.Principal, uuid.UUID, bool) {
	return h.authorizeParam(w, r, access.ResourceSettings, action)
}

func (h *Handler) authorizeParam(w http.ResponseWriter, r *http.Request, resource, action string) (*access.Principal, uuid.UUID, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return nil, uuid.Nil, false
	}
	if !access.Authorize(principal, resource, action) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid clinic id"))
		return nil, uuid.Nil, false
	}
	return principal, id, true
}
