package tenants

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/internal/auth"
	"github.com/harborvet/vetpms/internal/http/httpx"
	"github.com/harborvet/vetpms/pkg/logging"
)

// Handler handles HTTP requests for tenant administration.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new tenants handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the tenant endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{tenantID}", h.Get)
	r.Post("/{tenantID}/deactivate", h.Deactivate)
	r.Post("/{tenantID}/activate", h.Activate)
	return r
}

// Create handles POST /tenants.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, access.ActionCreate)
	if !ok {
		return
	}

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	plan := req.Plan
	if plan == "" {
		plan = "standard"
	}
	tenant := &Tenant{
		ID:       uuid.New(),
		Name:     req.Name,
		Slug:     req.Slug,
		Plan:     plan,
		IsActive: true,
	}
	if err := h.repo.Create(r.Context(), tenant); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("tenant provisioned", "tenant_id", tenant.ID, "slug", tenant.Slug, "by", principal.ID)
	httpx.JSON(w, http.StatusCreated, tenant)
}

// Get handles GET /tenants/{tenantID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ActionRead); !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid tenant id"))
		return
	}
	tenant, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tenant)
}

// List handles GET /tenants.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r, access.ActionRead); !ok {
		return
	}
	list, err := h.repo.List(r.Context())
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"tenants": list, "count": len(list)})
}

// Deactivate handles POST /tenants/{tenantID}/deactivate.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Activate handles POST /tenants/{tenantID}/activate.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	principal, ok := h.authorize(w, r, access.ActionUpdate)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid tenant id"))
		return
	}
	if err := h.repo.SetActive(r.Context(), id, active); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("tenant activation changed", "tenant_id", id, "is_active", active, "by", principal.ID)
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "is_active": active})
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action string) (*access.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return nil, false
	}
	if !access.Authorize(principal, access.ResourceTenants, action) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return nil, false
	}
	return principal, true
}
