package patients

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/internal/auth"
	"github.com/harborvet/vetpms/internal/http/httpx"
	"github.com/harborvet/vetpms/pkg/logging"
)

// Handler handles HTTP requests for owners and patients.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new patients handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// OwnerRoutes mounts the owner endpoints.
func (h *Handler) OwnerRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateOwner)
	r.Get("/{ownerID}", h.GetOwner)
	r.Get("/{ownerID}/patients", h.ListOwnerPatients)
	return r
}

// Routes mounts the patient endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreatePatient)
	r.Get("/", h.ListPatients)
	r.Get("/{patientID}", h.GetPatient)
	r.Put("/{patientID}", h.UpdatePatient)
	return r
}

// CreateOwner handles POST /owners.
func (h *Handler) CreateOwner(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourceOwners, access.ActionCreate) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	var req CreateOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	owner := &Owner{
		ID:       uuid.New(),
		TenantID: principal.TenantID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if err := h.repo.CreateOwner(r.Context(), owner); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("owner created", "owner_id", owner.ID, "tenant_id", owner.TenantID)
	httpx.JSON(w, http.StatusCreated, owner)
}

// GetOwner handles GET /owners/{ownerID}.
func (h *Handler) GetOwner(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourceOwners, access.ActionRead) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "ownerID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid owner id"))
		return
	}

	owner, err := h.repo.GetOwner(r.Context(), id, access.ScopeFilter(principal))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, owner)
}

// ListOwnerPatients handles GET /owners/{ownerID}/patients.
func (h *Handler) ListOwnerPatients(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourcePatients, access.ActionRead) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}
	ownerID, err := uuid.Parse(chi.URLParam(r, "ownerID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid owner id"))
		return
	}

	list, err := h.repo.ListPatients(r.Context(), access.ScopeFilter(principal), &ownerID, 0, 0)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"patients": list, "count": len(list)})
}

// CreatePatient handles POST /patients.
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourcePatients, access.ActionCreate) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if err := access.AssertOwnership(principal, access.EntityScope{TenantID: principal.TenantID, ClinicID: &req.ClinicID}); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	patient := &Patient{
		ID:          uuid.New(),
		TenantID:    principal.TenantID,
		ClinicID:    req.ClinicID,
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Species:     req.Species,
		Breed:       req.Breed,
		DateOfBirth: req.DateOfBirth,
		WeightKg:    req.WeightKg,
	}
	if err := h.repo.CreatePatient(r.Context(), patient); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("patient created", "patient_id", patient.ID, "clinic_id", patient.ClinicID)
	httpx.JSON(w, http.StatusCreated, patient)
}

// GetPatient handles GET /patients/{patientID}.
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourcePatients, access.ActionRead) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid patient id"))
		return
	}

	patient, err := h.repo.GetPatient(r.Context(), id, access.ScopeFilter(principal))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, patient)
}

// ListPatients handles GET /patients.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourcePatients, access.ActionRead) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	limit, offset := 0, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, _ = strconv.Atoi(v)
	}
	var ownerID *uuid.UUID
	if v := r.URL.Query().Get("owner_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid owner_id"))
			return
		}
		ownerID = &id
	}

	list, err := h.repo.ListPatients(r.Context(), access.ScopeFilter(principal), ownerID, limit, offset)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"patients": list, "count": len(list)})
}

// UpdatePatient handles PUT /patients/{patientID}.
func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return
	}
	if !access.Authorize(principal, access.ResourcePatients, access.ActionUpdate) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid patient id"))
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}

	// Scoped load doubles as the ownership check.
	patient, err := h.repo.GetPatient(r.Context(), id, access.ScopeFilter(principal))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Breed != nil {
		patient.Breed = *req.Breed
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = req.DateOfBirth
	}
	if req.WeightKg != nil {
		if *req.WeightKg < 0 {
			httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "weight_kg cannot be negative"))
			return
		}
		patient.WeightKg = *req.WeightKg
	}

	if err := h.repo.UpdatePatient(r.Context(), patient); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, patient)
}
