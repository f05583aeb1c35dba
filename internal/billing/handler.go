package billing

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

// Handler handles HTTP requests for invoices.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new billing handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the invoice endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{invoiceID}", h.Get)
	r.Post("/{invoiceID}/status", h.ChangeStatus)
	return r
}

// Create handles POST /invoices.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, access.ActionCreate)
	if !ok {
		return
	}

	var req CreateInvoiceRequest
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

	inv := req.Build(principal.TenantID)
	if err := h.repo.CreateWithItems(r.Context(), inv); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("invoice created",
		"invoice_id", inv.ID, "total_cents", inv.TotalCents, "items", len(inv.Items))
	httpx.JSON(w, http.StatusCreated, inv)
}

// Get handles GET /invoices/{invoiceID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, access.ActionRead)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid invoice id"))
		return
	}

	inv, err := h.repo.GetByID(r.Context(), id, access.ScopeFilter(principal))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// List handles GET /invoices.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, access.ActionRead)
	if !ok {
		return
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
	var status *InvoiceStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := ParseInvoiceStatus(v)
		if err != nil {
			httpx.Error(w, h.logger, err)
			return
		}
		status = &st
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.repo.List(r.Context(), access.ScopeFilter(principal), ownerID, status, limit, offset)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": list, "count": len(list)})
}

// ChangeStatus handles POST /invoices/{invoiceID}/status.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, access.ActionUpdate)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "invoiceID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid invoice id"))
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}
	next, err := ParseInvoiceStatus(body.Status)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	inv, err := h.repo.GetByID(r.Context(), id, access.ScopeFilter(principal))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	if !inv.Status.CanTransitionTo(next) {
		httpx.Error(w, h.logger, apperr.Newf(apperr.KindInvalidOperation,
			"cannot move invoice from %s to %s", inv.Status, next))
		return
	}

	inv.Status = next
	if err := h.repo.UpdateStatus(r.Context(), inv); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("invoice status changed", "invoice_id", inv.ID, "status", inv.Status)
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action string) (*access.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return nil, false
	}
	if !access.Authorize(principal, access.ResourceInvoices, action) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return nil, false
	}
	return principal, true
}
