package inventory

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

// Handler handles HTTP requests for inventory.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new inventory handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes mounts the inventory endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{itemID}", h.Get)
	r.Post("/{itemID}/adjust", h.Adjust)
	return r
}

// Create handles POST /inventory.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, access.ActionCreate)
	if !ok {
		return
	}

	var req CreateItemRequest
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

	item := &Item{
		ID:           uuid.New(),
		TenantID:     principal.TenantID,
		ClinicID:     req.ClinicID,
		SKU:          req.SKU,
		Name:         req.Name,
		Category:     req.Category,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		UnitCents:    req.UnitCents,
	}
	if err := h.repo.Create(r.Context(), item); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("inventory item created", "item_id", item.ID, "sku", item.SKU)
	httpx.JSON(w, http.StatusCreated, item)
}

// Get handles GET /inventory/{itemID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, access.ActionRead)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid item id"))
		return
	}

	item, err := h.repo.GetByID(r.Context(), id, access.ScopeFilter(principal))
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// List handles GET /inventory.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, access.ActionRead)
	if !ok {
		return
	}

	lowStock := r.URL.Query().Get("low_stock") == "true"
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.repo.List(r.Context(), access.ScopeFilter(principal), lowStock, limit, offset)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "count": len(list)})
}

// Adjust handles POST /inventory/{itemID}/adjust.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.authorize(w, r, access.ActionUpdate)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid item id"))
		return
	}

	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, h.logger, apperr.New(apperr.KindInvalidInput, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		httpx.Error(w, h.logger, err)
		return
	}

	item, err := h.repo.AdjustStock(r.Context(), id, access.ScopeFilter(principal), req.Delta)
	if err != nil {
		httpx.Error(w, h.logger, err)
		return
	}
	h.logger.Info("stock adjusted",
		"item_id", item.ID, "delta", req.Delta, "quantity", item.Quantity, "reason", req.Reason)
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action string) (*access.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, "no session"))
		return nil, false
	}
	if !access.Authorize(principal, access.ResourceInventory, action) {
		httpx.Error(w, h.logger, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return nil, false
	}
	return principal, true
}
