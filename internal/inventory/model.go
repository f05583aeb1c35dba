package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/apperr"
)

// Item is one stocked product at a clinic: medication, food, supplies.
type Item struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	ClinicID     uuid.UUID `json:"clinic_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
	UnitCents    int64     `json:"unit_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NeedsReorder reports whether stock has fallen to or below the reorder level.
func (i *Item) NeedsReorder() bool {
	return i.ReorderLevel > 0 && i.Quantity <= i.ReorderLevel
}

// CreateItemRequest registers a new inventory item.
type CreateItemRequest struct {
	ClinicID     uuid.UUID `json:"clinic_id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Category     string    `json:"category,omitempty"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level,omitempty"`
	UnitCents    int64     `json:"unit_cents"`
}

// Validate checks required item fields.
func (r *CreateItemRequest) Validate() error {
	if r.ClinicID == uuid.Nil {
		return apperr.New(apperr.KindInvalidInput, "clinic_id is required")
	}
	if strings.TrimSpace(r.SKU) == "" {
		return apperr.New(apperr.KindInvalidInput, "sku is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperr.New(apperr.KindInvalidInput, "name is required")
	}
	if r.Quantity < 0 {
		return apperr.New(apperr.KindInvalidInput, "quantity cannot be negative")
	}
	if r.UnitCents < 0 {
		return apperr.New(apperr.KindInvalidInput, "unit_cents cannot be negative")
	}
	return nil
}

// AdjustStockRequest changes the on-hand quantity by a signed delta. A
// dispense is negative, a restock positive.
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

// Validate checks the adjustment.
func (r *AdjustStockRequest) Validate() error {
	if r.Delta == 0 {
		return apperr.New(apperr.KindInvalidInput, "delta must be non-zero")
	}
	return nil
}
