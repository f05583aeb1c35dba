package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/apperr"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	StatusDraft  InvoiceStatus = "draft"
	StatusIssued InvoiceStatus = "issued"
	StatusPaid   InvoiceStatus = "paid"
	StatusVoid   InvoiceStatus = "void"
)

// allowedTransitions maps each status to the statuses it may move to. Paid
// and void are terminal.
var allowedTransitions = map[InvoiceStatus][]InvoiceStatus{
	StatusDraft:  {StatusIssued, StatusVoid},
	StatusIssued: {StatusPaid, StatusVoid},
}

// ParseInvoiceStatus validates a wire value.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch st := InvoiceStatus(strings.ToLower(s)); st {
	case StatusDraft, StatusIssued, StatusPaid, StatusVoid:
		return st, nil
	default:
		return "", apperr.Newf(apperr.KindInvalidInput, "unknown invoice status %q", s)
	}
}

// CanTransitionTo reports whether the move from s to next is allowed.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LineItem is one charge on an invoice. AmountCents is Quantity * UnitCents,
// computed server-side and stored.
type LineItem struct {
	ID          uuid.UUID `json:"id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	UnitCents   int64     `json:"unit_cents"`
	AmountCents int64     `json:"amount_cents"`
}

// Invoice is a bill for services and goods. All money is integer cents.
type Invoice struct {
	ID            uuid.UUID     `json:"id"`
	TenantID      uuid.UUID     `json:"tenant_id"`
	ClinicID      uuid.UUID     `json:"clinic_id"`
	OwnerID       uuid.UUID     `json:"owner_id"`
	AppointmentID *uuid.UUID    `json:"appointment_id,omitempty"`
	Status        InvoiceStatus `json:"status"`
	SubtotalCents int64         `json:"subtotal_cents"`
	TaxCents      int64         `json:"tax_cents"`
	TotalCents    int64         `json:"total_cents"`
	Items         []LineItem    `json:"items,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// LineItemInput is one requested charge.
type LineItemInput struct {
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitCents   int64  `json:"unit_cents"`
}

// CreateInvoiceRequest opens a draft invoice with its line items.
type CreateInvoiceRequest struct {
	ClinicID      uuid.UUID       `json:"clinic_id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	TaxCents      int64           `json:"tax_cents,omitempty"`
	Items         []LineItemInput `json:"items"`
}

// Validate checks required invoice fields.
func (r *CreateInvoiceRequest) Validate() error {
	if r.ClinicID == uuid.Nil {
		return apperr.New(apperr.KindInvalidInput, "clinic_id is required")
	}
	if r.OwnerID == uuid.Nil {
		return apperr.New(apperr.KindInvalidInput, "owner_id is required")
	}
	if len(r.Items) == 0 {
		return apperr.New(apperr.KindInvalidInput, "at least one line item is required")
	}
	if r.TaxCents < 0 {
		return apperr.New(apperr.KindInvalidInput, "tax_cents cannot be negative")
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.Description) == "" {
			return apperr.Newf(apperr.KindInvalidInput, "items[%d]: description is required", i)
		}
		if item.Quantity <= 0 {
			return apperr.Newf(apperr.KindInvalidInput, "items[%d]: quantity must be positive", i)
		}
		if item.UnitCents < 0 {
			return apperr.Newf(apperr.KindInvalidInput, "items[%d]: unit_cents cannot be negative", i)
		}
	}
	return nil
}

// Build computes line amounts and totals from the request.
func (r *CreateInvoiceRequest) Build(tenantID uuid.UUID) *Invoice {
	inv := &Invoice{
		ID:            uuid.New(),
		TenantID:      tenantID,
		ClinicID:      r.ClinicID,
		OwnerID:       r.OwnerID,
		AppointmentID: r.AppointmentID,
		Status:        StatusDraft,
		TaxCents:      r.TaxCents,
	}
	for _, in := range r.Items {
		amount := int64(in.Quantity) * in.UnitCents
		inv.Items = append(inv.Items, LineItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitCents:   in.UnitCents,
			AmountCents: amount,
		})
		inv.SubtotalCents += amount
	}
	inv.TotalCents = inv.SubtotalCents + inv.TaxCents
	return inv
}
