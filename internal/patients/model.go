package patients

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/apperr"
)

// Owner is a pet owner attached to a tenant. Owners are tenant-level: any
// clinic in the tenant can see them.
type Owner struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patient is an animal under care at a clinic.
type Patient struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	ClinicID    uuid.UUID  `json:"clinic_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Species     string     `json:"species"`
	Breed       string     `json:"breed,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	WeightKg    float64    `json:"weight_kg,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateOwnerRequest registers a new owner.
type CreateOwnerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Validate checks required owner fields.
func (r *CreateOwnerRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperr.New(apperr.KindInvalidInput, "name is required")
	}
	if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Phone) == "" {
		return apperr.New(apperr.KindInvalidInput, "either email or phone is required")
	}
	return nil
}

// CreatePatientRequest registers a new patient at a clinic.
type CreatePatientRequest struct {
	ClinicID    uuid.UUID  `json:"clinic_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Species     string     `json:"species"`
	Breed       string     `json:"breed,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	WeightKg    float64    `json:"weight_kg,omitempty"`
}

// Validate checks required patient fields.
func (r *CreatePatientRequest) Validate() error {
	if r.ClinicID == uuid.Nil {
		return apperr.New(apperr.KindInvalidInput, "clinic_id is required")
	}
	if r.OwnerID == uuid.Nil {
		return apperr.New(apperr.KindInvalidInput, "owner_id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperr.New(apperr.KindInvalidInput, "name is required")
	}
	if strings.TrimSpace(r.Species) == "" {
		return apperr.New(apperr.KindInvalidInput, "species is required")
	}
	if r.WeightKg < 0 {
		return apperr.New(apperr.KindInvalidInput, "weight_kg cannot be negative")
	}
	return nil
}

// UpdatePatientRequest updates mutable patient fields; nil leaves a field
// unchanged.
type UpdatePatientRequest struct {
	Name        *string    `json:"name,omitempty"`
	Breed       *string    `json:"breed,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	WeightKg    *float64   `json:"weight_kg,omitempty"`
}
