package clinics

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/apperr"
)

// Clinic is one physical practice location inside a tenant.
type Clinic struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Timezone  string    `json:"timezone"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// CreateClinicRequest registers a new clinic location.
type CreateClinicRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Timezone string `json:"timezone,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Validate checks required clinic fields.
func (r *CreateClinicRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperr.New(apperr.KindInvalidInput, "name is required")
	}
	if !slugPattern.MatchString(r.Slug) {
		return apperr.New(apperr.KindInvalidInput, "slug must be lowercase letters, digits, and hyphens")
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return apperr.Newf(apperr.KindInvalidInput, "unknown timezone %q", r.Timezone)
		}
	}
	return nil
}

// UpdateClinicRequest updates mutable clinic fields; nil leaves a field
// unchanged.
type UpdateClinicRequest struct {
	Name     *string `json:"name,omitempty"`
	Address  *string `json:"address,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}
