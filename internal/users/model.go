package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
)

// User is a staff account. ClinicID is nil for tenant-level staff such as
// clinic admins who float across locations.
type User struct {
	ID        uuid.UUID   `json:"id"`
	TenantID  uuid.UUID   `json:"tenant_id"`
	ClinicID  *uuid.UUID  `json:"clinic_id,omitempty"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      access.Role `json:"role"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Principal converts a stored user into the request-scoped identity shape.
func (u *User) Principal() *access.Principal {
	return &access.Principal{
		ID:       u.ID,
		Role:     u.Role,
		TenantID: u.TenantID,
		ClinicID: u.ClinicID,
		IsActive: u.IsActive,
	}
}

// CreateUserRequest provisions a staff account.
type CreateUserRequest struct {
	TenantID uuid.UUID   `json:"tenant_id,omitempty"`
	ClinicID *uuid.UUID  `json:"clinic_id,omitempty"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Role     access.Role `json:"role"`
}

// Validate checks required account fields.
func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || !strings.Contains(r.Email, "@") {
		return apperr.New(apperr.KindInvalidInput, "a valid email is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperr.New(apperr.KindInvalidInput, "name is required")
	}
	if !r.Role.Valid() {
		return apperr.Newf(apperr.KindInvalidInput, "unknown role %q", r.Role)
	}
	return nil
}

// UpdateUserRequest changes role and/or activation state. Nil fields are left
// untouched.
type UpdateUserRequest struct {
	Role     *access.Role `json:"role,omitempty"`
	IsActive *bool        `json:"is_active,omitempty"`
	ClinicID *uuid.UUID   `json:"clinic_id,omitempty"`
}

// Validate checks the requested changes.
func (r *UpdateUserRequest) Validate() error {
	if r.Role == nil && r.IsActive == nil && r.ClinicID == nil {
		return apperr.New(apperr.KindInvalidInput, "no changes requested")
	}
	if r.Role != nil && !r.Role.Valid() {
		return apperr.Newf(apperr.KindInvalidInput, "unknown role %q", *r.Role)
	}
	return nil
}
