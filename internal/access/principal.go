package access

import (
	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/apperr"
)

// Principal is the authenticated identity for one request. It is resolved
// once from the session token at request entry and never mutated afterwards;
// every service call receives it explicitly.
type Principal struct {
	ID       uuid.UUID
	Role     Role
	TenantID uuid.UUID
	ClinicID *uuid.UUID
	IsActive bool
}

// Validate enforces the structural invariants a resolved principal must hold.
// Any principal other than a system admin must belong to a tenant.
func (p *Principal) Validate() error {
	if p == nil {
		return apperr.New(apperr.KindUnauthenticated, "no principal")
	}
	if !p.Role.Valid() {
		return apperr.Newf(apperr.KindUnauthenticated, "unknown role %q", p.Role)
	}
	if p.Role != RoleSystemAdmin && p.TenantID == uuid.Nil {
		return apperr.New(apperr.KindUnauthenticated, "principal missing tenant")
	}
	if !p.IsActive {
		return apperr.New(apperr.KindUnauthenticated, "account deactivated")
	}
	return nil
}
