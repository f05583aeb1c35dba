// Package access decides what an authenticated principal may do and which
// rows it may see. Decisions are pure functions over the immutable Principal;
// the permission table is process-wide state built once at init.
package access

import (
	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/apperr"
)

// Authorize reports whether the principal may perform action on resource.
// Matching is exact, (resource, "*"), ("*", action), or ("*", "*"). A missing
// entry is a deny, never an error.
func Authorize(p *Principal, resource, action string) bool {
	if p == nil || !p.IsActive {
		return false
	}
	set, ok := permissionTable[p.Role]
	if !ok {
		return false
	}
	candidates := [4]Permission{
		{resource, action},
		{resource, Wildcard},
		{Wildcard, action},
		{Wildcard, Wildcard},
	}
	for _, c := range candidates {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}

// Scope narrows data queries to what the principal may see. A nil TenantID
// means unconstrained; a nil ClinicID means tenant-wide.
type Scope struct {
	TenantID *uuid.UUID
	ClinicID *uuid.UUID
}

// Unconstrained reports whether the scope places no filter at all.
func (s Scope) Unconstrained() bool {
	return s.TenantID == nil && s.ClinicID == nil
}

// ScopeFilter computes the query scope for a principal. System admins are
// unconstrained. Everyone else is confined to their tenant, and roles below
// manager rank are further confined to their own clinic.
func ScopeFilter(p *Principal) Scope {
	if p == nil {
		none := uuid.Nil
		return Scope{TenantID: &none}
	}
	if p.Role == RoleSystemAdmin {
		return Scope{}
	}
	tenant := p.TenantID
	scope := Scope{TenantID: &tenant}
	if !p.Role.ManagerOrAbove() && p.ClinicID != nil {
		clinic := *p.ClinicID
		scope.ClinicID = &clinic
	}
	return scope
}

// EntityScope is the (tenant, clinic) pair stamped on every data-bearing row.
// ClinicID is nil for tenant-level entities such as staff accounts without a
// clinic assignment.
type EntityScope struct {
	TenantID uuid.UUID
	ClinicID *uuid.UUID
}

// AssertOwnership fails when the entity lies outside the principal's scope.
// Cross-tenant and cross-clinic violations both surface as NotFound so the
// response leaks nothing about whether the entity exists (uniform policy for
// every route).
func AssertOwnership(p *Principal, entity EntityScope) error {
	if p == nil {
		return apperr.New(apperr.KindUnauthenticated, "no principal")
	}
	if p.Role == RoleSystemAdmin {
		return nil
	}
	if entity.TenantID != p.TenantID {
		return apperr.New(apperr.KindNotFound, "not found")
	}
	if !p.Role.ManagerOrAbove() && p.ClinicID != nil && entity.ClinicID != nil && *entity.ClinicID != *p.ClinicID {
		return apperr.New(apperr.KindNotFound, "not found")
	}
	return nil
}

// GuardSelfModification rejects a principal deactivating its own account or
// changing its own role. This holds for every role, including system-admin.
func GuardSelfModification(p *Principal, targetUserID uuid.UUID, roleChanged, deactivated bool) error {
	if p == nil || p.ID != targetUserID {
		return nil
	}
	if roleChanged {
		return apperr.New(apperr.KindInvalidOperation, "cannot change the role of your own account")
	}
	if deactivated {
		return apperr.New(apperr.KindInvalidOperation, "cannot deactivate your own account")
	}
	return nil
}
