package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
	"github.com/harborvet/vetpms/internal/observability/metrics"
	"github.com/harborvet/vetpms/pkg/logging"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID, scope access.Scope) (*User, error)
	List(ctx context.Context, scope access.Scope, limit, offset int) ([]*User, error)
	Update(ctx context.Context, u *User) error
}

// Service administers staff accounts.
type Service struct {
	store   Store
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
}

// NewService wires the account service.
func NewService(store Store, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, metrics: m, logger: logger}
}

// Create provisions a new staff account in the principal's tenant. Only a
// system admin may name a foreign tenant, and only a system admin may mint
// another system admin.
func (s *Service) Create(ctx context.Context, p *access.Principal, req CreateUserRequest) (*User, error) {
	if err := s.authorize(p, access.ActionCreate); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tenantID := req.TenantID
	if p.Role != access.RoleSystemAdmin {
		tenantID = p.TenantID
	}
	if tenantID == uuid.Nil {
		return nil, apperr.New(apperr.KindInvalidInput, "tenant_id is required")
	}
	if req.Role == access.RoleSystemAdmin && p.Role != access.RoleSystemAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only a system admin may grant system-admin")
	}

	u := &User{
		ID:       uuid.New(),
		TenantID: tenantID,
		ClinicID: req.ClinicID,
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		IsActive: true,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", u.ID, "tenant_id", u.TenantID, "role", u.Role)
	return u, nil
}

// Get fetches one account visible to the principal.
func (s *Service) Get(ctx context.Context, p *access.Principal, id uuid.UUID) (*User, error) {
	if err := s.authorize(p, access.ActionRead); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id, access.ScopeFilter(p))
}

// List returns accounts visible to the principal.
func (s *Service) List(ctx context.Context, p *access.Principal, limit, offset int) ([]*User, error) {
	if err := s.authorize(p, access.ActionRead); err != nil {
		return nil, err
	}
	return s.store.List(ctx, access.ScopeFilter(p), limit, offset)
}

// Update changes role, clinic assignment, or activation state. A principal
// can never change its own role or deactivate its own account, whatever its
// rank.
func (s *Service) Update(ctx context.Context, p *access.Principal, id uuid.UUID, req UpdateUserRequest) (*User, error) {
	if err := s.authorize(p, access.ActionUpdate); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.store.GetByID(ctx, id, access.ScopeFilter(p))
	if err != nil {
		return nil, err
	}

	roleChanged := req.Role != nil && *req.Role != u.Role
	deactivated := req.IsActive != nil && !*req.IsActive && u.IsActive
	if err := access.GuardSelfModification(p, u.ID, roleChanged, deactivated); err != nil {
		return nil, err
	}
	if roleChanged && *req.Role == access.RoleSystemAdmin && p.Role != access.RoleSystemAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only a system admin may grant system-admin")
	}

	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.ClinicID != nil {
		u.ClinicID = req.ClinicID
	}
	if err := s.store.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user updated", "user_id", u.ID, "role", u.Role, "is_active", u.IsActive)
	return u, nil
}

func (s *Service) authorize(p *access.Principal, action string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !access.Authorize(p, access.ResourceUsers, action) {
		s.metrics.ObserveDenied(string(p.Role), access.ResourceUsers, action)
		return apperr.New(apperr.KindForbidden, "insufficient permissions")
	}
	return nil
}
