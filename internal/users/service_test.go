package users

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
)

type fakeStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[uuid.UUID]*User)}
}

func (s *fakeStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.TenantID == u.TenantID && existing.Email == u.Email {
			return apperr.New(apperr.KindConflict, "an account with this email already exists")
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID, scope access.Scope) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || (scope.TenantID != nil && u.TenantID != *scope.TenantID) {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) List(_ context.Context, scope access.Scope, _, _ int) ([]*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*User
	for _, u := range s.users {
		if scope.TenantID != nil && u.TenantID != *scope.TenantID {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func admin(t *testing.T, role access.Role, tenant uuid.UUID) *access.Principal {
	t.Helper()
	return &access.Principal{ID: uuid.New(), Role: role, TenantID: tenant, IsActive: true}
}

func seedUser(t *testing.T, store *fakeStore, tenant uuid.UUID, role access.Role) *User {
	t.Helper()
	u := &User{
		ID:       uuid.New(),
		TenantID: tenant,
		Email:    uuid.NewString() + "@clinic.example",
		Name:     "Staff Member",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestCreateUserDefaultsToPrincipalTenant(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	tenant := uuid.New()
	p := admin(t, access.RoleClinicAdmin, tenant)

	u, err := svc.Create(context.Background(), p, CreateUserRequest{
		TenantID: uuid.New(), // ignored for non-system-admin callers
		Email:    "vet@clinic.example",
		Name:     "Dr. Okafor",
		Role:     access.RoleVeterinarian,
	})
	require.NoError(t, err)
	assert.Equal(t, tenant, u.TenantID)
	assert.True(t, u.IsActive)
}

func TestCreateUserDuplicateEmailIsConflict(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	p := admin(t, access.RoleClinicAdmin, uuid.New())

	req := CreateUserRequest{Email: "vet@clinic.example", Name: "Dr. Okafor", Role: access.RoleVeterinarian}
	_, err := svc.Create(context.Background(), p, req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), p, req)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateUserOnlySystemAdminGrantsSystemAdmin(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	p := admin(t, access.RoleClinicAdmin, uuid.New())

	_, err := svc.Create(context.Background(), p, CreateUserRequest{
		Email: "root@clinic.example",
		Name:  "Escalation Attempt",
		Role:  access.RoleSystemAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUpdateOwnRoleIsInvalidOperation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	tenant := uuid.New()

	self := seedUser(t, store, tenant, access.RoleClinicAdmin)
	p := self.Principal()

	role := access.RoleSystemAdmin
	_, err := svc.Update(context.Background(), p, self.ID, UpdateUserRequest{Role: &role})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))
}

func TestDeactivateOwnAccountIsInvalidOperation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	tenant := uuid.New()

	self := seedUser(t, store, tenant, access.RoleClinicAdmin)
	p := self.Principal()

	inactive := false
	_, err := svc.Update(context.Background(), p, self.ID, UpdateUserRequest{IsActive: &inactive})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))
}

func TestSystemAdminCannotDeactivateSelf(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)

	self := seedUser(t, store, uuid.New(), access.RoleSystemAdmin)
	p := self.Principal()

	inactive := false
	_, err := svc.Update(context.Background(), p, self.ID, UpdateUserRequest{IsActive: &inactive})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))
}

func TestUpdateOtherUserByAdminSucceeds(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	tenant := uuid.New()

	p := admin(t, access.RoleClinicAdmin, tenant)
	target := seedUser(t, store, tenant, access.RoleFrontDesk)

	role := access.RoleClinicManager
	inactive := false
	u, err := svc.Update(context.Background(), p, target.ID, UpdateUserRequest{Role: &role, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, access.RoleClinicManager, u.Role)
	assert.False(t, u.IsActive)
}

func TestReactivatingOwnAccountIsNotGuarded(t *testing.T) {
	// The guard blocks self-deactivation, not self-reactivation. An already
	// inactive principal never gets this far in practice because Validate
	// rejects it, so assert at the guard level directly.
	p := &access.Principal{ID: uuid.New(), Role: access.RoleClinicAdmin, TenantID: uuid.New(), IsActive: true}
	assert.NoError(t, access.GuardSelfModification(p, p.ID, false, false))
}

func TestUpdateCrossTenantUserIsNotFound(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)

	p := admin(t, access.RoleClinicAdmin, uuid.New())
	foreign := seedUser(t, store, uuid.New(), access.RoleFrontDesk)

	role := access.RoleClinicManager
	_, err := svc.Update(context.Background(), p, foreign.ID, UpdateUserRequest{Role: &role})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestListScopedToTenant(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	tenant := uuid.New()

	seedUser(t, store, tenant, access.RoleFrontDesk)
	seedUser(t, store, uuid.New(), access.RoleFrontDesk)

	p := admin(t, access.RoleClinicAdmin, tenant)
	list, err := svc.List(context.Background(), p, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFrontDeskCannotCreateUsers(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil, nil)
	p := admin(t, access.RoleFrontDesk, uuid.New())

	_, err := svc.Create(context.Background(), p, CreateUserRequest{
		Email: "new@clinic.example", Name: "New", Role: access.RoleFrontDesk,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
