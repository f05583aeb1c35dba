package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
)

const testSecret = "test-secret"

func testPrincipal() *access.Principal {
	clinicID := uuid.New()
	return &access.Principal{
		ID:       uuid.New(),
		Role:     access.RoleVeterinarian,
		TenantID: uuid.New(),
		ClinicID: &clinicID,
		IsActive: true,
	}
}

func TestResolveRoundTrip(t *testing.T) {
	p := testPrincipal()
	token, err := IssueToken(testSecret, p, time.Hour)
	require.NoError(t, err)

	got, err := NewResolver(testSecret).Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Role, got.Role)
	assert.Equal(t, p.TenantID, got.TenantID)
	require.NotNil(t, got.ClinicID)
	assert.Equal(t, *p.ClinicID, *got.ClinicID)
	assert.True(t, got.IsActive)
}

func TestResolveWrongSecret(t *testing.T) {
	token, err := IssueToken(testSecret, testPrincipal(), time.Hour)
	require.NoError(t, err)

	_, err = NewResolver("other-secret").Resolve(token)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestResolveExpired(t *testing.T) {
	token, err := IssueToken(testSecret, testPrincipal(), -time.Minute)
	require.NoError(t, err)

	_, err = NewResolver(testSecret).Resolve(token)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestResolveInactiveAccount(t *testing.T) {
	p := testPrincipal()
	p.IsActive = false
	token, err := IssueToken(testSecret, p, time.Hour)
	require.NoError(t, err)

	_, err = NewResolver(testSecret).Resolve(token)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestResolveUnknownRole(t *testing.T) {
	claims := SessionClaims{
		Role:   "janitor",
		Active: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewResolver(testSecret).Resolve(token)
	require.Error(t, err)
}

func TestResolveNonAdminWithoutTenant(t *testing.T) {
	p := testPrincipal()
	p.TenantID = uuid.Nil
	token, err := IssueToken(testSecret, p, time.Hour)
	require.NoError(t, err)

	_, err = NewResolver(testSecret).Resolve(token)
	require.Error(t, err, "non-admin principal without a tenant violates the invariant")
}

func TestResolveRejectsNonHMACAlg(t *testing.T) {
	// alg=none style downgrade must fail.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		Role:   string(access.RoleSystemAdmin),
		Active: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.NewString(),
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewResolver(testSecret).Resolve(signed)
	require.Error(t, err)
}

func TestResolveDisabledSecret(t *testing.T) {
	_, err := NewResolver("").Resolve("anything")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}
