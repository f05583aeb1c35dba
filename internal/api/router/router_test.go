package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/auth"
	"github.com/harborvet/vetpms/internal/tenants"
)

const testSecret = "router-test-secret"

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(&Config{
		Resolver:       auth.NewResolver(testSecret),
		TenantsHandler: tenants.NewHandler(tenants.NewRepository(mock), nil),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})
}

func bearerFor(t *testing.T, role access.Role) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, &access.Principal{
		ID:       uuid.New(),
		Role:     role,
		TenantID: uuid.New(),
		IsActive: true,
	}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthIsPublic(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMetricsIsPublic(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIRejectsGarbageToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionReachesMountedHandler(t *testing.T) {
	// A clinic admin holds a valid session but may not manage tenants, so the
	// mounted handler answers 403 rather than the middleware's 401.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	req.Header.Set("Authorization", bearerFor(t, access.RoleClinicAdmin))
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnmountedRouteIs404(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	req.Header.Set("Authorization", bearerFor(t, access.RoleSystemAdmin))
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
