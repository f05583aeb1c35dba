package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/auth"
)

const testSecret = "middleware-secret"

func sessionToken(t *testing.T, role access.Role) string {
	t.Helper()
	clinicID := uuid.New()
	token, err := auth.IssueToken(testSecret, &access.Principal{
		ID:       uuid.New(),
		Role:     role,
		TenantID: uuid.New(),
		ClinicID: &clinicID,
		IsActive: true,
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func TestRequireSessionStoresPrincipal(t *testing.T) {
	var seen *access.Principal
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	mw := RequireSession(auth.NewResolver(testSecret), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, access.RoleFrontDesk))
	rec := httptest.NewRecorder()

	mw(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil || seen.Role != access.RoleFrontDesk {
		t.Fatalf("expected front-desk principal in context, got %+v", seen)
	}
}

func TestRequireSessionMissingHeader(t *testing.T) {
	mw := RequireSession(auth.NewResolver(testSecret), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireSessionBadToken(t *testing.T) {
	mw := RequireSession(auth.NewResolver(testSecret), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
