package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := &access.Principal{ID: uuid.New(), Role: access.RoleFrontDesk, TenantID: uuid.New(), IsActive: true}

	ctx := WithPrincipal(context.Background(), p)
	got, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatal("expected principal in context")
	}
	if got.ID != p.ID {
		t.Fatalf("got principal %v, want %v", got.ID, p.ID)
	}
}

func TestPrincipalFromEmptyContext(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("empty context must not yield a principal")
	}
}
