// Package auth resolves session tokens into principals. Token issuance lives
// with the identity provider; this package only verifies and decodes.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/harborvet/vetpms/internal/access"
	"github.com/harborvet/vetpms/internal/apperr"
)

// SessionClaims is the JWT payload carried by a session token. Role, tenant
// and clinic travel as explicit claims rather than ad hoc token fields.
type SessionClaims struct {
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	ClinicID string `json:"clinic_id,omitempty"`
	Active   bool   `json:"active"`
	jwt.RegisteredClaims
}

// Resolver verifies HMAC-signed session tokens.
type Resolver struct {
	secret []byte
}

// NewResolver builds a resolver for the given shared secret.
func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

// Resolve validates tokenString and returns the immutable Principal for this
// request. Every failure maps to Unauthenticated; callers never learn why a
// token was rejected.
func (r *Resolver) Resolve(tokenString string) (*access.Principal, error) {
	if len(r.secret) == 0 {
		return nil, apperr.New(apperr.KindUnauthenticated, "session auth disabled")
	}

	claims := SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid session token")
	}

	principal, err := principalFromClaims(&claims)
	if err != nil {
		return nil, err
	}
	if err := principal.Validate(); err != nil {
		return nil, err
	}
	return principal, nil
}

func principalFromClaims(claims *SessionClaims) (*access.Principal, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid session subject")
	}
	role, ok := access.ParseRole(claims.Role)
	if !ok {
		return nil, apperr.New(apperr.KindUnauthenticated, "invalid session role")
	}

	p := &access.Principal{
		ID:       id,
		Role:     role,
		IsActive: claims.Active,
	}
	if claims.TenantID != "" {
		tenantID, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return nil, apperr.New(apperr.KindUnauthenticated, "invalid session tenant")
		}
		p.TenantID = tenantID
	}
	if claims.ClinicID != "" {
		clinicID, err := uuid.Parse(claims.ClinicID)
		if err != nil {
			return nil, apperr.New(apperr.KindUnauthenticated, "invalid session clinic")
		}
		p.ClinicID = &clinicID
	}
	return p, nil
}

// IssueToken signs a session token for a principal. Exposed for the staff
// login flow and for tests; production verification only needs Resolve.
func IssueToken(secret string, p *access.Principal, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		Role:   string(p.Role),
		Active: p.IsActive,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if p.TenantID != uuid.Nil {
		claims.TenantID = p.TenantID.String()
	}
	if p.ClinicID != nil {
		claims.ClinicID = p.ClinicID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
