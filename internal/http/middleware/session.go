package middleware

import (
	"net/http"
	"strings"

	"github.com/harborvet/vetpms/internal/auth"
	"github.com/harborvet/vetpms/pkg/logging"
)

// RequireSession resolves the bearer token into a Principal and stores it in
// the request context. Requests without a valid, active session get 401.
func RequireSession(resolver *auth.Resolver, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			principal, err := resolver.Resolve(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.Debug("session rejected", "error", err)
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
