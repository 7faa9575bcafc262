package middleware

import (
	"net/http"
)

// RequireRole returns middleware that allows access only to users whose role
// matches one of the provided role names (e.g. domain.RoleAdmin). Must be
// mounted after Auth.
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := IdentityFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}
			for _, role := range allowedRoles {
				if ident.User.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, http.StatusForbidden, "forbidden")
		})
	}
}
