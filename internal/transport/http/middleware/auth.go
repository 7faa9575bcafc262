package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fyiona/accounts/internal/domain"
	jwtinfra "github.com/fyiona/accounts/internal/infrastructure/jwt"
)

type contextKey string

const identityKey contextKey = "identity"

const bearerScheme = "Bearer"

// Identity is the authenticated principal injected into the request context:
// the resolved user plus the raw credential it presented.
type Identity struct {
	User     *domain.User
	RawToken string
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Authenticator turns an Authorization header into an authenticated identity.
// Extraction and codec failures never escape it: they are converted into one
// of the typed failure kinds, or into anonymous when no credential was
// presented at all.
type Authenticator struct {
	codec *jwtinfra.Codec
	users userStore
}

func NewAuthenticator(codec *jwtinfra.Codec, users userStore) *Authenticator {
	return &Authenticator{codec: codec, users: users}
}

// extractBearer splits the header on whitespace. A missing header, a lone
// field, three or more fields, or a scheme other than the exact literal
// "Bearer" all mean "no credentials presented" — never an error.
func extractBearer(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return "", false
	}
	if fields[0] != bearerScheme {
		return "", false
	}
	return fields[1], true
}

// Authenticate resolves the request's credential. Returns (nil, nil) for
// anonymous requests; downstream authorization decides whether that is
// acceptable. Performs at most one user lookup and has no side effects.
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	raw, ok := extractBearer(r.Header.Get("Authorization"))
	if !ok {
		return nil, nil
	}
	userID, err := a.codec.Verify(raw)
	if err != nil {
		if errors.Is(err, jwtinfra.ErrTokenExpired) {
			return nil, domain.ErrSessionExpired
		}
		return nil, domain.ErrInvalidToken
	}
	u, err := a.users.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnknownUser
		}
		return nil, err
	}
	if !u.Active {
		return nil, domain.ErrDeactivatedUser
	}
	return &Identity{User: u, RawToken: raw}, nil
}

// Auth returns middleware that authenticates the request when a credential is
// presented. Anonymous requests pass through without an identity; presented
// but invalid credentials are rejected with a failure-specific status.
func Auth(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := a.Authenticate(r)
			if err != nil {
				if !isAuthFailure(err) {
					// Store outage or similar, not a credential problem.
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				writeJSONError(w, authFailureStatus(err), err.Error())
				return
			}
			if ident == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser returns middleware that rejects anonymous requests. It must be
// mounted after Auth.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "authentication credentials were not provided")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*Identity)
	return ident, ok
}

// isAuthFailure reports whether err is one of the typed authenticator
// failure kinds, as opposed to an infrastructure error from the user store.
func isAuthFailure(err error) bool {
	return errors.Is(err, domain.ErrInvalidToken) ||
		errors.Is(err, domain.ErrSessionExpired) ||
		errors.Is(err, domain.ErrUnknownUser) ||
		errors.Is(err, domain.ErrDeactivatedUser)
}

// authFailureStatus maps each authenticator failure kind to its response code.
func authFailureStatus(err error) int {
	if errors.Is(err, domain.ErrDeactivatedUser) {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}
