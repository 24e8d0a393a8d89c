package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Kvnbbg/cfa/internal/auth"
	"github.com/Kvnbbg/cfa/internal/store"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	// One message for every authentication failure. Clients must not be able
	// to tell a missing header from an expired or forged token.
	unauthorizedMsg = "unauthorized"
)

// RequireAuth wraps a protected operation. It extracts the bearer token,
// verifies it, and either forwards to the inner handler with the resolved
// user attached to the request context, or rejects uniformly with 401.
// Store failures during verification surface as 500 without detail.
func (a *API) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, r)
			return
		}

		user, err := a.auth.Verify(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				unauthorized(w, r)
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
	})
}

// RequireRole guards an already-authenticated route by role. It must be
// nested inside RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				unauthorized(w, r)
				return
			}
			if user.Role != role {
				w.Header().Set("WWW-Authenticate", `Bearer realm="cfa"`)
				writeError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAdmin composes the two gates for admin-only routes.
func (a *API) requireAdmin(next http.Handler) http.Handler {
	return a.RequireAuth(RequireRole(store.RoleAdmin)(next))
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="cfa"`)
	writeError(w, r, http.StatusUnauthorized, unauthorizedMsg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
