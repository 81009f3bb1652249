package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"opsboard.org/internal/auth"
	"opsboard.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/info",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}

// withAuth authenticates every non-public request. With no auth service
// configured it fails closed: protected routes answer 503 instead of being
// served unauthenticated.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if a == nil || a.auth == nil {
			writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.ObserveTokenValidation("missing")
			unauthorized(w, r, err.Error())
			return
		}

		identity, err := a.auth.Authenticate(r.Context(), token, a.auth.Audience())
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				obs.ObserveTokenValidation("invalid")
				unauthorized(w, r, "invalid token")
			} else {
				obs.ObserveTokenValidation("error")
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		obs.ObserveTokenValidation("valid")
		ctx := auth.ContextWithIdentity(r.Context(), identity)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a handler behind a role code from the verified claims.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.IdentityFromContext(r.Context()); !ok {
				unauthorized(w, r, "authentication required")
				return
			}
			if !auth.HasRole(r.Context(), role) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="opsboard"`)
				writeError(w, r, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
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

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
