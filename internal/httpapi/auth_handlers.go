package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"opsboard.org/internal/auth"
	"opsboard.org/internal/obs"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Domain   string `json:"domain"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.auth == nil {
		writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" || strings.TrimSpace(req.Domain) == "" {
		writeError(w, r, http.StatusBadRequest, "username, password and domain are required")
		return
	}

	token, _, err := a.auth.Login(r.Context(), auth.LoginRequest{
		Username:  req.Username,
		Password:  req.Password,
		Domain:    req.Domain,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: RequestIDFromContext(r.Context()),
	})
	if err != nil {
		handleLoginError(w, r, err)
		return
	}

	obs.ObserveLogin("success")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt.UTC().Format(httpTimeLayout),
	})
}

// handleLoginError keeps the client-visible contract uniform: a missing
// principal and a wrong password answer identically.
func handleLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrPrincipalNotFound), errors.Is(err, auth.ErrAuthenticationFailed):
		obs.ObserveLogin("unauthorized")
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrNotConfigured):
		obs.ObserveLogin("error")
		writeError(w, r, http.StatusServiceUnavailable, "authentication unavailable")
	default:
		obs.ObserveLogin("error")
		writeError(w, r, http.StatusInternalServerError, "login failed")
	}
}

func (a *API) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	raw, ok := auth.TokenFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}

	token, _, err := a.auth.Refresh(r.Context(), raw, a.auth.Audience(), auth.LoginRequest{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: RequestIDFromContext(r.Context()),
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			unauthorized(w, r, "invalid token")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt.UTC().Format(httpTimeLayout),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	raw, ok := auth.TokenFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return
	}
	if err := a.auth.Logout(r.Context(), raw, a.auth.Audience()); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			unauthorized(w, r, "invalid token")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="opsboard"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}
