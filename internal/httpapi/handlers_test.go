package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"opsboard.org/internal/auth"
)

type stubStore struct {
	principals map[string]*auth.Principal
}

func (s *stubStore) FindPrincipal(ctx context.Context, username, domain string) (*auth.Principal, error) {
	p, ok := s.principals[username+"@"+domain]
	if !ok {
		return nil, auth.ErrPrincipalNotFound
	}
	cp := *p
	return &cp, nil
}

func testAuthService(t *testing.T) *auth.Service {
	t.Helper()
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	keyring, err := auth.NewKeyring([]byte("test-secret-key"), "opsboard", time.Minute)
	if err != nil {
		t.Fatalf("NewKeyring: %v", err)
	}
	store := &stubStore{principals: map[string]*auth.Principal{
		"alice@built-in": {
			ID:           "user-123",
			Username:     "alice",
			PasswordHash: hash,
			Domain:       "built-in",
			Enabled:      true,
			Roles:        []string{"ROLE_ADMIN"},
		},
	}}
	svc, err := auth.NewService(store, keyring, auth.WithTracker(auth.NewTracker()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func testAPI(t *testing.T) http.Handler {
	t.Helper()
	return New(ReadyProbe{}, "test", testAuthService(t)).Handler()
}

func doLogin(t *testing.T, h http.Handler) string {
	t.Helper()
	body := `{"username":"alice","password":"s3cret","domain":"built-in"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.TokenType != "Bearer" || resp.AccessToken == "" {
		t.Fatalf("unexpected login response: %+v", resp)
	}
	return resp.AccessToken
}

func TestHealthEndpoints(t *testing.T) {
	h := testAPI(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Fatalf("GET %s Content-Type = %q", path, ct)
		}
	}
}

func TestInfoEndpoint(t *testing.T) {
	h := testAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["name"] != "opsboard-api" || payload["version"] != "test" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	h := testAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLoginAndUserInfo(t *testing.T) {
	h := testAPI(t)
	token := doLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/user-info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("user-info status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var identity auth.Identity
	if err := json.Unmarshal(rec.Body.Bytes(), &identity); err != nil {
		t.Fatalf("decode identity: %v", err)
	}
	if identity.UserID != "user-123" || identity.Username != "alice" || identity.Domain != "built-in" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := testAPI(t)

	cases := map[string]string{
		"wrong password": `{"username":"alice","password":"nope","domain":"built-in"}`,
		"unknown user":   `{"username":"mallory","password":"s3cret","domain":"built-in"}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d", name, rec.Code)
		}
		// Both cases must answer identically.
		if !strings.Contains(rec.Body.String(), "invalid credentials") {
			t.Fatalf("%s: body = %s", name, rec.Body.String())
		}
	}
}

func TestLoginValidation(t *testing.T) {
	h := testAPI(t)

	cases := map[string]string{
		"empty body":     ``,
		"missing domain": `{"username":"alice","password":"s3cret"}`,
		"unknown field":  `{"username":"alice","password":"s3cret","domain":"built-in","extra":1}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, body = %s", name, rec.Code, rec.Body.String())
		}
	}
}

func TestLoginMethodNotAllowed(t *testing.T) {
	h := testAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("Allow = %q", allow)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	h := testAPI(t)
	token := doLogin(t, h)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken == "" || resp.AccessToken == token {
		t.Fatal("refresh must return a different token")
	}

	// The consumed token no longer authenticates.
	req = httptest.NewRequest(http.MethodGet, "/v1/auth/user-info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old token after refresh: status = %d", rec.Code)
	}

	// The replacement does.
	req = httptest.NewRequest(http.MethodGet, "/v1/auth/user-info", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh token: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	h := testAPI(t)
	token := doLogin(t, h)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, body = %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/auth/user-info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: status = %d", rec.Code)
	}
}

func TestProtectedRouteWithoutAuthService(t *testing.T) {
	h := New(ReadyProbe{}, "test", nil).Handler()

	// Protected routes fail closed.
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/user-info", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("protected: status = %d", rec.Code)
	}

	// Public surface keeps working.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: status = %d", rec.Code)
	}
}
