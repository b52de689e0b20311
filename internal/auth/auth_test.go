package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

const (
	testSecret = "test-secret"
	testIssuer = "gschool-connect"
)

func issueToken(t *testing.T, ttl time.Duration, role string) string {
	t.Helper()
	token, err := NewAccessToken(testSecret, testIssuer, ttl, Claims{
		Email: "teacher@gdistrict.org",
		Role:  role,
	})
	if err != nil {
		t.Fatalf("NewAccessToken() error: %v", err)
	}
	return token
}

func TestTokenRoundTrip(t *testing.T) {
	token := issueToken(t, time.Hour, domain.RoleTeacher)

	claims, err := ParseToken(testSecret, testIssuer, token)
	if err != nil {
		t.Fatalf("ParseToken() error: %v", err)
	}
	if claims.Email != "teacher@gdistrict.org" || claims.Role != domain.RoleTeacher {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejections(t *testing.T) {
	valid := issueToken(t, time.Hour, domain.RoleTeacher)
	expired := issueToken(t, -time.Minute, domain.RoleTeacher)

	tests := []struct {
		name   string
		secret string
		issuer string
		token  string
	}{
		{"wrong secret", "other-secret", testIssuer, valid},
		{"wrong issuer", testSecret, "someone-else", valid},
		{"expired", testSecret, testIssuer, expired},
		{"garbage", testSecret, testIssuer, "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.secret, tt.issuer, tt.token); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}

func TestMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	handler := Middleware(testSecret, testIssuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run without a valid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for missing token, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for invalid token, got %d", rr.Code)
	}

	var out map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if out["error"] != "invalid_token" {
		t.Errorf("Expected invalid_token code, got %q", out["error"])
	}
}

func TestMiddlewarePassesClaimsThrough(t *testing.T) {
	var seen *Claims
	handler := Middleware(testSecret, testIssuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, time.Hour, domain.RoleAdmin))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if seen == nil || seen.Role != domain.RoleAdmin {
		t.Errorf("Claims not propagated: %+v", seen)
	}
}

func TestRequireRole(t *testing.T) {
	chain := func(roles ...string) http.Handler {
		return Middleware(testSecret, testIssuer)(
			RequireRole(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, time.Hour, domain.RoleTeacher))
	rr := httptest.NewRecorder()
	chain(domain.RoleAdmin).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Teacher hitting an admin route: expected 403, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, time.Hour, domain.RoleTeacher))
	rr = httptest.NewRecorder()
	chain(domain.RoleAdmin, domain.RoleTeacher).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("Teacher on a teacher route: expected 204, got %d", rr.Code)
	}
}
