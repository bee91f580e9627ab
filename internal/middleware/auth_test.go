package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/tracker/pkg/logger"
)

const (
	testSecret = "test-secret"
	testIssuer = "tracker"
)

func newAuth(skip ...string) *AuthMiddleware {
	return NewAuthMiddleware(testSecret, testIssuer, logger.NewNop(), skip)
}

// echoActor writes the authenticated login and role claim into headers.
func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Actor", logger.GetActor(r.Context()))
		w.Header().Set("X-Role", GetUserRole(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewAuthMiddleware(t *testing.T) {
	m := newAuth("/healthz", "/metrics")

	if len(m.skipPaths) != 2 {
		t.Errorf("skipPaths length = %d, want 2", len(m.skipPaths))
	}
	if !m.skipPaths["/healthz"] {
		t.Error("skipPaths does not contain /healthz")
	}
}

func TestAuthMiddleware_Handler_SkipPaths(t *testing.T) {
	h := newAuth("/healthz").Handler(echoActor())

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware_Handler_ValidToken(t *testing.T) {
	token, err := IssueToken(testSecret, testIssuer, "alice", "MANAGER", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(newAuth().Handler(echoActor()), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Actor"); got != "alice" {
		t.Errorf("actor = %q, want alice", got)
	}
	if got := rec.Header().Get("X-Role"); got != "MANAGER" {
		t.Errorf("role = %q, want MANAGER", got)
	}
}

func TestAuthMiddleware_Handler_Rejections(t *testing.T) {
	expired, _ := IssueToken(testSecret, testIssuer, "alice", "", -time.Hour)
	wrongSecret, _ := IssueToken("other-secret", testIssuer, "alice", "", time.Hour)
	wrongIssuer, _ := IssueToken(testSecret, "someone-else", "alice", "", time.Hour)
	noSubject, _ := IssueToken(testSecret, testIssuer, "", "", time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", Issuer: testIssuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage", "Bearer not-a-token"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
		{"wrong issuer", "Bearer " + wrongIssuer},
		{"no subject", "Bearer " + noSubject},
		{"alg none", "Bearer " + none},
	}

	h := newAuth().Handler(echoActor())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/projects", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(h, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
		})
	}
}

func TestAuthMiddleware_PreflightPassesThrough(t *testing.T) {
	rec := serve(newAuth().Handler(echoActor()), httptest.NewRequest(http.MethodOptions, "/projects", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
