package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type recordingMetrics struct {
	failures []string
	checks   []bool
}

func (m *recordingMetrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.failures = append(m.failures, reason)
}

func (m *recordingMetrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.checks = append(m.checks, allowed)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body %q: %v", rec.Body.String(), err)
	}
	if body.Success {
		t.Error("Expected success=false")
	}
	return body.Error.Code
}

// TestMiddleware_ValidToken tests that a valid token allows the request to proceed
func TestMiddleware_ValidToken(t *testing.T) {
	privateKey, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, newMockJWKS(publicKey))

	tokenString := signToken(t, privateKey, "test-key-id", jwt.MapClaims{
		"sub":   "user-123",
		"iss":   testIssuer,
		"email": "asha@example.com",
		"exp":   time.Now().Add(1 * time.Hour).Unix(),
		"role":  "user",
	})

	called := false
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		principal, ok := FromContext(r.Context())
		if !ok {
			t.Error("Expected principal in context, got none")
			return
		}
		if principal.Email != "asha@example.com" {
			t.Errorf("Expected email 'asha@example.com', got '%s'", principal.Email)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("Expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

// TestMiddleware_MissingAuthorizationHeader tests that missing header returns 401
func TestMiddleware_MissingAuthorizationHeader(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, newMockJWKS(publicKey))
	metrics := &recordingMetrics{}

	called := false
	handler := MiddlewareWithMetrics(verifier, metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if called {
		t.Error("Expected handler NOT to be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "unauthorized" {
		t.Errorf("Expected error code 'unauthorized', got '%s'", code)
	}
	if len(metrics.failures) != 1 || metrics.failures[0] != "missing_authorization" {
		t.Errorf("Expected one missing_authorization failure, got %v", metrics.failures)
	}
}

// TestMiddleware_InvalidAuthorizationHeader tests malformed headers
func TestMiddleware_InvalidAuthorizationHeader(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, newMockJWKS(publicKey))

	testCases := []struct {
		name   string
		header string
	}{
		{"No Bearer prefix", "some-token"},
		{"Wrong prefix", "Basic dXNlcjpwYXNz"},
		{"Only Bearer", "Bearer"},
		{"Empty after Bearer", "Bearer "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if called {
				t.Error("Expected handler NOT to be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rec.Code)
			}
		})
	}
}

// TestMiddleware_InvalidToken tests a token signed by an unknown key
func TestMiddleware_InvalidToken(t *testing.T) {
	_, publicKey := generateTestKeyPair(t)
	otherKey, _ := generateTestKeyPair(t)
	verifier := NewVerifier(Config{Issuer: testIssuer}, newMockJWKS(publicKey))

	tokenString := signToken(t, otherKey, "test-key-id", jwt.MapClaims{
		"sub": "user-1",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Expected handler NOT to be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

// TestFromContext tests principal round trip through the context
func TestFromContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("Expected no principal in empty context")
	}

	want := &Principal{UserID: "doctor-9", Roles: []string{RoleDoctor}}
	got, ok := FromContext(ContextWithPrincipal(context.Background(), want))
	if !ok || got != want {
		t.Errorf("Expected stored principal, got %v (ok=%v)", got, ok)
	}
}

// TestRequirePermission tests allow, deny and unauthenticated paths
func TestRequirePermission(t *testing.T) {
	perms := Permissions{
		"DOCTOR": {"consult:accept"},
		"USER":   {"consult:create"},
	}

	tests := []struct {
		name       string
		principal  *Principal
		wantStatus int
		wantCalled bool
	}{
		{"doctor allowed", &Principal{UserID: "d1", Roles: []string{"doctor"}}, http.StatusOK, true},
		{"user forbidden", &Principal{UserID: "u1", Roles: []string{"user"}}, http.StatusForbidden, false},
		{"no principal", nil, http.StatusUnauthorized, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &recordingMetrics{}
			called := false
			handler := RequirePermissionWithMetrics("consult:accept", perms, metrics)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					called = true
					w.WriteHeader(http.StatusOK)
				}),
			)

			req := httptest.NewRequest(http.MethodPut, "/doctor/consult/accept/1", nil)
			if tc.principal != nil {
				req = req.WithContext(ContextWithPrincipal(req.Context(), tc.principal))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			if called != tc.wantCalled {
				t.Errorf("Expected called=%v, got %v", tc.wantCalled, called)
			}
			if len(metrics.checks) != 1 {
				t.Errorf("Expected one permission check recorded, got %d", len(metrics.checks))
			}
		})
	}
}
