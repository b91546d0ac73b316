package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wl-portal/internal/auth"
	"wl-portal/internal/models"
)

// AuthHelper issues session tokens for tests
type AuthHelper struct {
	Secret string
	Issuer string
}

// NewAuthHelper creates a new auth helper
func NewAuthHelper() *AuthHelper {
	return &AuthHelper{
		Secret: "test-secret-key-for-testing-only",
		Issuer: "wl-portal-test",
	}
}

// Verifier returns a verifier that accepts tokens from this helper
func (h *AuthHelper) Verifier() *auth.Verifier {
	return auth.NewSecretVerifier(h.Secret, h.Issuer)
}

// GenerateToken signs a one hour token for a
func (h *AuthHelper) GenerateToken(t *testing.T, a models.Applicant) string {
	t.Helper()

	token, err := auth.IssueToken(h.Secret, h.Issuer, a, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

// AddAuthHeader adds an authorization header to the request
func (h *AuthHelper) AddAuthHeader(t *testing.T, req *http.Request, a models.Applicant) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+h.GenerateToken(t, a))
}

// CreateAuthenticatedRequest creates a request with auth header
func (h *AuthHelper) CreateAuthenticatedRequest(t *testing.T, method, url string, body io.Reader, a models.Applicant) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	h.AddAuthHeader(t, req, a)
	return req
}

// TestResponse holds response data for assertions
type TestResponse struct {
	*httptest.ResponseRecorder
}

// NewTestResponse creates a new test response recorder
func NewTestResponse() *TestResponse {
	return &TestResponse{
		ResponseRecorder: httptest.NewRecorder(),
	}
}

// AssertStatus asserts the HTTP status code
func (r *TestResponse) AssertStatus(t *testing.T, expected int) {
	t.Helper()

	if r.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, r.Code, r.Body.String())
	}
}
