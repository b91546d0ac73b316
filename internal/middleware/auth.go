package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"wl-portal/internal/auth"
	"wl-portal/internal/config"
	"wl-portal/internal/models"
)

type contextKey string

const (
	ApplicantKey contextKey = "applicant"
	RequestIDKey contextKey = "request_id"
	ClientIPKey  contextKey = "client_ip"
)

// AuthMiddleware validates session tokens
type AuthMiddleware struct {
	verifier   *auth.Verifier
	cookieName string
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(verifier *auth.Verifier, cfg *config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:   verifier,
		cookieName: cfg.CookieName,
	}
}

// Authenticate validates the session token from the Authorization header or
// the session cookie and adds the applicant identity to the context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := m.extractToken(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing session token")
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithApplicant(r.Context(), claims.Applicant())))
	})
}

// extractToken prefers the Bearer header. ok is false for a malformed header.
func (m *AuthMiddleware) extractToken(r *http.Request) (token string, ok bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, value, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		return strings.TrimSpace(value), true
	}
	if m.cookieName != "" {
		if c, err := r.Cookie(m.cookieName); err == nil {
			return c.Value, true
		}
	}
	return "", true
}

// StaffMiddleware restricts routes to the staff allow-list
type StaffMiddleware struct {
	config *config.AuthConfig
}

// NewStaffMiddleware creates a new staff middleware
func NewStaffMiddleware(cfg *config.AuthConfig) *StaffMiddleware {
	return &StaffMiddleware{config: cfg}
}

// RequireStaff must run after Authenticate
func (m *StaffMiddleware) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		applicant, ok := GetApplicant(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
			return
		}
		if !m.config.IsStaff(applicant.ID) {
			respondWithError(w, http.StatusForbidden, "FORBIDDEN", "Staff access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithApplicant stores the authenticated identity in ctx
func WithApplicant(ctx context.Context, a models.Applicant) context.Context {
	return context.WithValue(ctx, ApplicantKey, a)
}

// GetApplicant retrieves the authenticated identity from ctx
func GetApplicant(ctx context.Context) (models.Applicant, bool) {
	a, ok := ctx.Value(ApplicantKey).(models.Applicant)
	return a, ok && a.ID != ""
}

func respondWithError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
