// Package auth verifies the session tokens minted after the identity
// provider handshake and maps them to an applicant identity.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"wl-portal/internal/config"
	"wl-portal/internal/models"
)

var (
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims are the session token claims. Subject is the applicant id.
type Claims struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	InGuild  bool   `json:"in_guild"`
	jwt.RegisteredClaims
}

// Applicant returns the identity carried by the token
func (c *Claims) Applicant() models.Applicant {
	return models.Applicant{
		ID:          c.Subject,
		DisplayName: c.Username,
		AvatarRef:   c.Avatar,
		InGuild:     c.InGuild,
	}
}

// Verifier validates session tokens, either HS256 with a shared secret or
// RS256/ES256 against a JWKS endpoint
type Verifier struct {
	keyfunc jwt.Keyfunc
	methods []string
	issuer  string
	leeway  time.Duration
}

// NewVerifier builds a verifier from config. A JWKS URL takes precedence over the secret.
func NewVerifier(cfg *config.AuthConfig, logger *slog.Logger) (*Verifier, error) {
	if cfg.JWKSURL != "" {
		storage, err := jwkset.NewStorageFromHTTP(cfg.JWKSURL, jwkset.HTTPClientStorageOptions{
			Client:                    &http.Client{Timeout: 10 * time.Second},
			NoErrorReturnFirstHTTPReq: true,
			RefreshInterval:           time.Hour,
			RefreshErrorHandler: func(_ context.Context, err error) {
				logger.Error("Failed to refresh JWKS", "url", cfg.JWKSURL, "error", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create JWKS storage: %w", err)
		}
		k, err := keyfunc.New(keyfunc.Options{Storage: storage})
		if err != nil {
			return nil, fmt.Errorf("failed to create keyfunc: %w", err)
		}
		return NewKeyfuncVerifier(k, cfg.Issuer), nil
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("either JWT_SECRET or AUTH_JWKS_URL is required")
	}
	return NewSecretVerifier(cfg.JWTSecret, cfg.Issuer), nil
}

// NewSecretVerifier verifies HS256 tokens signed with secret
func NewSecretVerifier(secret, issuer string) *Verifier {
	key := []byte(secret)
	return &Verifier{
		keyfunc: func(*jwt.Token) (interface{}, error) { return key, nil },
		methods: []string{jwt.SigningMethodHS256.Alg()},
		issuer:  issuer,
		leeway:  30 * time.Second,
	}
}

// NewKeyfuncVerifier verifies asymmetric tokens with keys from k
func NewKeyfuncVerifier(k keyfunc.Keyfunc, issuer string) *Verifier {
	return &Verifier{
		keyfunc: k.Keyfunc,
		methods: []string{"RS256", "ES256"},
		issuer:  issuer,
		leeway:  30 * time.Second,
	}
}

// Verify parses and validates a token string
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueToken signs an HS256 session token for a. Used by the dev token tool and tests.
func IssueToken(secret, issuer string, a models.Applicant, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: a.DisplayName,
		Avatar:   a.AvatarRef,
		InGuild:  a.InGuild,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
