package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator turns a bearer credential into a Principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// sessionClaims is the payload of a session token minted by the managed
// auth backend.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	GlobalRole string `json:"role"`
}

// SessionAuthenticator verifies HS256 session tokens against the secret
// shared with the auth backend.
type SessionAuthenticator struct {
	secret   []byte
	audience string
}

// NewSessionAuthenticator creates a session authenticator. The audience is
// optional; when set, tokens minted for other audiences are rejected.
func NewSessionAuthenticator(secret []byte, audience string) *SessionAuthenticator {
	return &SessionAuthenticator{secret: secret, audience: audience}
}

// Authenticate verifies the session token and extracts the caller identity.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("session secret is not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("session token has no subject")
	}

	role := claims.GlobalRole
	if role == "" {
		role = GlobalRoleUser
	}

	return &Principal{
		UserID:     claims.Subject,
		Email:      claims.Email,
		GlobalRole: role,
	}, nil
}

// ExtractBearerToken pulls the credential out of an Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("authorization header must use the Bearer scheme")
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", fmt.Errorf("empty bearer token")
	}

	return token, nil
}
