package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionTestSecret = []byte("session-test-secret")

func mintSessionToken(t *testing.T, claims sessionClaims, secret []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func validSessionClaims() sessionClaims {
	return sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "2c8f1e30-ae3d-4b8c-9f40-7d9e5f60ac12",
			Audience:  jwt.ClaimStrings{"fieldatlas-console"},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:      "ada@example.com",
		GlobalRole: "user",
	}
}

func TestSessionAuthenticator(t *testing.T) {
	authn := NewSessionAuthenticator(sessionTestSecret, "fieldatlas-console")

	t.Run("valid token", func(t *testing.T) {
		token := mintSessionToken(t, validSessionClaims(), sessionTestSecret)

		p, err := authn.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "2c8f1e30-ae3d-4b8c-9f40-7d9e5f60ac12", p.UserID)
		assert.Equal(t, "ada@example.com", p.Email)
		assert.Equal(t, GlobalRoleUser, p.GlobalRole)
		assert.False(t, p.IsSuperAdmin())
	})

	t.Run("super admin role marker", func(t *testing.T) {
		claims := validSessionClaims()
		claims.GlobalRole = GlobalRoleSuperAdmin
		token := mintSessionToken(t, claims, sessionTestSecret)

		p, err := authn.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, p.IsSuperAdmin())
	})

	t.Run("missing role defaults to user", func(t *testing.T) {
		claims := validSessionClaims()
		claims.GlobalRole = ""
		token := mintSessionToken(t, claims, sessionTestSecret)

		p, err := authn.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, GlobalRoleUser, p.GlobalRole)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token := mintSessionToken(t, validSessionClaims(), []byte("someone-else"))

		_, err := authn.Authenticate(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		claims := validSessionClaims()
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		token := mintSessionToken(t, claims, sessionTestSecret)

		_, err := authn.Authenticate(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("wrong audience rejected", func(t *testing.T) {
		claims := validSessionClaims()
		claims.Audience = jwt.ClaimStrings{"other-app"}
		token := mintSessionToken(t, claims, sessionTestSecret)

		_, err := authn.Authenticate(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("missing subject rejected", func(t *testing.T) {
		claims := validSessionClaims()
		claims.Subject = ""
		token := mintSessionToken(t, claims, sessionTestSecret)

		_, err := authn.Authenticate(context.Background(), token)
		assert.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := authn.Authenticate(context.Background(), "not.a.jwt")
		assert.Error(t, err)
	})
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc123", want: "abc123"},
		{name: "case insensitive scheme", header: "bearer abc123", want: "abc123"},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc123", wantErr: true},
		{name: "empty token", header: "Bearer  ", wantErr: true},
		{name: "no token", header: "Bearer", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			token, err := ExtractBearerToken(r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}
