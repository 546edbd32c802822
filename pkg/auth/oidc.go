package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCAuthenticator verifies session tokens against an OpenID Connect
// provider's published keys. Used instead of the shared-secret verifier when
// the identity provider supports discovery.
type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCAuthenticator discovers the provider's configuration and prepares a
// verifier for tokens minted for clientID.
func NewOIDCAuthenticator(ctx context.Context, issuerURL, clientID string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &OIDCAuthenticator{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Authenticate verifies the ID token and extracts the caller identity.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	idToken, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("invalid id token: %w", err)
	}

	var claims struct {
		Email      string `json:"email"`
		GlobalRole string `json:"role"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token claims: %w", err)
	}

	role := claims.GlobalRole
	if role == "" {
		role = GlobalRoleUser
	}

	return &Principal{
		UserID:     idToken.Subject,
		Email:      claims.Email,
		GlobalRole: role,
	}, nil
}
