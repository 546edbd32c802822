package handoff

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fieldatlas/console/pkg/auth"
	"github.com/fieldatlas/console/pkg/observability"
	"github.com/fieldatlas/console/pkg/permissions"
	"github.com/fieldatlas/console/pkg/projects"
)

const (
	// TokenIssuer identifies tokens minted by this service.
	TokenIssuer = "fieldatlas-console"
	// TokenAudience is the consumer the token is minted for.
	TokenAudience = "fieldatlas-field-app"
	// TokenTTL is the fixed validity window. Tokens are single-use bridges
	// into the field application; the window stays short so revoked access
	// dies with it.
	TokenTTL = 30 * time.Second
)

// MembershipLookup resolves a user's membership in a project. A nil
// membership with a nil error means the user is not a member.
type MembershipLookup interface {
	GetMembership(ctx context.Context, projectID, userID string) (*projects.Membership, error)
}

// SuperAdminLookup answers whether a user carries the stored super-admin
// flag. Consulted only when the session role marker says otherwise.
type SuperAdminLookup interface {
	IsSuperAdmin(ctx context.Context, userID string) (bool, error)
}

// GrantedPermissionsLookup fetches the explicit permission grants for a
// member. Skipped entirely when role overrides make the answer irrelevant.
type GrantedPermissionsLookup interface {
	GetGrantedPermissions(ctx context.Context, projectID, userID string) ([]permissions.FeaturePermission, error)
}

// IssuedToken is the result of a successful issuance.
type IssuedToken struct {
	Token     string        `json:"token"`
	ExpiresIn time.Duration `json:"-"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// Issuer mints project tokens. All collaborators are injected so the issuer
// stays a pure orchestration of lookups, the permission model, and signing.
type Issuer struct {
	memberships MembershipLookup
	superAdmins SuperAdminLookup
	grants      GrantedPermissionsLookup
	secret      []byte
	logger      *observability.Logger
	metrics     *observability.Metrics

	now func() time.Time
}

// NewIssuer creates a token issuer. An empty secret is tolerated here and
// rejected per-issuance so a misconfigured deployment fails loudly on use
// rather than crashing health checks.
func NewIssuer(
	memberships MembershipLookup,
	superAdmins SuperAdminLookup,
	grants GrantedPermissionsLookup,
	secret []byte,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Issuer {
	return &Issuer{
		memberships: memberships,
		superAdmins: superAdmins,
		grants:      grants,
		secret:      secret,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

// IssueProjectToken authenticates the caller against the project and mints a
// signed token carrying their effective permissions.
func (i *Issuer) IssueProjectToken(ctx context.Context, principal *auth.Principal, projectID string) (*IssuedToken, error) {
	if principal == nil || principal.UserID == "" {
		i.countIssuance("unauthenticated")
		return nil, ErrUnauthenticated
	}
	if _, err := uuid.Parse(projectID); err != nil {
		i.countIssuance("invalid_argument")
		return nil, invalidArgument("project id %q is not a valid UUID", projectID)
	}

	member, err := i.memberships.GetMembership(ctx, projectID, principal.UserID)
	if err != nil {
		i.countIssuance("unavailable")
		return nil, unavailable("membership lookup", err)
	}
	if member == nil {
		i.countIssuance("forbidden")
		i.logWith(map[string]interface{}{
			"user_id":    principal.UserID,
			"project_id": projectID,
		}).Warn("project token denied: not a member")
		return nil, fmt.Errorf("%w: user is not a member of project", ErrForbidden)
	}

	isSuperAdmin := principal.IsSuperAdmin()
	if !isSuperAdmin {
		isSuperAdmin, err = i.superAdmins.IsSuperAdmin(ctx, principal.UserID)
		if err != nil {
			i.countIssuance("unavailable")
			return nil, unavailable("super-admin lookup", err)
		}
	}

	var granted []permissions.FeaturePermission
	if !isSuperAdmin && member.Role != permissions.RoleOwner {
		granted, err = i.grants.GetGrantedPermissions(ctx, projectID, principal.UserID)
		if err != nil {
			i.countIssuance("unavailable")
			return nil, unavailable("permission lookup", err)
		}
	}

	effective := permissions.ComputeEffective(member.Role, isSuperAdmin, granted, func(p permissions.FeaturePermission) {
		i.countDropped()
		i.logWith(map[string]interface{}{
			"permission": string(p),
			"user_id":    principal.UserID,
			"project_id": projectID,
		}).Warn("dropping unknown stored permission")
	})

	token, expiresAt, err := i.sign(principal.UserID, projectID, member.AccountID, member.Role, effective)
	if err != nil {
		i.countIssuance("configuration_error")
		return nil, err
	}

	i.countIssuance("ok")
	i.logWith(map[string]interface{}{
		"user_id":          principal.UserID,
		"project_id":       projectID,
		"role":             string(member.Role),
		"permission_count": len(effective),
	}).Info("project token issued")

	return &IssuedToken{Token: token, ExpiresIn: TokenTTL, ExpiresAt: expiresAt}, nil
}

func (i *Issuer) sign(userID, projectID, accountID string, role permissions.Role, perms []permissions.FeaturePermission) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("%w: signing secret is not set", ErrConfiguration)
	}

	issuedAt := i.now()
	expiresAt := issuedAt.Add(TokenTTL)

	claims := &ProjectTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:      userID,
		ProjectID:   projectID,
		AccountID:   accountID,
		Role:        role,
		Permissions: perms,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: signing failed: %v", ErrConfiguration, err)
	}

	return signed, expiresAt, nil
}

func (i *Issuer) countIssuance(outcome string) {
	if i.metrics != nil {
		i.metrics.HandoffIssuanceTotal.WithLabelValues(outcome).Inc()
	}
}

func (i *Issuer) countDropped() {
	if i.metrics != nil {
		i.metrics.DroppedPermissionsTotal.Inc()
	}
}

func (i *Issuer) logWith(fields map[string]interface{}) *observability.Logger {
	if i.logger == nil {
		return observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	return i.logger.WithFields(fields)
}
