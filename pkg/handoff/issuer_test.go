package handoff

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldatlas/console/pkg/auth"
	"github.com/fieldatlas/console/pkg/permissions"
	"github.com/fieldatlas/console/pkg/projects"
)

const (
	issuerTestProject = "0a6d9c1e-8c1b-4f6a-9f2e-5b7c3d4e8a90"
	issuerTestAccount = "1b7e0d2f-9d2c-4a7b-8e3f-6c8d4e5f9b01"
	issuerTestUser    = "2c8f1e30-ae3d-4b8c-9f40-7d9e5f60ac12"
)

var issuerTestSecret = []byte("test-signing-secret")

type fakeMemberships struct {
	member *projects.Membership
	err    error
	calls  int
}

func (f *fakeMemberships) GetMembership(ctx context.Context, projectID, userID string) (*projects.Membership, error) {
	f.calls++
	return f.member, f.err
}

type fakeSuperAdmins struct {
	isSuperAdmin bool
	err          error
	calls        int
}

func (f *fakeSuperAdmins) IsSuperAdmin(ctx context.Context, userID string) (bool, error) {
	f.calls++
	return f.isSuperAdmin, f.err
}

type fakeGrants struct {
	perms []permissions.FeaturePermission
	err   error
	calls int
}

func (f *fakeGrants) GetGrantedPermissions(ctx context.Context, projectID, userID string) ([]permissions.FeaturePermission, error) {
	f.calls++
	return f.perms, f.err
}

func membership(role permissions.Role) *projects.Membership {
	return &projects.Membership{
		ProjectID: issuerTestProject,
		AccountID: issuerTestAccount,
		UserID:    issuerTestUser,
		Role:      role,
	}
}

func principal() *auth.Principal {
	return &auth.Principal{UserID: issuerTestUser, Email: "ada@example.com", GlobalRole: auth.GlobalRoleUser}
}

func newTestIssuer(m *fakeMemberships, sa *fakeSuperAdmins, g *fakeGrants) *Issuer {
	return NewIssuer(m, sa, g, issuerTestSecret, nil, nil)
}

func decodeToken(t *testing.T, token string) *ProjectTokenClaims {
	t.Helper()
	claims := &ProjectTokenClaims{}
	// Claims validation is skipped so frozen-clock tokens still decode; the
	// signature check is what matters here.
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return issuerTestSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims
}

func TestIssueProjectToken_MemberPassThrough(t *testing.T) {
	grants := &fakeGrants{perms: []permissions.FeaturePermission{
		permissions.PermViewMap,
		permissions.PermViewData,
		permissions.PermManageFieldTasks,
	}}
	issuer := newTestIssuer(
		&fakeMemberships{member: membership(permissions.RoleMember)},
		&fakeSuperAdmins{},
		grants,
	)

	issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
	require.NoError(t, err)
	require.NotNil(t, issued)
	assert.Equal(t, TokenTTL, issued.ExpiresIn)

	claims := decodeToken(t, issued.Token)
	assert.Equal(t, issuerTestUser, claims.Subject)
	assert.Equal(t, issuerTestUser, claims.UserID)
	assert.Equal(t, issuerTestProject, claims.ProjectID)
	assert.Equal(t, issuerTestAccount, claims.AccountID)
	assert.Equal(t, permissions.RoleMember, claims.Role)
	assert.Equal(t, TokenIssuer, claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{TokenAudience}, claims.Audience)
	assert.ElementsMatch(t, grants.perms, claims.Permissions)
	assert.Equal(t, 1, grants.calls)
}

func TestIssueProjectToken_ExpiryWindow(t *testing.T) {
	issuer := newTestIssuer(
		&fakeMemberships{member: membership(permissions.RoleMember)},
		&fakeSuperAdmins{},
		&fakeGrants{},
	)
	frozen := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	issuer.now = func() time.Time { return frozen }

	issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
	require.NoError(t, err)

	claims := decodeToken(t, issued.Token)
	assert.Equal(t, frozen.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, int64(30), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
	assert.Equal(t, frozen.Add(30*time.Second), issued.ExpiresAt)
}

func TestIssueProjectToken_OwnerGetsFullSet(t *testing.T) {
	grants := &fakeGrants{perms: []permissions.FeaturePermission{permissions.PermViewMap}}
	issuer := newTestIssuer(
		&fakeMemberships{member: membership(permissions.RoleOwner)},
		&fakeSuperAdmins{},
		grants,
	)

	issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
	require.NoError(t, err)

	claims := decodeToken(t, issued.Token)
	assert.ElementsMatch(t, permissions.All(), claims.Permissions)
	assert.Equal(t, permissions.RoleOwner, claims.Role)
	// No point fetching grants the override would discard.
	assert.Equal(t, 0, grants.calls)
}

func TestIssueProjectToken_SuperAdminSources(t *testing.T) {
	t.Run("session role marker short-circuits flag lookup", func(t *testing.T) {
		superAdmins := &fakeSuperAdmins{}
		grants := &fakeGrants{}
		issuer := newTestIssuer(
			&fakeMemberships{member: membership(permissions.RoleMember)},
			superAdmins,
			grants,
		)

		p := principal()
		p.GlobalRole = auth.GlobalRoleSuperAdmin
		issued, err := issuer.IssueProjectToken(context.Background(), p, issuerTestProject)
		require.NoError(t, err)

		claims := decodeToken(t, issued.Token)
		assert.ElementsMatch(t, permissions.All(), claims.Permissions)
		assert.Equal(t, 0, superAdmins.calls)
		assert.Equal(t, 0, grants.calls)
	})

	t.Run("stored flag grants full set when session says user", func(t *testing.T) {
		superAdmins := &fakeSuperAdmins{isSuperAdmin: true}
		issuer := newTestIssuer(
			&fakeMemberships{member: membership(permissions.RoleMember)},
			superAdmins,
			&fakeGrants{},
		)

		issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
		require.NoError(t, err)

		claims := decodeToken(t, issued.Token)
		assert.ElementsMatch(t, permissions.All(), claims.Permissions)
		assert.Equal(t, 1, superAdmins.calls)
		// Role in the token stays the membership role.
		assert.Equal(t, permissions.RoleMember, claims.Role)
	})
}

func TestIssueProjectToken_DropsUnknownStoredGrants(t *testing.T) {
	grants := &fakeGrants{perms: []permissions.FeaturePermission{
		permissions.PermViewMap,
		"bogus_permission",
	}}
	issuer := newTestIssuer(
		&fakeMemberships{member: membership(permissions.RoleMember)},
		&fakeSuperAdmins{},
		grants,
	)

	issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
	require.NoError(t, err)

	claims := decodeToken(t, issued.Token)
	assert.Equal(t, []permissions.FeaturePermission{permissions.PermViewMap}, claims.Permissions)
}

func TestIssueProjectToken_Failures(t *testing.T) {
	t.Run("nil principal", func(t *testing.T) {
		issuer := newTestIssuer(&fakeMemberships{}, &fakeSuperAdmins{}, &fakeGrants{})
		issued, err := issuer.IssueProjectToken(context.Background(), nil, issuerTestProject)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Nil(t, issued)
	})

	t.Run("malformed project id", func(t *testing.T) {
		issuer := newTestIssuer(&fakeMemberships{}, &fakeSuperAdmins{}, &fakeGrants{})
		issued, err := issuer.IssueProjectToken(context.Background(), principal(), "not-a-uuid")
		assert.ErrorIs(t, err, ErrInvalidArgument)
		assert.Nil(t, issued)
	})

	t.Run("non-member", func(t *testing.T) {
		issuer := newTestIssuer(&fakeMemberships{member: nil}, &fakeSuperAdmins{}, &fakeGrants{})
		issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Nil(t, issued)
	})

	t.Run("membership lookup failure", func(t *testing.T) {
		issuer := newTestIssuer(
			&fakeMemberships{err: fmt.Errorf("connection refused")},
			&fakeSuperAdmins{},
			&fakeGrants{},
		)
		issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Nil(t, issued)
	})

	t.Run("super-admin lookup failure", func(t *testing.T) {
		issuer := newTestIssuer(
			&fakeMemberships{member: membership(permissions.RoleMember)},
			&fakeSuperAdmins{err: fmt.Errorf("connection refused")},
			&fakeGrants{},
		)
		issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Nil(t, issued)
	})

	t.Run("grant lookup failure", func(t *testing.T) {
		issuer := newTestIssuer(
			&fakeMemberships{member: membership(permissions.RoleMember)},
			&fakeSuperAdmins{},
			&fakeGrants{err: fmt.Errorf("connection refused")},
		)
		issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Nil(t, issued)
	})

	t.Run("missing signing secret", func(t *testing.T) {
		issuer := NewIssuer(
			&fakeMemberships{member: membership(permissions.RoleMember)},
			&fakeSuperAdmins{},
			&fakeGrants{},
			nil, nil, nil,
		)
		issued, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Nil(t, issued)
	})
}

func TestIssuedTokensAreFreshPerCall(t *testing.T) {
	issuer := newTestIssuer(
		&fakeMemberships{member: membership(permissions.RoleMember)},
		&fakeSuperAdmins{},
		&fakeGrants{},
	)

	times := []time.Time{
		time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 14, 9, 0, 5, 0, time.UTC),
	}
	i := 0
	issuer.now = func() time.Time { ts := times[i]; i++; return ts }

	first, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
	require.NoError(t, err)
	second, err := issuer.IssueProjectToken(context.Background(), principal(), issuerTestProject)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, times[0].Add(TokenTTL), first.ExpiresAt)
	assert.Equal(t, times[1].Add(TokenTTL), second.ExpiresAt)
}

func TestHasPermission(t *testing.T) {
	claims := &ProjectTokenClaims{
		Permissions: []permissions.FeaturePermission{permissions.PermViewMap},
	}
	assert.True(t, claims.HasPermission(permissions.PermViewMap))
	assert.False(t, claims.HasPermission(permissions.PermExportData))
}
