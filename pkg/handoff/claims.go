package handoff

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldatlas/console/pkg/permissions"
)

// ProjectTokenClaims is the payload of a minted project token. The embedded
// registered claims carry sub (user id), iss, aud, iat, and exp; the custom
// fields duplicate the identity triple under stable names so the field
// application never parses the subject.
type ProjectTokenClaims struct {
	jwt.RegisteredClaims
	UserID      string                          `json:"userId"`
	ProjectID   string                          `json:"projectId"`
	AccountID   string                          `json:"accountId"`
	Role        permissions.Role                `json:"role"`
	Permissions []permissions.FeaturePermission `json:"permissions"`
}

// HasPermission reports whether the token carries a given feature permission.
func (c *ProjectTokenClaims) HasPermission(p permissions.FeaturePermission) bool {
	for _, granted := range c.Permissions {
		if granted == p {
			return true
		}
	}
	return false
}
