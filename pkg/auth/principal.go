package auth

// GlobalRole values carried by a session.
const (
	GlobalRoleUser       = "user"
	GlobalRoleSuperAdmin = "super_admin"
)

// Principal is the authenticated identity attached to a request after the
// session token is verified.
type Principal struct {
	UserID     string
	Email      string
	GlobalRole string
}

// IsSuperAdmin reports whether the session itself marks the caller as a
// platform operator. The user store's flag is a second, independent source;
// authorization decisions consult both.
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.GlobalRole == GlobalRoleSuperAdmin
}
