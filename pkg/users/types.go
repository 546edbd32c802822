package users

import "time"

// GlobalRole is the role marker on a user record, independent of any
// project. Most users carry GlobalRoleUser; GlobalRoleSuperAdmin grants the
// full permission set in every project.
type GlobalRole string

const (
	GlobalRoleUser       GlobalRole = "user"
	GlobalRoleSuperAdmin GlobalRole = "super_admin"
)

// User represents a user profile as stored by the auth backend
type User struct {
	ID           string     `json:"id"` // UUID
	Email        string     `json:"email"`
	FullName     string     `json:"full_name,omitempty"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	GlobalRole   GlobalRole `json:"global_role"`
	IsSuperAdmin bool       `json:"is_super_admin"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
}
