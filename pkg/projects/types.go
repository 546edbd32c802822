package projects

import (
	"time"

	"github.com/fieldatlas/console/pkg/permissions"
)

// Project represents a workspace owned by an account
type Project struct {
	ID        string    `json:"id"` // UUID
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership represents a user's relationship to a project. AccountID is
// denormalized from the project row so that a single lookup carries
// everything token issuance needs.
type Membership struct {
	ProjectID string           `json:"project_id"`
	AccountID string           `json:"account_id"`
	UserID    string           `json:"user_id"`
	Role      permissions.Role `json:"role"`
	Email     string           `json:"email,omitempty"`
	FullName  string           `json:"full_name,omitempty"`
	AvatarURL string           `json:"avatar_url,omitempty"`
	JoinedAt  time.Time        `json:"joined_at"`
}

// GrantResult reports the outcome of a replace-set permission mutation.
// Revocation is atomic; each grant insert is reported individually so the
// editing UI can show partial failures.
type GrantResult struct {
	Granted []permissions.FeaturePermission          `json:"granted"`
	Failed  map[permissions.FeaturePermission]string `json:"failed,omitempty"`
}
