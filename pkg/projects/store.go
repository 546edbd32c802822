package projects

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldatlas/console/pkg/permissions"
)

// Store handles project and membership persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new project store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetProject retrieves a project by id
func (s *Store) GetProject(ctx context.Context, projectID string) (*Project, error) {
	query := `
		SELECT id, account_id, name, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	var p Project
	err := s.db.QueryRowContext(ctx, query, projectID).Scan(
		&p.ID, &p.AccountID, &p.Name, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project not found: %s", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &p, nil
}

// GetMembership retrieves a user's membership in a project, joined against
// the project row for the owning account id. Returns (nil, nil) when the
// user is not a member: callers distinguish absence from lookup failure.
func (s *Store) GetMembership(ctx context.Context, projectID, userID string) (*Membership, error) {
	query := `
		SELECT m.project_id, p.account_id, m.user_id, m.role,
		       u.email, u.full_name, u.avatar_url, m.joined_at
		FROM project_members m
		JOIN projects p ON p.id = m.project_id
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1 AND m.user_id = $2
	`

	member, err := scanMembership(s.db.QueryRowContext(ctx, query, projectID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return member, nil
}

// ListMembers retrieves all members of a project for the permission editor
func (s *Store) ListMembers(ctx context.Context, projectID string) ([]*Membership, error) {
	query := `
		SELECT m.project_id, p.account_id, m.user_id, m.role,
		       u.email, u.full_name, u.avatar_url, m.joined_at
		FROM project_members m
		JOIN projects p ON p.id = m.project_id
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY m.joined_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		member, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

// GetGrantedPermissions retrieves the explicit permission grants stored for
// a member. Rows are returned as-is; validation against the catalog happens
// in the permission model, not here.
func (s *Store) GetGrantedPermissions(ctx context.Context, projectID, userID string) ([]permissions.FeaturePermission, error) {
	query := `
		SELECT permission
		FROM member_permissions
		WHERE project_id = $1 AND user_id = $2
		ORDER BY permission ASC
	`

	rows, err := s.db.QueryContext(ctx, query, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get granted permissions: %w", err)
	}
	defer rows.Close()

	var perms []permissions.FeaturePermission
	for rows.Next() {
		var p permissions.FeaturePermission
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}

	return perms, rows.Err()
}

// ReplacePermissions replaces a member's entire grant set: revoke-all, then
// grant each requested permission. The revocation and the grants run in one
// transaction so readers never observe a half-empty set; individual grant
// failures (and unknown permission names, which are never written) are
// collected into the aggregate result rather than aborting the whole
// replacement.
func (s *Store) ReplacePermissions(ctx context.Context, projectID, userID string, perms []permissions.FeaturePermission, grantedBy string) (*GrantResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM member_permissions WHERE project_id = $1 AND user_id = $2`,
		projectID, userID,
	); err != nil {
		return nil, fmt.Errorf("failed to revoke permissions: %w", err)
	}

	result := &GrantResult{}
	seen := permissions.NewSet()
	for _, p := range perms {
		if seen.Contains(p) {
			continue
		}
		seen[p] = struct{}{}

		if !permissions.IsValid(p) {
			if result.Failed == nil {
				result.Failed = make(map[permissions.FeaturePermission]string)
			}
			result.Failed[p] = "unknown permission"
			continue
		}

		// Savepoint per grant: a failed insert must not poison the
		// transaction holding the revocation.
		if _, err := tx.ExecContext(ctx, `SAVEPOINT grant_one`); err != nil {
			return nil, fmt.Errorf("failed to create savepoint: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO member_permissions (project_id, user_id, permission, granted_by, granted_at)
			VALUES ($1, $2, $3, $4, NOW())
		`, projectID, userID, string(p), grantedBy)
		if err != nil {
			if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT grant_one`); rbErr != nil {
				return nil, fmt.Errorf("failed to roll back grant savepoint: %w", rbErr)
			}
			if result.Failed == nil {
				result.Failed = make(map[permissions.FeaturePermission]string)
			}
			result.Failed[p] = err.Error()
			continue
		}
		result.Granted = append(result.Granted, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit permission replacement: %w", err)
	}

	return result, nil
}

func scanMembership(scanner interface {
	Scan(dest ...interface{}) error
}) (*Membership, error) {
	var m Membership
	var fullName, avatarURL sql.NullString

	err := scanner.Scan(
		&m.ProjectID,
		&m.AccountID,
		&m.UserID,
		&m.Role,
		&m.Email,
		&fullName,
		&avatarURL,
		&m.JoinedAt,
	)
	if err != nil {
		return nil, err
	}

	if fullName.Valid {
		m.FullName = fullName.String
	}
	if avatarURL.Valid {
		m.AvatarURL = avatarURL.String
	}

	return &m, nil
}
