package users

import (
	"context"
	"database/sql"
	"fmt"
)

// Store handles user directory persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new user store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const userColumns = `id, email, full_name, avatar_url, global_role, is_super_admin, is_active, created_at, updated_at, last_sign_in_at`

// GetUser retrieves a user by id
func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// IsSuperAdmin reports whether the user carries the super-admin flag. This
// is the secondary source consulted when a principal's role marker is not
// super_admin; absent rows report false rather than an error so that
// callers fall through to regular membership evaluation.
func (s *Store) IsSuperAdmin(ctx context.Context, userID string) (bool, error) {
	query := `SELECT is_super_admin FROM users WHERE id = $1`

	var flag bool
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&flag)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check super-admin flag: %w", err)
	}

	return flag, nil
}

// ListUsers lists users for the super-admin directory, newest first
func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, user)
	}

	return out, rows.Err()
}

// SetActive activates or deactivates a user account
func (s *Store) SetActive(ctx context.Context, userID string, active bool) error {
	query := `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, active, userID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}

	return nil
}

func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*User, error) {
	var user User
	var fullName, avatarURL sql.NullString
	var lastSignIn sql.NullTime

	err := scanner.Scan(
		&user.ID,
		&user.Email,
		&fullName,
		&avatarURL,
		&user.GlobalRole,
		&user.IsSuperAdmin,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastSignIn,
	)
	if err != nil {
		return nil, err
	}

	if fullName.Valid {
		user.FullName = fullName.String
	}
	if avatarURL.Valid {
		user.AvatarURL = avatarURL.String
	}
	if lastSignIn.Valid {
		t := lastSignIn.Time
		user.LastSignInAt = &t
	}

	return &user, nil
}
