package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/lockerinv/internal/domain"
)

type UserStore struct {
	db querier
}

func NewUserStore(db querier) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, email, name, password_hash, role, profile_picture_key, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.ProfilePictureKey, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *UserStore) Create(ctx context.Context, email, name, passwordHash, role string) (*domain.User, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash, role) VALUES (?, ?, ?, ?)
	`, email, name, passwordHash, role)
	if isUniqueViolation(err) {
		return nil, domain.NewConflict("Email %s sudah terdaftar", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByEmail matches case-insensitively (the column is COLLATE NOCASE).
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer closeRows(rows)

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (s *UserStore) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, role).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users by role: %w", err)
	}
	return n, nil
}

func (s *UserStore) Update(ctx context.Context, id int64, email, name, role string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, role = ?, updated_at = datetime('now') WHERE id = ?
	`, email, name, role, id)
	if isUniqueViolation(err) {
		return domain.NewConflict("Email %s sudah terdaftar", email)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireAffected(result, "user")
}

func (s *UserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = datetime('now') WHERE id = ?
	`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(result, "user")
}

func (s *UserStore) UpdateProfilePicture(ctx context.Context, id int64, key string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET profile_picture_key = ?, updated_at = datetime('now') WHERE id = ?
	`, key, id)
	if err != nil {
		return fmt.Errorf("failed to update profile picture: %w", err)
	}
	return requireAffected(result, "user")
}

// Delete removes the user; lockers, categories, items and photos cascade.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(result, "user")
}

// BlobKeys lists every object-storage key owned by the user so callers can
// clean up storage after the rows are gone.
func (s *UserStore) BlobKeys(ctx context.Context, id int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_picture_key FROM users WHERE id = ? AND profile_picture_key != ''
		UNION ALL
		SELECT qr_code_key FROM lockers WHERE user_id = ? AND qr_code_key != ''
		UNION ALL
		SELECT p.storage_key FROM photos p JOIN lockers l ON l.id = p.locker_id WHERE l.user_id = ?
	`, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list blob keys: %w", err)
	}
	defer closeRows(rows)

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan blob key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blob keys: %w", err)
	}
	return keys, nil
}
