package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/lockerinv/internal/domain"
)

type LockerStore struct {
	db querier
}

func NewLockerStore(db querier) *LockerStore {
	return &LockerStore{db: db}
}

const lockerSelect = `
	SELECT l.id, l.user_id, l.code, l.name, l.description, l.qr_code_key, l.created_at, l.updated_at,
	       COUNT(i.id), COALESCE(SUM(i.quantity), 0)
	FROM lockers l
	LEFT JOIN items i ON i.locker_id = l.id`

func scanLocker(row interface{ Scan(...any) error }) (*domain.Locker, error) {
	l := &domain.Locker{}
	err := row.Scan(&l.ID, &l.UserID, &l.Code, &l.Name, &l.Description, &l.QRCodeKey,
		&l.CreatedAt, &l.UpdatedAt, &l.ItemCount, &l.TotalQuantity)
	return l, err
}

func (s *LockerStore) Create(ctx context.Context, userID int64, code, name, description string) (*domain.Locker, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO lockers (user_id, code, name, description) VALUES (?, ?, ?, ?)
	`, userID, code, name, description)
	if isUniqueViolation(err) {
		return nil, domain.NewConflict("Kode loker %s sudah digunakan", code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create locker: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, userID, id)
}

func (s *LockerStore) GetByID(ctx context.Context, userID, id int64) (*domain.Locker, error) {
	l, err := scanLocker(s.db.QueryRowContext(ctx, lockerSelect+`
		WHERE l.user_id = ? AND l.id = ? GROUP BY l.id
	`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get locker: %w", err)
	}
	return l, nil
}

func (s *LockerStore) GetByCode(ctx context.Context, userID int64, code string) (*domain.Locker, error) {
	l, err := scanLocker(s.db.QueryRowContext(ctx, lockerSelect+`
		WHERE l.user_id = ? AND l.code = ? GROUP BY l.id
	`, userID, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get locker by code: %w", err)
	}
	return l, nil
}

func (s *LockerStore) List(ctx context.Context, userID int64) ([]*domain.Locker, error) {
	return s.query(ctx, lockerSelect+`
		WHERE l.user_id = ? GROUP BY l.id ORDER BY l.code ASC
	`, userID)
}

// Search matches code, name or description.
func (s *LockerStore) Search(ctx context.Context, userID int64, query string) ([]*domain.Locker, error) {
	pattern := likePattern(query)
	return s.query(ctx, lockerSelect+`
		WHERE l.user_id = ?
		  AND (LOWER(l.code) LIKE ? ESCAPE '\' OR LOWER(l.name) LIKE ? ESCAPE '\' OR LOWER(l.description) LIKE ? ESCAPE '\')
		GROUP BY l.id ORDER BY l.code ASC
	`, userID, pattern, pattern, pattern)
}

func (s *LockerStore) query(ctx context.Context, q string, args ...any) ([]*domain.Locker, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lockers: %w", err)
	}
	defer closeRows(rows)

	lockers := []*domain.Locker{}
	for rows.Next() {
		l, err := scanLocker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locker: %w", err)
		}
		lockers = append(lockers, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lockers: %w", err)
	}
	return lockers, nil
}

// Codes returns every code the user already holds.
func (s *LockerStore) Codes(ctx context.Context, userID int64) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code FROM lockers WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locker codes: %w", err)
	}
	defer closeRows(rows)

	codes := make(map[string]bool)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan locker code: %w", err)
		}
		codes[c] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locker codes: %w", err)
	}
	return codes, nil
}

func (s *LockerStore) Update(ctx context.Context, userID, id int64, code, name, description string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE lockers SET code = ?, name = ?, description = ?, updated_at = datetime('now')
		WHERE user_id = ? AND id = ?
	`, code, name, description, userID, id)
	if isUniqueViolation(err) {
		return domain.NewConflict("Kode loker %s sudah digunakan", code)
	}
	if err != nil {
		return fmt.Errorf("failed to update locker: %w", err)
	}
	return requireAffected(result, "locker")
}

func (s *LockerStore) SetQRCodeKey(ctx context.Context, userID, id int64, key string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE lockers SET qr_code_key = ? WHERE user_id = ? AND id = ?
	`, key, userID, id)
	if err != nil {
		return fmt.Errorf("failed to set qr code key: %w", err)
	}
	return requireAffected(result, "locker")
}

// Delete removes the locker. Items must be moved or deleted first.
func (s *LockerStore) Delete(ctx context.Context, userID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM lockers WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete locker: %w", err)
	}
	return requireAffected(result, "locker")
}

// DeleteAllByUser removes every locker of the user and returns how many went.
func (s *LockerStore) DeleteAllByUser(ctx context.Context, userID int64) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM lockers WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete lockers: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// BlobKeys returns the QR and photo keys for the user's lockers.
func (s *LockerStore) BlobKeys(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT qr_code_key FROM lockers WHERE user_id = ? AND qr_code_key != ''
		UNION ALL
		SELECT p.storage_key FROM photos p JOIN lockers l ON l.id = p.locker_id WHERE l.user_id = ?
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locker blob keys: %w", err)
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
