package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/lockerinv/internal/domain"
)

type ItemStore struct {
	db querier
}

func NewItemStore(db querier) *ItemStore {
	return &ItemStore{db: db}
}

const itemSelect = `
	SELECT i.id, i.user_id, i.name, i.quantity, i.description, i.category_id, i.locker_id,
	       i.created_at, i.updated_at, c.name, l.code, l.name
	FROM items i
	JOIN categories c ON c.id = i.category_id
	JOIN lockers l ON l.id = i.locker_id`

func scanItem(row interface{ Scan(...any) error }) (*domain.Item, error) {
	item := &domain.Item{}
	err := row.Scan(&item.ID, &item.UserID, &item.Name, &item.Quantity, &item.Description,
		&item.CategoryID, &item.LockerID, &item.CreatedAt, &item.UpdatedAt,
		&item.CategoryName, &item.LockerCode, &item.LockerName)
	return item, err
}

func (s *ItemStore) Create(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO items (user_id, name, quantity, description, category_id, locker_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, item.UserID, item.Name, item.Quantity, item.Description, item.CategoryID, item.LockerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, item.UserID, id)
}

func (s *ItemStore) GetByID(ctx context.Context, userID, id int64) (*domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, itemSelect+`
		WHERE i.user_id = ? AND i.id = ?
	`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// FindByKey returns the item with the same case-insensitive name in the
// same category and locker, the identity used when merging.
func (s *ItemStore) FindByKey(ctx context.Context, userID int64, name string, categoryID, lockerID int64) (*domain.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, itemSelect+`
		WHERE i.user_id = ? AND i.name = ? COLLATE NOCASE AND i.category_id = ? AND i.locker_id = ?
		ORDER BY i.id ASC LIMIT 1
	`, userID, name, categoryID, lockerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) List(ctx context.Context, userID int64, filter domain.ItemFilter) ([]*domain.Item, error) {
	var (
		where = []string{"i.user_id = ?"}
		args  = []any{userID}
	)
	if filter.CategoryID != 0 {
		where = append(where, "i.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.LockerID != 0 {
		where = append(where, "i.locker_id = ?")
		args = append(args, filter.LockerID)
	}
	if strings.TrimSpace(filter.Query) != "" {
		pattern := likePattern(filter.Query)
		where = append(where, `(LOWER(i.name) LIKE ? ESCAPE '\' OR LOWER(i.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	return s.query(ctx, itemSelect+`
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY i.name COLLATE NOCASE ASC, i.id ASC
	`, args...)
}

// Search matches item name or description and the joined category name and
// locker code.
func (s *ItemStore) Search(ctx context.Context, userID int64, query string) ([]*domain.Item, error) {
	pattern := likePattern(query)
	return s.query(ctx, itemSelect+`
		WHERE i.user_id = ?
		  AND (LOWER(i.name) LIKE ? ESCAPE '\' OR LOWER(i.description) LIKE ? ESCAPE '\'
		       OR LOWER(c.name) LIKE ? ESCAPE '\' OR LOWER(l.code) LIKE ? ESCAPE '\')
		ORDER BY i.name COLLATE NOCASE ASC, i.id ASC
	`, userID, pattern, pattern, pattern, pattern)
}

// Recent returns the most recently created items.
func (s *ItemStore) Recent(ctx context.Context, userID int64, limit int) ([]*domain.Item, error) {
	return s.query(ctx, itemSelect+`
		WHERE i.user_id = ? ORDER BY i.created_at DESC, i.id DESC LIMIT ?
	`, userID, limit)
}

func (s *ItemStore) query(ctx context.Context, q string, args ...any) ([]*domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer closeRows(rows)

	items := []*domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

func (s *ItemStore) Update(ctx context.Context, item *domain.Item) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET name = ?, quantity = ?, description = ?, category_id = ?, locker_id = ?,
		       updated_at = datetime('now')
		WHERE user_id = ? AND id = ?
	`, item.Name, item.Quantity, item.Description, item.CategoryID, item.LockerID, item.UserID, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return requireAffected(result, "item")
}

// AddQuantity increases the item's quantity by delta.
func (s *ItemStore) AddQuantity(ctx context.Context, userID, id int64, delta int) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE items SET quantity = quantity + ?, updated_at = datetime('now')
		WHERE user_id = ? AND id = ?
	`, delta, userID, id)
	if err != nil {
		return fmt.Errorf("failed to add item quantity: %w", err)
	}
	return requireAffected(result, "item")
}

func (s *ItemStore) MoveCategory(ctx context.Context, userID, fromID, toID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE items SET category_id = ?, updated_at = datetime('now') WHERE user_id = ? AND category_id = ?
	`, toID, userID, fromID)
	if err != nil {
		return fmt.Errorf("failed to move items to category: %w", err)
	}
	return nil
}

func (s *ItemStore) MoveLocker(ctx context.Context, userID, fromID, toID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE items SET locker_id = ?, updated_at = datetime('now') WHERE user_id = ? AND locker_id = ?
	`, toID, userID, fromID)
	if err != nil {
		return fmt.Errorf("failed to move items to locker: %w", err)
	}
	return nil
}

func (s *ItemStore) DeleteByCategory(ctx context.Context, userID, categoryID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE user_id = ? AND category_id = ?`, userID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete items by category: %w", err)
	}
	return nil
}

func (s *ItemStore) DeleteByLocker(ctx context.Context, userID, lockerID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE user_id = ? AND locker_id = ?`, userID, lockerID)
	if err != nil {
		return fmt.Errorf("failed to delete items by locker: %w", err)
	}
	return nil
}

func (s *ItemStore) Delete(ctx context.Context, userID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return requireAffected(result, "item")
}

func (s *ItemStore) DeleteAllByUser(ctx context.Context, userID int64) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete items: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
