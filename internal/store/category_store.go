package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/lockerinv/internal/domain"
)

type CategoryStore struct {
	db querier
}

func NewCategoryStore(db querier) *CategoryStore {
	return &CategoryStore{db: db}
}

const categorySelect = `
	SELECT c.id, c.user_id, c.name, c.description, c.created_at, c.updated_at,
	       COUNT(i.id), COALESCE(SUM(i.quantity), 0)
	FROM categories c
	LEFT JOIN items i ON i.category_id = c.id`

func scanCategory(row interface{ Scan(...any) error }) (*domain.Category, error) {
	c := &domain.Category{}
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt,
		&c.ItemCount, &c.TotalQuantity)
	return c, err
}

func (s *CategoryStore) Create(ctx context.Context, userID int64, name, description string) (*domain.Category, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, name, description) VALUES (?, ?, ?)
	`, userID, name, description)
	if isUniqueViolation(err) {
		return nil, domain.NewConflict("Kategori %s sudah ada", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, userID, id)
}

func (s *CategoryStore) GetByID(ctx context.Context, userID, id int64) (*domain.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+`
		WHERE c.user_id = ? AND c.id = ? GROUP BY c.id
	`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// GetByName matches case-insensitively.
func (s *CategoryStore) GetByName(ctx context.Context, userID int64, name string) (*domain.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+`
		WHERE c.user_id = ? AND c.name = ? COLLATE NOCASE GROUP BY c.id
	`, userID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return c, nil
}

func (s *CategoryStore) List(ctx context.Context, userID int64) ([]*domain.Category, error) {
	return s.query(ctx, categorySelect+`
		WHERE c.user_id = ? GROUP BY c.id ORDER BY c.name COLLATE NOCASE ASC
	`, userID)
}

func (s *CategoryStore) Search(ctx context.Context, userID int64, query string) ([]*domain.Category, error) {
	pattern := likePattern(query)
	return s.query(ctx, categorySelect+`
		WHERE c.user_id = ?
		  AND (LOWER(c.name) LIKE ? ESCAPE '\' OR LOWER(c.description) LIKE ? ESCAPE '\')
		GROUP BY c.id ORDER BY c.name COLLATE NOCASE ASC
	`, userID, pattern, pattern)
}

func (s *CategoryStore) query(ctx context.Context, q string, args ...any) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer closeRows(rows)

	categories := []*domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryStore) Update(ctx context.Context, userID, id int64, name, description string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, description = ?, updated_at = datetime('now')
		WHERE user_id = ? AND id = ?
	`, name, description, userID, id)
	if isUniqueViolation(err) {
		return domain.NewConflict("Kategori %s sudah ada", name)
	}
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireAffected(result, "category")
}

// Delete removes the category. Items must be moved or deleted first.
func (s *CategoryStore) Delete(ctx context.Context, userID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return requireAffected(result, "category")
}

func (s *CategoryStore) DeleteAllByUser(ctx context.Context, userID int64) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete categories: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
