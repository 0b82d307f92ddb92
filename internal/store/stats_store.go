package store

import (
	"context"
	"fmt"
)

// Totals are the headline dashboard counts for one user.
type Totals struct {
	Lockers       int `json:"lockers"`
	Categories    int `json:"categories"`
	Items         int `json:"items"`
	TotalQuantity int `json:"totalQuantity"`
}

// Breakdown is one bar of a dashboard chart.
type Breakdown struct {
	ID            int64  `json:"id"`
	Label         string `json:"label"`
	ItemCount     int    `json:"itemCount"`
	TotalQuantity int    `json:"totalQuantity"`
}

type StatsStore struct {
	db querier
}

func NewStatsStore(db querier) *StatsStore {
	return &StatsStore{db: db}
}

func (s *StatsStore) Totals(ctx context.Context, userID int64) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM lockers WHERE user_id = ?),
			(SELECT COUNT(*) FROM categories WHERE user_id = ?),
			(SELECT COUNT(*) FROM items WHERE user_id = ?),
			(SELECT COALESCE(SUM(quantity), 0) FROM items WHERE user_id = ?)
	`, userID, userID, userID, userID).Scan(&t.Lockers, &t.Categories, &t.Items, &t.TotalQuantity)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to get totals: %w", err)
	}
	return t, nil
}

// ByCategory breaks item counts down per category, largest first.
func (s *StatsStore) ByCategory(ctx context.Context, userID int64) ([]Breakdown, error) {
	return s.breakdown(ctx, `
		SELECT c.id, c.name, COUNT(i.id), COALESCE(SUM(i.quantity), 0)
		FROM categories c LEFT JOIN items i ON i.category_id = c.id
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY 4 DESC, c.name COLLATE NOCASE ASC
	`, userID)
}

// ByLocker labels each bar with the locker code.
func (s *StatsStore) ByLocker(ctx context.Context, userID int64) ([]Breakdown, error) {
	return s.breakdown(ctx, `
		SELECT l.id, l.code, COUNT(i.id), COALESCE(SUM(i.quantity), 0)
		FROM lockers l LEFT JOIN items i ON i.locker_id = l.id
		WHERE l.user_id = ?
		GROUP BY l.id
		ORDER BY l.code ASC
	`, userID)
}

func (s *StatsStore) breakdown(ctx context.Context, q string, userID int64) ([]Breakdown, error) {
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query breakdown: %w", err)
	}
	defer closeRows(rows)

	out := []Breakdown{}
	for rows.Next() {
		var b Breakdown
		if err := rows.Scan(&b.ID, &b.Label, &b.ItemCount, &b.TotalQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan breakdown: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating breakdown: %w", err)
	}
	return out, nil
}
