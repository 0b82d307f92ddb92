package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/lockerinv/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every store can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Stores bundles every repository bound to the same querier.
type Stores struct {
	Users      *UserStore
	Lockers    *LockerStore
	Categories *CategoryStore
	Items      *ItemStore
	Photos     *PhotoStore
	Stats      *StatsStore
}

// New returns stores bound directly to the connection pool.
func New(db *sql.DB) *Stores {
	return newStores(db)
}

func newStores(q querier) *Stores {
	return &Stores{
		Users:      NewUserStore(q),
		Lockers:    NewLockerStore(q),
		Categories: NewCategoryStore(q),
		Items:      NewItemStore(q),
		Photos:     NewPhotoStore(q),
		Stats:      NewStatsStore(q),
	}
}

// TxManager runs a function against stores bound to a single transaction.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise.
func (m *TxManager) WithinTx(ctx context.Context, fn func(*Stores) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(newStores(tx)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			slog.Error("failed to roll back transaction", "error", rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("failed to close rows", "error", err)
	}
}

// likePattern builds a case-insensitive LIKE pattern, escaping wildcards in
// the user's query. Queries using it must declare ESCAPE '\'.
func likePattern(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(query))) + "%"
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func requireAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
