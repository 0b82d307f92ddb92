package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/lockerinv/internal/db"
	"github.com/vbonduro/lockerinv/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// fixture seeds one user with a category and a locker.
type fixture struct {
	stores   *Stores
	user     *domain.User
	category *domain.Category
	locker   *domain.Locker
}

func newFixture(t *testing.T) (*sql.DB, fixture) {
	t.Helper()
	d := openTestDB(t)
	s := newStores(d)
	ctx := context.Background()

	user, err := s.Users.Create(ctx, "owner@example.com", "Owner", "hash", domain.RoleUser)
	require.NoError(t, err)
	cat, err := s.Categories.Create(ctx, user.ID, "Elektronik", "")
	require.NoError(t, err)
	locker, err := s.Lockers.Create(ctx, user.ID, "A001", "Rak Depan", "")
	require.NoError(t, err)

	return d, fixture{stores: s, user: user, category: cat, locker: locker}
}

func (f fixture) addItem(t *testing.T, name string, qty int) *domain.Item {
	t.Helper()
	item, err := f.stores.Items.Create(context.Background(), &domain.Item{
		UserID: f.user.ID, Name: name, Quantity: qty, CategoryID: f.category.ID, LockerID: f.locker.ID,
	})
	require.NoError(t, err)
	return item
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%50\%%`, likePattern("50%"))
	assert.Equal(t, `%a\_b%`, likePattern(" A_B "))
	assert.Equal(t, `%c:\\x%`, likePattern(`c:\x`))
}

func TestWithinTxCommits(t *testing.T) {
	d, f := newFixture(t)
	tm := NewTxManager(d)
	ctx := context.Background()

	err := tm.WithinTx(ctx, func(s *Stores) error {
		_, err := s.Categories.Create(ctx, f.user.ID, "Alat", "")
		return err
	})
	require.NoError(t, err)

	got, err := f.stores.Categories.GetByName(ctx, f.user.ID, "alat")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestWithinTxRollsBack(t *testing.T) {
	d, f := newFixture(t)
	tm := NewTxManager(d)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tm.WithinTx(ctx, func(s *Stores) error {
		if _, err := s.Categories.Create(ctx, f.user.ID, "Alat", ""); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := f.stores.Categories.GetByName(ctx, f.user.ID, "Alat")
	require.NoError(t, err)
	assert.Nil(t, got)
}
