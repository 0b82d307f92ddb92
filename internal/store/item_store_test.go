package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/lockerinv/internal/domain"
)

func TestItemStoreCreate(t *testing.T) {
	_, f := newFixture(t)

	item := f.addItem(t, "Laptop", 2)
	assert.NotZero(t, item.ID)
	assert.Equal(t, "Laptop", item.Name)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "Elektronik", item.CategoryName)
	assert.Equal(t, "A001", item.LockerCode)
	assert.Equal(t, "Rak Depan", item.LockerName)
}

func TestItemStoreRejectsNegativeQuantity(t *testing.T) {
	_, f := newFixture(t)

	_, err := f.stores.Items.Create(context.Background(), &domain.Item{
		UserID: f.user.ID, Name: "X", Quantity: -1, CategoryID: f.category.ID, LockerID: f.locker.ID,
	})
	assert.Error(t, err)
}

func TestItemStoreListFilters(t *testing.T) {
	_, f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Mouse", 1)
	f.addItem(t, "keyboard", 1)

	other, err := f.stores.Lockers.Create(ctx, f.user.ID, "A002", "Lain", "")
	require.NoError(t, err)
	_, err = f.stores.Items.Create(ctx, &domain.Item{
		UserID: f.user.ID, Name: "Kabel", Quantity: 5, CategoryID: f.category.ID, LockerID: other.ID,
	})
	require.NoError(t, err)

	all, err := f.stores.Items.List(ctx, f.user.ID, domain.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Alphabetical regardless of case.
	assert.Equal(t, "Kabel", all[0].Name)
	assert.Equal(t, "keyboard", all[1].Name)

	inLocker, err := f.stores.Items.List(ctx, f.user.ID, domain.ItemFilter{LockerID: other.ID})
	require.NoError(t, err)
	assert.Len(t, inLocker, 1)

	byQuery, err := f.stores.Items.List(ctx, f.user.ID, domain.ItemFilter{Query: "MOU"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, "Mouse", byQuery[0].Name)
}

func TestItemStoreSearch(t *testing.T) {
	_, f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Laptop Kerja", 1)
	f.addItem(t, "Laptop Lama", 1)
	f.addItem(t, "Obeng", 1)

	results, err := f.stores.Items.Search(ctx, f.user.ID, "laptop")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Category name and locker code match too.
	results, err = f.stores.Items.Search(ctx, f.user.ID, "a001")
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = f.stores.Items.Search(ctx, f.user.ID, "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestItemStoreSearch_OtherUser(t *testing.T) {
	_, f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Laptop", 1)
	other, err := f.stores.Users.Create(ctx, "other@example.com", "Other", "h", domain.RoleUser)
	require.NoError(t, err)

	results, err := f.stores.Items.Search(ctx, other.ID, "Laptop")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestItemStoreFindByKeyAndAddQuantity(t *testing.T) {
	_, f := newFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "Baterai", 2)

	found, err := f.stores.Items.FindByKey(ctx, f.user.ID, "BATERAI", f.category.ID, f.locker.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, item.ID, found.ID)

	require.NoError(t, f.stores.Items.AddQuantity(ctx, f.user.ID, item.ID, 3))
	got, err := f.stores.Items.GetByID(ctx, f.user.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	none, err := f.stores.Items.FindByKey(ctx, f.user.ID, "Baterai", f.category.ID, 999)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestItemStoreUpdate(t *testing.T) {
	_, f := newFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "Laptop", 1)

	item.Name = "Laptop Baru"
	item.Quantity = 0
	item.Description = "rusak"
	require.NoError(t, f.stores.Items.Update(ctx, item))

	updated, err := f.stores.Items.GetByID(ctx, f.user.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop Baru", updated.Name)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, "rusak", updated.Description)
}

func TestItemStoreUpdate_NotFound(t *testing.T) {
	_, f := newFixture(t)

	err := f.stores.Items.Update(context.Background(), &domain.Item{
		ID: 99999, UserID: f.user.ID, Name: "X", CategoryID: f.category.ID, LockerID: f.locker.ID,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestItemStoreCountsAndMoves(t *testing.T) {
	_, f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Laptop", 2)
	f.addItem(t, "Mouse", 3)

	category, err := f.stores.Categories.GetByID(ctx, f.user.ID, f.category.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, category.ItemCount)
	assert.Equal(t, 5, category.TotalQuantity)

	target, err := f.stores.Categories.Create(ctx, f.user.ID, "Lain", "")
	require.NoError(t, err)
	require.NoError(t, f.stores.Items.MoveCategory(ctx, f.user.ID, f.category.ID, target.ID))

	target, err = f.stores.Categories.GetByID(ctx, f.user.ID, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, target.ItemCount)

	locker2, err := f.stores.Lockers.Create(ctx, f.user.ID, "A002", "Dua", "")
	require.NoError(t, err)
	require.NoError(t, f.stores.Items.MoveLocker(ctx, f.user.ID, f.locker.ID, locker2.ID))
	locker2, err = f.stores.Lockers.GetByID(ctx, f.user.ID, locker2.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, locker2.ItemCount)
	assert.Equal(t, 5, locker2.TotalQuantity)
}

func TestItemStoreDelete(t *testing.T) {
	_, f := newFixture(t)
	ctx := context.Background()
	item := f.addItem(t, "Laptop", 1)

	require.NoError(t, f.stores.Items.Delete(ctx, f.user.ID, item.ID))

	deleted, err := f.stores.Items.GetByID(ctx, f.user.ID, item.ID)
	require.NoError(t, err)
	assert.Nil(t, deleted)

	assert.ErrorIs(t, f.stores.Items.Delete(ctx, f.user.ID, item.ID), domain.ErrNotFound)
}

func TestItemStoreDeleteAllByUserAndRecent(t *testing.T) {
	_, f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "A", 1)
	f.addItem(t, "B", 1)
	last := f.addItem(t, "C", 1)

	recent, err := f.stores.Items.Recent(ctx, f.user.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, last.ID, recent[0].ID)

	n, err := f.stores.Items.DeleteAllByUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
