package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/lockerinv/internal/domain"
)

func TestUserStoreCreateAndGet(t *testing.T) {
	users := NewUserStore(openTestDB(t))
	ctx := context.Background()

	u, err := users.Create(ctx, "ana@example.com", "Ana", "hash", domain.RoleAdmin)
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Ana", u.Name)
	assert.True(t, u.IsAdmin())

	byEmail, err := users.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := users.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserStoreDuplicateEmail(t *testing.T) {
	users := NewUserStore(openTestDB(t))
	ctx := context.Background()

	_, err := users.Create(ctx, "ana@example.com", "Ana", "hash", domain.RoleUser)
	require.NoError(t, err)

	_, err = users.Create(ctx, "Ana@Example.com", "Other", "hash", domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserStoreCounts(t *testing.T) {
	users := NewUserStore(openTestDB(t))
	ctx := context.Background()

	_, err := users.Create(ctx, "a@example.com", "A", "h", domain.RoleAdmin)
	require.NoError(t, err)
	_, err = users.Create(ctx, "b@example.com", "B", "h", domain.RoleUser)
	require.NoError(t, err)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	admins, err := users.CountByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, admins)

	list, err := users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Name)
}

func TestUserStoreUpdate(t *testing.T) {
	users := NewUserStore(openTestDB(t))
	ctx := context.Background()

	u, err := users.Create(ctx, "a@example.com", "A", "h", domain.RoleUser)
	require.NoError(t, err)

	require.NoError(t, users.Update(ctx, u.ID, "new@example.com", "New", domain.RoleAdmin))
	require.NoError(t, users.UpdatePassword(ctx, u.ID, "h2"))
	require.NoError(t, users.UpdateProfilePicture(ctx, u.ID, "avatar/x.jpg"))

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, domain.RoleAdmin, got.Role)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Equal(t, "avatar/x.jpg", got.ProfilePictureKey)

	assert.ErrorIs(t, users.Update(ctx, 999, "x@example.com", "X", domain.RoleUser), domain.ErrNotFound)
}

func TestUserStoreDeleteCascades(t *testing.T) {
	d, f := newFixture(t)
	ctx := context.Background()
	f.addItem(t, "Laptop", 1)
	require.NoError(t, f.stores.Lockers.SetQRCodeKey(ctx, f.user.ID, f.locker.ID, "qr_1.png"))
	_, err := f.stores.Photos.Create(ctx, f.locker.ID, "locker_1/p.jpg", "image/jpeg")
	require.NoError(t, err)
	require.NoError(t, f.stores.Users.UpdateProfilePicture(ctx, f.user.ID, "avatar.jpg"))

	keys, err := f.stores.Users.BlobKeys(ctx, f.user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"avatar.jpg", "qr_1.png", "locker_1/p.jpg"}, keys)

	require.NoError(t, f.stores.Users.Delete(ctx, f.user.ID))

	for _, table := range []string{"items", "lockers", "categories", "photos"} {
		var n int
		require.NoError(t, d.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}
