package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/validation"
)

// newAdminEnv returns an env whose user is an admin registered through the
// service, so it has a real password.
func newAdminEnv(t *testing.T) (*testEnv, *domain.User) {
	t.Helper()
	env := newTestEnv(t)
	// The fixture user occupies the first slot, so promote explicitly.
	admin, err := env.users.CreateUser(context.Background(), UserInput{
		Name: "Admin", Email: "admin@example.com", Password: "rahasia123", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)
	return env, admin
}

func TestUserServiceRegister_FirstUserIsAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.stores.Users.Delete(ctx, env.user.ID))

	first, err := env.users.Register(ctx, RegisterInput{Name: "Pertama", Email: " First@Example.com ", Password: "rahasia123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, first.Role)
	assert.Equal(t, "first@example.com", first.Email)

	second, err := env.users.Register(ctx, RegisterInput{Name: "Kedua", Email: "second@example.com", Password: "rahasia123"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, second.Role)
}

func TestUserServiceRegister_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users.Register(ctx, RegisterInput{Name: "A", Email: "no-at-sign", Password: "rahasia123"})
	verrs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, "email", verrs.First().Field)

	_, err = env.users.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "short"})
	verrs, ok = validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, "password", verrs.First().Field)
}

func TestUserServiceRegister_PasswordTooLong(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	long := strings.Repeat("a", 73)

	_, err := env.users.Register(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: long})
	verrs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, "password", verrs.First().Field)
	assert.Equal(t, "Password maksimal 72 byte", verrs.First().Message)

	_, err = env.users.UpdateProfile(ctx, env.user.ID, ProfileInput{
		Name: "Owner", Email: "owner@example.com", CurrentPassword: "x", NewPassword: long,
	})
	verrs, ok = validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, "newPassword", verrs.First().Field)

	_, err = env.users.Register(ctx, RegisterInput{Name: "B", Email: "b@example.com", Password: strings.Repeat("a", 72)})
	assert.NoError(t, err)
}

func TestUserServiceRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.Register(context.Background(), RegisterInput{Name: "Dup", Email: "OWNER@example.com", Password: "rahasia123"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserServiceAuthenticate(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()

	got, err := env.users.Authenticate(ctx, "ADMIN@example.com", "rahasia123")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	_, err = env.users.Authenticate(ctx, "admin@example.com", "salah")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.users.Authenticate(ctx, "nobody@example.com", "rahasia123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUserServiceUpdateProfile_PasswordChange(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()

	_, err := env.users.UpdateProfile(ctx, admin.ID, ProfileInput{
		Name: "Admin", Email: "admin@example.com", CurrentPassword: "keliru123", NewPassword: "baru12345",
	})
	verrs, ok := validation.AsErrors(err)
	require.True(t, ok)
	assert.Equal(t, "Password saat ini salah", verrs.First().Message)

	updated, err := env.users.UpdateProfile(ctx, admin.ID, ProfileInput{
		Name: "Admin Baru", Email: "admin@example.com", CurrentPassword: "rahasia123", NewPassword: "baru12345",
	})
	require.NoError(t, err)
	assert.Equal(t, "Admin Baru", updated.Name)

	_, err = env.users.Authenticate(ctx, "admin@example.com", "baru12345")
	assert.NoError(t, err)
}

func TestUserServiceDeleteAccount(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()
	member, err := env.users.CreateUser(ctx, UserInput{Name: "M", Email: "m@example.com", Password: "rahasia123"})
	require.NoError(t, err)

	_, ok := validation.AsErrors(env.users.DeleteAccount(ctx, member.ID, "salah"))
	assert.True(t, ok)

	require.NoError(t, env.users.DeleteAccount(ctx, member.ID, "rahasia123"))
	_, err = env.users.GetUser(ctx, member.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Sole admin cannot leave.
	assert.ErrorIs(t, env.users.DeleteAccount(ctx, admin.ID, "rahasia123"), domain.ErrConflict)
}

func TestUserServiceUpdateUser_AdminGuards(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()

	_, err := env.users.UpdateUser(ctx, admin.ID, admin.ID, UserInput{Name: "Admin", Email: "admin@example.com", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrConflict)

	second, err := env.users.CreateUser(ctx, UserInput{Name: "Dua", Email: "dua@example.com", Password: "rahasia123", Role: domain.RoleAdmin})
	require.NoError(t, err)

	demoted, err := env.users.UpdateUser(ctx, admin.ID, second.ID, UserInput{Name: "Dua", Email: "dua@example.com", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, demoted.Role)

	_, err = env.users.UpdateUser(ctx, second.ID, admin.ID, UserInput{Name: "Admin", Email: "admin@example.com", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserServiceUpdateUser_ResetsPassword(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()

	_, err := env.users.UpdateUser(ctx, admin.ID, env.user.ID, UserInput{
		Name: "Owner", Email: "owner@example.com", Role: domain.RoleUser, Password: "diganti123",
	})
	require.NoError(t, err)

	_, err = env.users.Authenticate(ctx, "owner@example.com", "diganti123")
	assert.NoError(t, err)
}

func TestUserServiceDeleteUser_SweepsBlobs(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()
	l := env.locker(t, "A001", "Rak")
	require.True(t, env.blobs.has(l.QRCodeKey))

	assert.ErrorIs(t, env.users.DeleteUser(ctx, admin.ID, admin.ID), domain.ErrConflict)

	require.NoError(t, env.users.DeleteUser(ctx, admin.ID, env.user.ID))
	assert.False(t, env.blobs.has(l.QRCodeKey))
	_, err := env.lockers.GetLocker(ctx, env.user.ID, l.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserServiceDeleteUser_KeepsLastAdmin(t *testing.T) {
	env, admin := newAdminEnv(t)
	ctx := context.Background()
	second, err := env.users.CreateUser(ctx, UserInput{Name: "Dua", Email: "dua@example.com", Password: "rahasia123", Role: domain.RoleAdmin})
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteUser(ctx, admin.ID, second.ID))
	assert.ErrorIs(t, env.users.DeleteUser(ctx, env.user.ID, admin.ID), domain.ErrConflict)

	got, err := env.users.GetUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin())

	assert.ErrorIs(t, env.users.DeleteUser(ctx, admin.ID, 99999), domain.ErrNotFound)
}

func TestUserServiceSetProfilePicture(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	img := image.NewRGBA(image.Rect(0, 0, 800, 400))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	user, err := env.users.SetProfilePicture(ctx, env.user.ID, buf.Bytes())
	require.NoError(t, err)
	require.NotEmpty(t, user.ProfilePictureKey)

	rc, mime, err := env.blobs.Get(ctx, user.ProfilePictureKey)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	assert.Equal(t, "image/jpeg", mime)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Width)
	assert.Equal(t, 128, cfg.Height)

	again, err := env.users.SetProfilePicture(ctx, env.user.ID, buf.Bytes())
	require.NoError(t, err)
	assert.False(t, env.blobs.has(user.ProfilePictureKey))
	assert.True(t, env.blobs.has(again.ProfilePictureKey))
}

func TestUserServiceSetProfilePicture_InvalidImage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.SetProfilePicture(context.Background(), env.user.ID, []byte("not an image"))
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}
