package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"log/slog"
	"strings"

	"github.com/nfnt/resize"

	"github.com/vbonduro/lockerinv/internal/auth"
	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/photostore"
	"github.com/vbonduro/lockerinv/internal/store"
	"github.com/vbonduro/lockerinv/internal/validation"
)

const (
	avatarSize        = 256
	avatarJPEGQuality = 85
)

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UserInput is the admin payload. Password is optional on update.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserService struct {
	stores *store.Stores
	tx     transactor
	blobs  blobSweeper
	logger *slog.Logger
}

func NewUserService(stores *store.Stores, tx transactor, photoStg photostore.PhotoStore, logger *slog.Logger) *UserService {
	return &UserService{
		stores: stores,
		tx:     tx,
		blobs:  blobSweeper{blobs: photoStg, logger: logger},
		logger: logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateIdentity(v *validation.Validator, name, email string) {
	v.Required("name", name, "Nama wajib diisi").
		MaxLength("name", name, maxNameLength).
		Required("email", email, "Email wajib diisi")
	if email != "" {
		v.Email("email", email)
	}
}

func validatePassword(v *validation.Validator, field, password string) {
	v.Check(len(password) >= auth.MinPasswordLength, field,
		fmt.Sprintf("Password minimal %d karakter", auth.MinPasswordLength))
	v.Check(len(password) <= auth.MaxPasswordLength, field,
		fmt.Sprintf("Password maksimal %d byte", auth.MaxPasswordLength))
}

// Register creates an account. The first account on a fresh install becomes
// an admin.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	v := validation.NewValidator()
	validateIdentity(v, in.Name, in.Email)
	validatePassword(v, "password", in.Password)
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.tx.WithinTx(ctx, func(st *store.Stores) error {
		n, err := st.Users.Count(ctx)
		if err != nil {
			return err
		}
		role := domain.RoleUser
		if n == 0 {
			role = domain.RoleAdmin
		}
		user, err = st.Users.Create(ctx, in.Email, in.Name, hash, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.stores.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	v := validation.NewValidator()
	validateIdentity(v, in.Name, in.Email)
	if in.NewPassword != "" {
		v.Required("currentPassword", in.CurrentPassword, "Password saat ini wajib diisi untuk mengganti password")
		validatePassword(v, "newPassword", in.NewPassword)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.NewPassword != "" && !auth.CheckPassword(user.PasswordHash, in.CurrentPassword) {
		return nil, validation.New("currentPassword", "Password saat ini salah")
	}

	err = s.tx.WithinTx(ctx, func(st *store.Stores) error {
		if err := st.Users.Update(ctx, userID, in.Email, in.Name, user.Role); err != nil {
			return err
		}
		if in.NewPassword == "" {
			return nil
		}
		hash, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			return err
		}
		return st.Users.UpdatePassword(ctx, userID, hash)
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

// DeleteAccount removes the caller's own account after confirming the
// password.
func (s *UserService) DeleteAccount(ctx context.Context, userID int64, password string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return validation.New("password", "Password salah")
	}
	return s.deleteUser(ctx, userID)
}

// SetProfilePicture downscales the image to fit the avatar box, stores it as
// JPEG and drops the previous picture.
func (s *UserService) SetProfilePicture(ctx context.Context, userID int64, data []byte) (*domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode profile picture: %w: %v", domain.ErrInvalidImage, err)
	}
	thumb := resize.Thumbnail(avatarSize, avatarSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: avatarJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode profile picture: %w", err)
	}

	key, err := s.blobs.blobs.Save(ctx, "avatar", "image/jpeg", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to store profile picture: %w", err)
	}
	if err := s.stores.Users.UpdateProfilePicture(ctx, userID, key); err != nil {
		s.blobs.sweep(ctx, key)
		return nil, err
	}
	s.blobs.sweep(ctx, user.ProfilePictureKey)
	return s.GetUser(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.stores.Users.List(ctx)
}

func (s *UserService) CreateUser(ctx context.Context, in UserInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	v := validation.NewValidator()
	validateIdentity(v, in.Name, in.Email)
	validatePassword(v, "password", in.Password)
	v.OneOf("role", in.Role, domain.RoleUser, domain.RoleAdmin)
	if err := v.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.stores.Users.Create(ctx, in.Email, in.Name, hash, in.Role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created by admin", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// UpdateUser applies an admin edit. actorID is the admin making the change;
// they cannot demote themselves and the last admin cannot be demoted.
func (s *UserService) UpdateUser(ctx context.Context, actorID, userID int64, in UserInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	v := validation.NewValidator()
	validateIdentity(v, in.Name, in.Email)
	v.OneOf("role", in.Role, domain.RoleUser, domain.RoleAdmin)
	if in.Password != "" {
		validatePassword(v, "password", in.Password)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(st *store.Stores) error {
		existing, err := st.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		if existing.IsAdmin() && in.Role != domain.RoleAdmin {
			if userID == actorID {
				return domain.NewConflict("Anda tidak dapat menurunkan peran akun Anda sendiri")
			}
			if err := s.ensureAnotherAdmin(ctx, st); err != nil {
				return err
			}
		}

		if err := st.Users.Update(ctx, userID, in.Email, in.Name, in.Role); err != nil {
			return err
		}
		if in.Password == "" {
			return nil
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return err
		}
		return st.Users.UpdatePassword(ctx, userID, hash)
	})
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}

func (s *UserService) DeleteUser(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return domain.NewConflict("Anda tidak dapat menghapus akun Anda sendiri dari sini")
	}
	return s.deleteUser(ctx, userID)
}

func (s *UserService) ensureAnotherAdmin(ctx context.Context, st *store.Stores) error {
	n, err := st.Users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return domain.NewConflict("Harus ada minimal satu admin")
	}
	return nil
}

// deleteUser removes the row (data cascades) and then the user's blobs. The
// last-admin check and the delete share one transaction.
func (s *UserService) deleteUser(ctx context.Context, userID int64) error {
	var keys []string
	err := s.tx.WithinTx(ctx, func(st *store.Stores) error {
		user, err := st.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
		}
		if user.IsAdmin() {
			if err := s.ensureAnotherAdmin(ctx, st); err != nil {
				return err
			}
		}
		keys, err = st.Users.BlobKeys(ctx, userID)
		if err != nil {
			return err
		}
		return st.Users.Delete(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.blobs.sweep(ctx, keys...)
	s.logger.Info("user deleted", "user_id", userID, "blobs", len(keys))
	return nil
}
