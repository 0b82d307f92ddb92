package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/photostore"
	"github.com/vbonduro/lockerinv/internal/qr"
	"github.com/vbonduro/lockerinv/internal/store"
	"github.com/vbonduro/lockerinv/internal/validation"
	"github.com/vbonduro/lockerinv/internal/vision"
)

type LockerInput struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LockerService struct {
	stores    *store.Stores
	tx        transactor
	visionAPI vision.VisionAnalyzer
	qr        qrAttacher
	logger    *slog.Logger
	intn      func(int) int
}

// NewLockerService wires the locker operations. visionAPI may be nil, which
// disables photo analysis.
func NewLockerService(
	stores *store.Stores,
	tx transactor,
	photoStg photostore.PhotoStore,
	encoder *qr.Encoder,
	visionAPI vision.VisionAnalyzer,
	logger *slog.Logger,
) *LockerService {
	return &LockerService{
		stores:    stores,
		tx:        tx,
		visionAPI: visionAPI,
		qr:        qrAttacher{blobSweeper: blobSweeper{blobs: photoStg, logger: logger}, encoder: encoder},
		logger:    logger,
		intn:      randomIntn,
	}
}

func (s *LockerService) validate(in *LockerInput) error {
	in.Code = normalizeCode(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	v := validation.NewValidator()
	if in.Code != "" {
		validateCode(v, in.Code)
	}
	v.Required("name", in.Name, "Nama loker wajib diisi").
		MaxLength("name", in.Name, maxNameLength).
		MaxLength("description", in.Description, maxDescriptionLength)
	return v.Err()
}

func (s *LockerService) ListLockers(ctx context.Context, userID int64) ([]*domain.Locker, error) {
	return s.stores.Lockers.List(ctx, userID)
}

func (s *LockerService) GetLocker(ctx context.Context, userID, lockerID int64) (*domain.Locker, error) {
	locker, err := s.stores.Lockers.GetByID(ctx, userID, lockerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get locker: %w", err)
	}
	if locker == nil {
		return nil, fmt.Errorf("locker %d: %w", lockerID, domain.ErrNotFound)
	}
	return locker, nil
}

// GetLockerWithItems returns the locker and its items ordered by name.
func (s *LockerService) GetLockerWithItems(ctx context.Context, userID, lockerID int64) (*domain.Locker, []*domain.Item, error) {
	locker, err := s.GetLocker(ctx, userID, lockerID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.stores.Items.List(ctx, userID, domain.ItemFilter{LockerID: lockerID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list items: %w", err)
	}
	return locker, items, nil
}

// GetLockerByCode resolves a scanned or typed code.
func (s *LockerService) GetLockerByCode(ctx context.Context, userID int64, code string) (*domain.Locker, error) {
	code = normalizeCode(code)
	locker, err := s.stores.Lockers.GetByCode(ctx, userID, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get locker by code: %w", err)
	}
	if locker == nil {
		return nil, fmt.Errorf("locker %s: %w", code, domain.ErrNotFound)
	}
	return locker, nil
}

func (s *LockerService) GenerateCode(ctx context.Context, userID int64) (string, error) {
	used, err := s.stores.Lockers.Codes(ctx, userID)
	if err != nil {
		return "", err
	}
	return nextFreeCode(used, s.intn)
}

func (s *LockerService) CreateLocker(ctx context.Context, userID int64, in LockerInput) (*domain.Locker, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	if in.Code == "" {
		code, err := s.GenerateCode(ctx, userID)
		if err != nil {
			return nil, err
		}
		in.Code = code
	}

	locker, err := s.stores.Lockers.Create(ctx, userID, in.Code, in.Name, in.Description)
	if err != nil {
		return nil, err
	}
	// The QR image is regenerated on demand if this fails.
	if err := s.qr.attach(ctx, s.stores.Lockers, locker); err != nil {
		s.logger.Warn("failed to attach qr image", "locker_id", locker.ID, "error", err)
	}
	s.logger.Info("locker created", "user_id", userID, "locker_id", locker.ID, "code", locker.Code)
	return locker, nil
}

func (s *LockerService) UpdateLocker(ctx context.Context, userID, lockerID int64, in LockerInput) (*domain.Locker, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	existing, err := s.GetLocker(ctx, userID, lockerID)
	if err != nil {
		return nil, err
	}
	if in.Code == "" {
		in.Code = existing.Code
	}

	if err := s.stores.Lockers.Update(ctx, userID, lockerID, in.Code, in.Name, in.Description); err != nil {
		return nil, fmt.Errorf("failed to update locker: %w", err)
	}
	locker, err := s.GetLocker(ctx, userID, lockerID)
	if err != nil {
		return nil, err
	}
	if locker.Code != existing.Code || locker.QRCodeKey == "" {
		if err := s.qr.attach(ctx, s.stores.Lockers, locker); err != nil {
			s.logger.Warn("failed to regenerate qr image", "locker_id", locker.ID, "error", err)
		}
	}
	return locker, nil
}

// DeleteLocker removes a locker. Remaining items are moved or deleted per
// opts; without an action a non-empty locker yields *domain.HasItemsError.
func (s *LockerService) DeleteLocker(ctx context.Context, userID, lockerID int64, opts domain.DeleteOptions) error {
	var blobKeys []string
	err := s.tx.WithinTx(ctx, func(st *store.Stores) error {
		locker, err := st.Lockers.GetByID(ctx, userID, lockerID)
		if err != nil {
			return fmt.Errorf("failed to get locker: %w", err)
		}
		if locker == nil {
			return fmt.Errorf("locker %d: %w", lockerID, domain.ErrNotFound)
		}

		if locker.ItemCount > 0 {
			switch opts.Action {
			case domain.DeleteActionMove:
				if opts.TargetID == lockerID {
					return validation.New("targetId", "Loker tujuan tidak boleh sama dengan loker yang dihapus")
				}
				target, err := st.Lockers.GetByID(ctx, userID, opts.TargetID)
				if err != nil {
					return fmt.Errorf("failed to get target locker: %w", err)
				}
				if target == nil {
					return validation.New("targetId", "Loker tujuan tidak ditemukan")
				}
				if err := st.Items.MoveLocker(ctx, userID, lockerID, target.ID); err != nil {
					return err
				}
			case domain.DeleteActionDelete:
				if err := st.Items.DeleteByLocker(ctx, userID, lockerID); err != nil {
					return err
				}
			default:
				return &domain.HasItemsError{Kind: "locker", ItemCount: locker.ItemCount, TotalQuantity: locker.TotalQuantity}
			}
		}

		photos, err := st.Photos.DeleteByLocker(ctx, lockerID)
		if err != nil {
			return err
		}
		for _, p := range photos {
			blobKeys = append(blobKeys, p.StorageKey)
		}
		blobKeys = append(blobKeys, locker.QRCodeKey)
		return st.Lockers.Delete(ctx, userID, lockerID)
	})
	if err != nil {
		return err
	}

	s.qr.sweep(ctx, blobKeys...)
	s.logger.Info("locker deleted", "user_id", userID, "locker_id", lockerID, "action", string(opts.Action))
	return nil
}

// QRImage returns the locker's QR PNG, regenerating it when the stored image
// is missing.
func (s *LockerService) QRImage(ctx context.Context, userID, lockerID int64) ([]byte, error) {
	locker, err := s.GetLocker(ctx, userID, lockerID)
	if err != nil {
		return nil, err
	}

	if locker.QRCodeKey != "" {
		rc, _, err := s.qr.blobs.Get(ctx, locker.QRCodeKey)
		if err == nil {
			defer closeWithLog(rc, "qr image", s.logger)
			data, err := io.ReadAll(rc)
			if err != nil {
				return nil, fmt.Errorf("failed to read qr image: %w", err)
			}
			return data, nil
		}
		if !errors.Is(err, photostore.ErrNotFound) {
			return nil, fmt.Errorf("failed to load qr image: %w", err)
		}
		s.logger.Warn("qr image missing, regenerating", "locker_id", locker.ID)
	}

	if err := s.qr.attach(ctx, s.stores.Lockers, locker); err != nil {
		return nil, err
	}
	return s.qr.encoder.PNG(locker.Code)
}

// ScanLocker decodes a QR code from a photo and returns the locker it names.
func (s *LockerService) ScanLocker(ctx context.Context, userID int64, image []byte) (*domain.Locker, error) {
	code, err := qr.DecodeCode(image)
	switch {
	case errors.Is(err, qr.ErrNoCode):
		return nil, fmt.Errorf("scan: %w", domain.ErrNoQRCode)
	case errors.Is(err, qr.ErrInvalidCode):
		return nil, validation.New("image", "QR code tidak berisi kode loker yang valid")
	case err != nil:
		return nil, fmt.Errorf("scan: %w: %v", domain.ErrInvalidImage, err)
	}
	return s.GetLockerByCode(ctx, userID, code)
}

// UploadPhoto analyzes a photo of the locker's contents, stores it as the
// locker's current photo and adds the detected items under the fallback
// category. A failed analysis leaves the previous photo and items untouched.
func (s *LockerService) UploadPhoto(ctx context.Context, userID, lockerID int64, imageData []byte, mimeType string) (*domain.Photo, []*domain.Item, error) {
	if s.visionAPI == nil {
		return nil, nil, domain.ErrVisionDisabled
	}
	s.logger.Info("upload photo started", "locker_id", lockerID, "mime_type", mimeType, "bytes", len(imageData))

	if _, err := s.GetLocker(ctx, userID, lockerID); err != nil {
		return nil, nil, err
	}

	s.logger.Info("vision analysis started", "locker_id", lockerID)
	result, err := s.visionAPI.Analyze(ctx, bytes.NewReader(imageData), mimeType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to analyze image: %w", err)
	}
	s.logger.Info("vision analysis complete", "locker_id", lockerID, "items_detected", len(result.Items))

	storageKey, err := s.qr.blobs.Save(ctx, fmt.Sprintf("locker_%d", lockerID), mimeType, bytes.NewReader(imageData))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save photo: %w", err)
	}

	var (
		photo   *domain.Photo
		items   []*domain.Item
		oldKeys []string
	)
	err = s.tx.WithinTx(ctx, func(st *store.Stores) error {
		old, err := st.Photos.DeleteByLocker(ctx, lockerID)
		if err != nil {
			return err
		}
		for _, p := range old {
			oldKeys = append(oldKeys, p.StorageKey)
		}

		photo, err = st.Photos.Create(ctx, lockerID, storageKey, mimeType)
		if err != nil {
			return err
		}

		category, _, err := ensureCategory(ctx, st, userID, FallbackCategoryName)
		if err != nil {
			return err
		}
		for _, detected := range result.Items {
			name := truncateRunes(strings.TrimSpace(detected.Name), maxItemNameLength)
			if name == "" {
				continue
			}
			item, _, err := addOrMergeItem(ctx, st, &domain.Item{
				UserID:      userID,
				Name:        name,
				Quantity:    min(detected.Count(), maxQuantity),
				Description: detected.Notes,
				CategoryID:  category.ID,
				LockerID:    lockerID,
			})
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		s.qr.sweep(ctx, storageKey)
		return nil, nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	s.qr.sweep(ctx, oldKeys...)
	s.logger.Info("upload photo complete", "locker_id", lockerID, "items_stored", len(items))
	return photo, items, nil
}

// GetPhoto opens the locker's latest photo. The caller closes the reader.
func (s *LockerService) GetPhoto(ctx context.Context, userID, lockerID int64) (*domain.Photo, io.ReadCloser, error) {
	if _, err := s.GetLocker(ctx, userID, lockerID); err != nil {
		return nil, nil, err
	}
	photo, err := s.stores.Photos.GetLatestByLockerID(ctx, lockerID)
	if err != nil {
		return nil, nil, err
	}
	if photo == nil {
		return nil, nil, fmt.Errorf("photo for locker %d: %w", lockerID, domain.ErrNotFound)
	}

	rc, _, err := s.qr.blobs.Get(ctx, photo.StorageKey)
	if errors.Is(err, photostore.ErrNotFound) {
		return nil, nil, fmt.Errorf("photo blob: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open photo: %w", err)
	}
	return photo, rc, nil
}

// DeletePhoto removes the locker's photos. Items detected from them stay.
func (s *LockerService) DeletePhoto(ctx context.Context, userID, lockerID int64) error {
	if _, err := s.GetLocker(ctx, userID, lockerID); err != nil {
		return err
	}
	photos, err := s.stores.Photos.DeleteByLocker(ctx, lockerID)
	if err != nil {
		return fmt.Errorf("failed to delete photo record: %w", err)
	}
	if len(photos) == 0 {
		return fmt.Errorf("photo for locker %d: %w", lockerID, domain.ErrNotFound)
	}
	for _, p := range photos {
		s.qr.sweep(ctx, p.StorageKey)
	}
	return nil
}

// ensureCategory returns the user's category with name, creating it when
// absent. The bool reports whether it was created.
func ensureCategory(ctx context.Context, st *store.Stores, userID int64, name string) (*domain.Category, bool, error) {
	existing, err := st.Categories.GetByName(ctx, userID, name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	created, err := st.Categories.Create(ctx, userID, name, "")
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// addOrMergeItem increases the quantity of an item with the same name in the
// same category and locker, or creates a new one. The bool reports a merge.
func addOrMergeItem(ctx context.Context, st *store.Stores, item *domain.Item) (*domain.Item, bool, error) {
	existing, err := st.Items.FindByKey(ctx, item.UserID, item.Name, item.CategoryID, item.LockerID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		created, err := st.Items.Create(ctx, item)
		return created, false, err
	}

	if item.Quantity > maxQuantity-existing.Quantity {
		return nil, false, validation.New("quantity",
			fmt.Sprintf("Jumlah %s melebihi batas %d", existing.Name, maxQuantity))
	}
	if err := st.Items.AddQuantity(ctx, item.UserID, existing.ID, item.Quantity); err != nil {
		return nil, false, err
	}
	merged, err := st.Items.GetByID(ctx, item.UserID, existing.ID)
	return merged, true, err
}

func closeWithLog(c io.Closer, what string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close "+what, "error", err)
	}
}
