package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/lockerinv/internal/domain"
)

type PhotoStore struct {
	db querier
}

func NewPhotoStore(db querier) *PhotoStore {
	return &PhotoStore{db: db}
}

func (s *PhotoStore) Create(ctx context.Context, lockerID int64, storageKey, mimeType string) (*domain.Photo, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (locker_id, storage_key, mime_type) VALUES (?, ?, ?)
	`, lockerID, storageKey, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to create photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *PhotoStore) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	photo := &domain.Photo{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, locker_id, storage_key, mime_type, uploaded_at FROM photos WHERE id = ?
	`, id).Scan(&photo.ID, &photo.LockerID, &photo.StorageKey, &photo.MimeType, &photo.UploadedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	return photo, nil
}

// GetLatestByLockerID returns the newest photo, or nil when the locker has none.
func (s *PhotoStore) GetLatestByLockerID(ctx context.Context, lockerID int64) (*domain.Photo, error) {
	photo := &domain.Photo{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, locker_id, storage_key, mime_type, uploaded_at FROM photos
		WHERE locker_id = ? ORDER BY uploaded_at DESC, id DESC LIMIT 1
	`, lockerID).Scan(&photo.ID, &photo.LockerID, &photo.StorageKey, &photo.MimeType, &photo.UploadedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest photo: %w", err)
	}

	return photo, nil
}

// DeleteByLocker removes every photo of the locker and returns the removed
// rows so their blobs can be cleaned up.
func (s *PhotoStore) DeleteByLocker(ctx context.Context, lockerID int64) ([]*domain.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, locker_id, storage_key, mime_type, uploaded_at FROM photos WHERE locker_id = ?
	`, lockerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos for locker: %w", err)
	}

	var photos []*domain.Photo
	for rows.Next() {
		p := &domain.Photo{}
		if err := rows.Scan(&p.ID, &p.LockerID, &p.StorageKey, &p.MimeType, &p.UploadedAt); err != nil {
			closeRows(rows)
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	err = rows.Err()
	closeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE locker_id = ?`, lockerID); err != nil {
		return nil, fmt.Errorf("failed to delete photos for locker: %w", err)
	}

	return photos, nil
}

func (s *PhotoStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return requireAffected(result, "photo")
}
