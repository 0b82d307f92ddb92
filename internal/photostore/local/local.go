// Package local stores blobs as flat files under one directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/lockerinv/internal/photostore"
)

// tempPattern names in-flight uploads. The leading dot keeps them out of the
// key space, since keys must start with a letter or digit.
const tempPattern = ".upload-*"

type LocalPhotoStore struct {
	basePath string
}

func NewLocalPhotoStore(basePath string) (*LocalPhotoStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base path: %w", err)
	}
	return &LocalPhotoStore{basePath: absBase}, nil
}

// Save streams r into a temp file and renames it into place, so a key never
// names a partially written blob.
func (s *LocalPhotoStore) Save(ctx context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := photostore.NewKey(prefix, mimeType)
	finalPath, err := s.safeJoin(key)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.basePath, tempPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		if cerr := tmp.Close(); cerr != nil {
			slog.Error("failed to close temp file after write error", "error", cerr)
		}
		discard(tmpPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		discard(tmpPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		discard(tmpPath)
		return "", fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		discard(tmpPath)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return key, nil
}

func discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to remove partial file", "path", path, "error", err)
	}
}

func (s *LocalPhotoStore) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	filePath, err := s.safeJoin(storageKey)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%s: %w", storageKey, photostore.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, photostore.MimeForKey(storageKey), nil
}

func (s *LocalPhotoStore) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath, err := s.safeJoin(storageKey)
	if err != nil {
		return err
	}

	err = os.Remove(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", storageKey, photostore.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// safeJoin maps a key to its file, rejecting anything that could escape the
// base directory.
func (s *LocalPhotoStore) safeJoin(storageKey string) (string, error) {
	if !photostore.ValidKey(storageKey) {
		return "", fmt.Errorf("%q: %w", storageKey, photostore.ErrInvalidKey)
	}
	path := filepath.Join(s.basePath, storageKey)
	if filepath.Dir(path) != s.basePath || !strings.HasPrefix(path, s.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", storageKey, photostore.ErrInvalidKey)
	}
	return path, nil
}
