package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/lockerinv/internal/photostore"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestLocalPhotoStoreSaveAndGet(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	data := []byte("fake png data")

	key, err := store.Save(ctx, "qr", "image/png", bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "qr_"))

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "image/png", mimeType)

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalPhotoStoreDelete(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, err := store.Save(ctx, "locker_1", "image/jpeg", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, photostore.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), photostore.ErrNotFound)
}

func TestLocalPhotoStoreWriteFailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalPhotoStore(dir)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "p", "image/jpeg", failingReader{})
	assert.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalPhotoStorePathTraversal(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = store.Get(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, photostore.ErrInvalidKey)
	assert.ErrorIs(t, store.Delete(ctx, "../x.jpg"), photostore.ErrInvalidKey)
}

func TestLocalPhotoStoreSaveLeavesOnlyTheKey(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalPhotoStore(dir)
	require.NoError(t, err)

	key, err := store.Save(context.Background(), "avatar", "image/jpeg", bytes.NewReader([]byte("jpeg")))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, key, entries[0].Name())
}

func TestLocalPhotoStoreCancelledContext(t *testing.T) {
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, "p", "image/png", bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, context.Canceled)
	_, _, err = store.Get(ctx, "p_1.png")
	assert.ErrorIs(t, err, context.Canceled)
}
