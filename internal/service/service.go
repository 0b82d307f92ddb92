// Package service holds the inventory business rules. Services validate input,
// scope every operation to the acting user and coordinate the SQL stores with
// blob storage.
package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/photostore"
	"github.com/vbonduro/lockerinv/internal/qr"
	"github.com/vbonduro/lockerinv/internal/store"
	"github.com/vbonduro/lockerinv/internal/validation"
)

const (
	// FallbackCategoryName receives items whose category cannot be resolved.
	FallbackCategoryName = "Tanpa Kategori"
	// FallbackLockerName is given to the locker created for imported items
	// whose locker cannot be resolved.
	FallbackLockerName = "Loker Impor"

	maxNameLength        = 100
	maxItemNameLength    = 200
	maxDescriptionLength = 1000
	// maxQuantity bounds a single item's quantity, merged totals included.
	maxQuantity = 1_000_000_000

	codeLetters = 26
	codeNumbers = 1000
)

// transactor runs fn against stores bound to a single transaction.
type transactor interface {
	WithinTx(ctx context.Context, fn func(*store.Stores) error) error
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// normalizeCode trims and uppercases a locker code.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateCode(v *validation.Validator, code string) {
	v.Matches("code", code, qr.CodePattern, "Kode loker harus 1 huruf diikuti 3 angka, contoh A001")
}

// nextFreeCode picks an unused locker code: a handful of random draws first,
// then an ordered scan so a nearly full code space still finds a gap. The
// chosen code is marked as used.
func nextFreeCode(used map[string]bool, intn func(int) int) (string, error) {
	code := func(n int) string {
		return fmt.Sprintf("%c%03d", 'A'+rune(n/codeNumbers), n%codeNumbers)
	}
	total := codeLetters * codeNumbers

	for i := 0; i < 32; i++ {
		c := code(intn(total))
		if !used[c] {
			used[c] = true
			return c, nil
		}
	}
	for n := 0; n < total; n++ {
		c := code(n)
		if !used[c] {
			used[c] = true
			return c, nil
		}
	}
	return "", domain.NewConflict("Semua kode loker sudah digunakan")
}

func randomIntn(n int) int {
	return rand.IntN(n)
}

// blobSweeper removes stored blobs after the rows referencing them are gone.
// Failures are logged; an orphaned blob is harmless.
type blobSweeper struct {
	blobs  photostore.PhotoStore
	logger *slog.Logger
}

func (b blobSweeper) sweep(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := b.blobs.Delete(ctx, key); err != nil {
			b.logger.Warn("failed to delete blob", "storage_key", key, "error", err)
		}
	}
}

// qrAttacher renders and stores a locker's QR image.
type qrAttacher struct {
	blobSweeper
	encoder *qr.Encoder
}

func (q qrAttacher) attach(ctx context.Context, lockers *store.LockerStore, locker *domain.Locker) error {
	png, err := q.encoder.PNG(locker.Code)
	if err != nil {
		return err
	}
	key, err := q.blobs.Save(ctx, "qr", "image/png", bytes.NewReader(png))
	if err != nil {
		return fmt.Errorf("failed to store qr image: %w", err)
	}
	if err := lockers.SetQRCodeKey(ctx, locker.UserID, locker.ID, key); err != nil {
		q.sweep(ctx, key)
		return fmt.Errorf("failed to record qr image: %w", err)
	}

	old := locker.QRCodeKey
	locker.QRCodeKey = key
	q.sweep(ctx, old)
	return nil
}
