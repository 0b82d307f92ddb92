package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors, wrapped with context by the store and service layers and
// compared with errors.Is at the HTTP boundary.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrVisionDisabled     = errors.New("vision analysis is disabled")
	ErrInvalidImage       = errors.New("invalid image")
	ErrNoQRCode           = errors.New("no qr code found")
	ErrRateLimited        = errors.New("too many attempts")
)

// HasItemsError is returned when a category or locker still holds items and
// the caller did not say whether to move or delete them.
type HasItemsError struct {
	Kind          string
	ItemCount     int
	TotalQuantity int
}

func (e *HasItemsError) Error() string {
	return fmt.Sprintf("%s still has %d items (total quantity %d)", e.Kind, e.ItemCount, e.TotalQuantity)
}

// ConflictError carries a user-facing message for a uniqueness violation.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrConflict }

func NewConflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
