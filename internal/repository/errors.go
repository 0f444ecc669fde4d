// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to act on a resource owned by someone else, while
// ErrConflict signals that an operation cannot proceed because of
// existing dependent records (e.g. deleting a category that offers
// still reference).
package repository

import (
    "errors"
    "strings"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because
// of conflicting state. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrDuplicateIdentifier is returned when an insert violates a unique
// constraint on a generated identifier (coupon code or QR token).
// Callers retry with fresh randomness rather than surfacing this.
var ErrDuplicateIdentifier = errors.New("duplicate identifier")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error (1062).
func isDuplicateKey(err error) bool {
    return err != nil && strings.Contains(err.Error(), "1062")
}
