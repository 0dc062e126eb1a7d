// Package repository holds the in-memory data the stub service works
// on, and the sentinel errors handlers translate into HTTP statuses.
package repository

import "errors"

// ErrNotFound is returned when a record does not exist.  Handlers
// translate it into a 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// record outside their scope.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a create would duplicate a unique
// field such as a username.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrExpired is returned for invite tokens that were used or have
// lapsed.  Handlers translate it into 410.
var ErrExpired = errors.New("expired")
