package services

import (
	"errors"
	"fmt"
)

var (
	// ErrBadgeNotFound is returned when an id is not in the catalog.
	ErrBadgeNotFound = errors.New("badge not found")

	// ErrInvalidCredentials is returned by Login for an empty password or a malformed email.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated is returned when a session token does not resolve to a user.
	ErrUnauthenticated = errors.New("not authenticated")
)

// PersistenceError reports a failed read or write against the key-value store.
// The in-memory working copy is still valid when one is returned.
type PersistenceError struct {
	Op  string // "read", "write" or "delete"
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err wraps a *PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
