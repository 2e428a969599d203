package models

import (
	"errors"
)

// Error taxonomy shared across handlers and stores. Callers wrap these with
// fmt.Errorf("...: %w", ...) and handlers map them to HTTP status codes.
var (
	// ErrAuthentication covers invalid or expired one-time codes and
	// missing sessions.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation covers rejected input: short usernames, empty message
	// or task text, malformed dates.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers lookups of users, chats, messages or task indexes
	// that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable covers failed document-store or cache calls.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
