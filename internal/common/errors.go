// Package common defines shared constants and sentinel errors used across
// client and server layers of GophMail. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors.
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
	ErrEmptyMessage    = errors.New("empty message")

	// Messaging errors.
	ErrUnknownRecipient = errors.New("unknown recipient")
)
