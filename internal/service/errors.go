package service

import "errors"

// Errors surfaced to the transport layer. ErrInvalidCredentials deliberately
// covers both "no such user" and "wrong password" so a caller cannot probe
// which emails are registered.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrEmailTaken         = errors.New("email already registered")
	ErrExpenseNotFound    = errors.New("expense not found")
)

// ValidationError rejects malformed input before any persistence call. The
// message is safe to show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
