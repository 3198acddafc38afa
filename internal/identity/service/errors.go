package service

import (
	"errors"
	"strings"
)

// Sentinel errors for the auth service; the handler maps them to gRPC codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidRefreshToken    = errors.New("invalid refresh token")
	ErrSessionNotFound        = errors.New("session not found or revoked")
	ErrSessionExpired         = errors.New("session expired")
)

// FieldViolation describes one rejected input field.
type FieldViolation struct {
	Field       string
	Description string
}

// ValidationError is returned by the input constructors when one or more fields are rejected.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid input"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Description
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, description string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Description: description})
}

// errOrNil returns e when it holds violations, so callers can write `return in, v.errOrNil()`.
func (e *ValidationError) errOrNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
