package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials indicates a login failure. The message is
	// deliberately generic so callers cannot tell a missing account from a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already exists")
	// ErrUserNotFound indicates missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenInvalid means a supplied token failed signature or format checks.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means the token signature verified but its lifetime has
	// passed. Distinct from ErrTokenInvalid so callers can attempt a refresh.
	ErrTokenExpired = errors.New("token expired")
)

// User models the authentication entity persisted in storage.
// PasswordHash must never leave the service boundary.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}

// FieldError describes a single violated input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violated field of a request, not just the
// first one found. A duplicate-email conflict is reported through this type
// too, wrapping ErrEmailExists so errors.Is still matches.
type ValidationError struct {
	Fields []FieldError
	cause  error
}

// NewValidationError builds a ValidationError from field violations.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// NewDuplicateEmailError reports a uniqueness conflict as a validation error
// on the email field.
func NewDuplicateEmailError() *ValidationError {
	return &ValidationError{
		Fields: []FieldError{{Field: "email", Message: "email already exists"}},
		cause:  ErrEmailExists,
	}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the underlying cause, if any, for errors.Is checks.
func (e *ValidationError) Unwrap() error {
	return e.cause
}
