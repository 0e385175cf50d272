package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/iliyamo/equipment-rental/internal/repository"
)

// Sentinel errors returned by the services.  Handlers map each one onto an
// HTTP status; anything not listed here is a 500.
var (
	ErrInvalidCredentials = errors.New("the provided credentials do not match our records")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrOTPMismatch        = errors.New("otp mismatch")
	ErrUnauthenticated    = errors.New("unauthenticated")

	ErrUserNotFound      = repository.ErrUserNotFound
	ErrEquipmentNotFound = repository.ErrEquipmentNotFound
	ErrConflict          = repository.ErrConflict
)

// ValidationError lists human readable messages per input field.  It is
// always returned before any state has been changed.
type ValidationError struct {
	Fields map[string][]string
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add appends msg to field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// Has reports whether field already carries a message.
func (e *ValidationError) Has(field string) bool { return len(e.Fields[field]) > 0 }

// OrNil returns e when it holds at least one message.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldError builds a ValidationError with a single message.
func fieldError(field, msg string) *ValidationError {
	ve := newValidationError()
	ve.Add(field, msg)
	return ve
}

// PendingVerificationError is returned by Login for accounts that have not
// completed OTP verification.  No token is issued.
type PendingVerificationError struct {
	UserID uint64
}

func (e *PendingVerificationError) Error() string {
	return fmt.Sprintf("user %d is pending verification", e.UserID)
}

// duplicateToValidation converts a unique index violation raised by the
// store into the same message the pre-insert check produces.
func duplicateToValidation(err error) error {
	var dup *repository.DuplicateError
	if errors.As(err, &dup) && dup.Field != "" {
		return fieldError(dup.Field, takenMessage(dup.Field))
	}
	return err
}
