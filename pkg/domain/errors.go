package domain

import (
	"context"
	"errors"
	"fmt"
)

// Lookup errors
var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrManagerNotFound = errors.New("manager not found")
	ErrAssetNotFound   = errors.New("asset not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrNotMember       = errors.New("manager is not a member of this tenant")
)

// Access errors
var (
	// ErrAccessDenied is the single answer for any code that does not grant access,
	// whether it never existed or has been revoked.
	ErrAccessDenied = errors.New("access denied")
	ErrForbidden    = errors.New("role does not allow this action")
)

// Validation errors
var (
	ErrEmptyName        = errors.New("name must not be empty")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidGuestName = errors.New("guest name must not be empty")
	ErrInvalidTime      = errors.New("time must be in HH:MM format")
	ErrInvalidTimezone  = errors.New("timezone must look like UTC+3")
	ErrInvalidSection   = errors.New("unknown section")
	ErrUnknownField     = errors.New("field does not belong to section")
	ErrFixedField       = errors.New("fixed fields cannot be deleted")
	ErrEmptyContent     = errors.New("content must have text or media")
	ErrInvalidSetting   = errors.New("unknown setting")
	ErrSuggestionLength = errors.New("suggestion must be between 10 and 1000 characters")
	ErrValueTooLong     = errors.New("value is too long")
	ErrCodeCollision    = errors.New("generated code already in use")
	ErrUnsupportedMedia = errors.New("unsupported media kind")
)

// Infrastructure errors
var (
	// ErrUnavailable marks a backend failure that is safe to retry.
	ErrUnavailable = errors.New("backend unavailable")
)

// Retryable marks deadline and cancellation failures as ErrUnavailable,
// keeping the original error in the chain.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// Unavailable marks any backend failure as ErrUnavailable. It is used where
// every error from the backend is transient, such as the session store.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
