package gcal

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// ErrNotConnected means no refresh credential is configured. It is
// actionable ("connect the calendar first") and distinct from a transient
// call failure.
var ErrNotConnected = errors.New("gcal: calendar not connected, no refresh credential configured")

// AuthError wraps a 401/403 from the calendar API. It signals a stale or
// revoked credential and should trigger re-authorization, not a retry.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gcal: authorization failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ConflictError wraps a 409/429 from the calendar API: the provider
// rejected the write for conflict or quota reasons.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("gcal: conflict or quota rejection: %v", e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsConflictError reports whether err is (or wraps) a ConflictError.
func IsConflictError(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// classify maps googleapi status codes onto the error taxonomy the rest of
// the system understands.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401, 403:
			return &AuthError{Err: fmt.Errorf("%s: %w", op, err)}
		case 409, 429:
			return &ConflictError{Err: fmt.Errorf("%s: %w", op, err)}
		}
	}
	return fmt.Errorf("gcal: %s: %w", op, err)
}
