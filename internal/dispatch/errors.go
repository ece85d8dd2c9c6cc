package dispatch

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes dispatch errors.
type ErrorCode string

const (
	// ErrCodeStoreFailed means the record could not be persisted. Nothing
	// was delivered.
	ErrCodeStoreFailed ErrorCode = "STORE_FAILED"

	// ErrCodePreferencesUnavailable means the preference store could not be
	// read. The record is already stored; no channel was attempted.
	ErrCodePreferencesUnavailable ErrorCode = "PREFERENCES_UNAVAILABLE"

	// ErrCodePushFailed is recorded in a Report, never returned.
	ErrCodePushFailed ErrorCode = "PUSH_FAILED"

	// ErrCodeEmailFailed is recorded in a Report, never returned.
	ErrCodeEmailFailed ErrorCode = "EMAIL_FAILED"

	// ErrCodeInvalidNotification means the record's kind does not match the
	// delivery call, e.g. a group-scope record passed to Deliver.
	ErrCodeInvalidNotification ErrorCode = "INVALID_NOTIFICATION"
)

// Error describes a delivery failure for one recipient.
type Error struct {
	Code    ErrorCode
	Message string

	// UserID is the affected recipient, 0 when the failure precedes fan-out.
	UserID int64

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.UserID != 0 {
		msg = fmt.Sprintf("%s (user=%d)", msg, e.UserID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsStoreFailed reports whether err is a STORE_FAILED dispatch error.
func IsStoreFailed(err error) bool {
	return hasCode(err, ErrCodeStoreFailed)
}

// IsPreferencesUnavailable reports whether err is a PREFERENCES_UNAVAILABLE
// dispatch error.
func IsPreferencesUnavailable(err error) bool {
	return hasCode(err, ErrCodePreferencesUnavailable)
}

func hasCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
