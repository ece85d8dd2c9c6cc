package notification

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes factory errors.
type ErrorCode string

const (
	// ErrCodeMissingContext means the source entity lacks the exercise,
	// lecture, course or conversation needed to type or address the record.
	ErrCodeMissingContext ErrorCode = "MISSING_CONTEXT"

	// ErrCodeMissingRecipient means no recipient could be determined.
	ErrCodeMissingRecipient ErrorCode = "MISSING_RECIPIENT"

	// ErrCodeUnsupportedType means the requested type does not fit the constructor.
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"
)

// Error is returned by Factory constructors for malformed input.
type Error struct {
	Code    ErrorCode
	Message string
	Type    Type
}

func (e *Error) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMissingContext reports whether err is a MISSING_CONTEXT factory error.
func IsMissingContext(err error) bool {
	return hasCode(err, ErrCodeMissingContext)
}

// IsMissingRecipient reports whether err is a MISSING_RECIPIENT factory error.
func IsMissingRecipient(err error) bool {
	return hasCode(err, ErrCodeMissingRecipient)
}

// IsUnsupportedType reports whether err is an UNSUPPORTED_TYPE factory error.
func IsUnsupportedType(err error) bool {
	return hasCode(err, ErrCodeUnsupportedType)
}

func hasCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

func missingContext(t Type, format string, args ...any) *Error {
	return &Error{Code: ErrCodeMissingContext, Message: fmt.Sprintf(format, args...), Type: t}
}

func missingRecipient(t Type) *Error {
	return &Error{Code: ErrCodeMissingRecipient, Message: "notification has no recipient", Type: t}
}

func unsupportedType(t Type, format string, args ...any) *Error {
	return &Error{Code: ErrCodeUnsupportedType, Message: fmt.Sprintf(format, args...), Type: t}
}
