package protocol

import (
	"errors"
	"fmt"
)

// FatalError reports a violated object-model invariant: an unknown entry or
// transaction type, a template violation, or undecodable bytes.
//
// These are never recoverable validation outcomes (those are ter codes).
// A FatalError aborts processing of the single object it concerns.
type FatalError struct {
	// Code identifies the error category.
	Code FatalCode

	// Message is a human-readable description.
	Message string

	// Field names the offending field, when there is one.
	Field string
}

// FatalCode categorizes fatal object-model errors.
type FatalCode string

const (
	// ErrCodeUnknownEntryType indicates no format is registered for an entry type.
	ErrCodeUnknownEntryType FatalCode = "UNKNOWN_ENTRY_TYPE"

	// ErrCodeUnknownTxType indicates no format is registered for a transaction type.
	ErrCodeUnknownTxType FatalCode = "UNKNOWN_TX_TYPE"

	// ErrCodeTemplate indicates an object does not satisfy its template.
	ErrCodeTemplate FatalCode = "TEMPLATE_VIOLATION"

	// ErrCodeEncoding indicates bytes that cannot be decoded into an object.
	ErrCodeEncoding FatalCode = "MALFORMED_ENCODING"
)

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsFatal reports whether err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsUnknownType reports whether err is a FatalError for an unregistered
// entry or transaction type.
func IsUnknownType(err error) bool {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeUnknownEntryType || fe.Code == ErrCodeUnknownTxType
	}
	return false
}

// IsTemplateError reports whether err is a template violation.
func IsTemplateError(err error) bool {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeTemplate
	}
	return false
}

func templateError(field *SField, format string, args ...any) *FatalError {
	fe := &FatalError{Code: ErrCodeTemplate, Message: fmt.Sprintf(format, args...)}
	if field != nil {
		fe.Field = field.Name
	}
	return fe
}

func encodingError(format string, args ...any) *FatalError {
	return &FatalError{Code: ErrCodeEncoding, Message: fmt.Sprintf(format, args...)}
}
