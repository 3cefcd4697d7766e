// Package errs defines the typed, recoverable error kinds shared by the
// masking, document and crypto layers. Every operation is single-shot: an
// error aborts the whole masking or restore pass and no partial output is
// written.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for API mapping and logging.
type Kind int

const (
	// KindValidation covers rejected caller input: empty text, no keywords
	// with smart detection disabled, password below the configured minimum.
	KindValidation Kind = iota
	// KindFormat covers unsupported file extensions, document parse
	// failures and malformed restore payloads.
	KindFormat
	// KindSizeLimit is reported before any extraction work begins.
	KindSizeLimit
	// KindCrypto covers AEAD authentication failures and missing or invalid
	// payload fields. It is surfaced to users as a single "corrupted or
	// wrong password" message and never carries key material.
	KindCrypto
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindFormat:
		return "format"
	case KindSizeLimit:
		return "size_limit"
	case KindCrypto:
		return "crypto"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by all core operations.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation creates a validation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Format creates a format error with the offending reason.
func Format(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindFormat, Msg: fmt.Sprintf(format, args...), Err: err}
}

// SizeLimit creates a size limit error.
func SizeLimit(format string, args ...interface{}) *Error {
	return &Error{Kind: KindSizeLimit, Msg: fmt.Sprintf(format, args...)}
}

// Crypto creates a crypto error. The wrapped cause is kept for logs only;
// user-facing text must come from Msg.
func Crypto(err error, msg string) *Error {
	return &Error{Kind: KindCrypto, Msg: msg, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
