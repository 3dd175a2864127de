// Package status implements the library's single fixed-capacity error
// record: every fallible operation in upb-go fails with at most one
// *Error, carrying a Kind and a truncated message.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the source of a failure, per spec.md §7.
type Kind int

const (
	// InvalidInput covers malformed varints, bad wire types, bad JSON
	// tokens, bad base64, and bad default-value strings.
	InvalidInput Kind = iota + 1
	// SchemaViolation covers unknown type names, duplicate field
	// numbers/names, required-in-proto3, explicit-default-in-proto3, and
	// oneof fields with a label other than optional.
	SchemaViolation
	// RangeError covers out-of-range integers, duration/timestamp bounds,
	// too-deep nesting, and a zero field number.
	RangeError
	// Truncated covers input that ends mid-value.
	Truncated
	// OutOfMemory covers arena allocation failure.
	OutOfMemory
	// Unresolved covers an Any with a missing or unknown @type.
	Unresolved
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid input"
	case SchemaViolation:
		return "schema violation"
	case RangeError:
		return "range error"
	case Truncated:
		return "truncated"
	case OutOfMemory:
		return "out of memory"
	case Unresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// maxMessage is the cap on a Status message's length; longer messages are
// ellipsized, mirroring the C library's fixed-capacity status buffer.
const maxMessage = 256

// Error is the library's sole error type. A nil *Error means success.
type Error struct {
	Kind Kind
	msg  string

	// offset is the byte offset at which a parser or decoder was last
	// known-good, when available (§4.7.8).
	offset int
	hasOffset bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.hasOffset {
		return fmt.Sprintf("%s: %s (at offset %d)", e.Kind, e.msg, e.offset)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Offset returns the byte offset recorded on this error, if any.
func (e *Error) Offset() (int, bool) {
	if e == nil {
		return 0, false
	}
	return e.offset, e.hasOffset
}

func truncate(s string) string {
	if len(s) <= maxMessage {
		return s
	}
	return s[:maxMessage-1] + "…"
}

// New creates a *Error of the given kind, wrapped with github.com/pkg/errors
// so %+v on the result carries a stack trace during development, while
// errors.As still recovers the *Error.
func New(kind Kind, format string, args ...any) error {
	e := &Error{Kind: kind, msg: truncate(fmt.Sprintf(format, args...))}
	return errors.WithStack(e)
}

// NewAt is New, additionally recording the byte offset a parser or decoder
// was last known-good at.
func NewAt(kind Kind, offset int, format string, args ...any) error {
	e := &Error{Kind: kind, msg: truncate(fmt.Sprintf(format, args...)), offset: offset, hasOffset: true}
	return errors.WithStack(e)
}

// As recovers the *Error from err, unwrapping any github.com/pkg/errors
// wrapping along the way.
func As(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// KindOf reports the Kind of err, or 0 if err is not (or does not wrap) a
// *Error.
func KindOf(err error) Kind {
	if se, ok := As(err); ok {
		return se.Kind
	}
	return 0
}

// Wrap annotates err with call-site context, preserving errors.As
// recoverability of the underlying *Error.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
