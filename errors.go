package boss

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedValue is matched by every *UnsupportedValueError.
	ErrUnsupportedValue = errors.New("boss: unsupported value")
	// ErrUnknownType reports a header code, extra subcode or compression
	// tier this decoder does not understand.
	ErrUnknownType            = errors.New("boss: unknown type")
	ErrUnknownCompressionTier = errors.New("boss: unknown compression tier")
	// ErrTruncated reports a source that ended inside a record.
	ErrTruncated      = errors.New("boss: truncated record")
	ErrDepthExceeded  = errors.New("boss: nesting depth exceeded")
	ErrBadReference   = errors.New("boss: reference to an unknown cache slot")
	ErrLengthOverflow = errors.New("boss: length out of range")
	// ErrInvalidText reports a text record that is not valid UTF-8.
	ErrInvalidText = errors.New("boss: text record is not valid UTF-8")
)

// UnsupportedValueError is returned when a value has no wire representation.
// Nothing of the offending top-level value is written.
type UnsupportedValueError struct {
	Value  any
	Reason string
}

func (e *UnsupportedValueError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("boss: unsupported value %v (%T): %s", e.Value, e.Value, e.Reason)
	}
	return fmt.Sprintf("boss: unsupported value %v (%T)", e.Value, e.Value)
}

func (e *UnsupportedValueError) Unwrap() error { return ErrUnsupportedValue }

// UnknownTypeError carries the offending code. Kind is "code", "extra" or
// "tier".
type UnknownTypeError struct {
	Kind string
	Code uint64
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("boss: unknown %s %d", e.Kind, e.Code)
}

func (e *UnknownTypeError) Unwrap() []error {
	if e.Kind == "tier" {
		return []error{ErrUnknownType, ErrUnknownCompressionTier}
	}
	return []error{ErrUnknownType}
}
