package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownAccount     = errors.New("unknown account")
	ErrUnknownType        = errors.New("unknown transaction type")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrInvalidRange       = errors.New("invalid date range")
	ErrMissingField       = errors.New("missing field")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (f FieldError) Error() string {
	if f.Value == "" {
		return fmt.Sprintf("%s: %v", f.Field, f.Err)
	}
	return fmt.Sprintf("%s %q: %v", f.Field, f.Value, f.Err)
}

// ValidationError rejects an entry or a query. Nothing is persisted.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the per-field sentinels to errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, f := range e.Fields {
		errs = append(errs, f.Err)
	}
	return errs
}

// HasField reports whether the named field was rejected.
func (e *ValidationError) HasField(name string) bool {
	for _, f := range e.Fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, value string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Value: value, Err: err})
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, value string, err error) *ValidationError {
	ve := &ValidationError{}
	ve.add(field, value, err)
	return ve
}

// StorageCorruptError means persisted data exists but cannot be parsed.
type StorageCorruptError struct {
	Source string
	Line   int
	Field  string
	Err    error
}

func (e *StorageCorruptError) Error() string {
	var b strings.Builder
	b.WriteString("ledger storage corrupt")
	if e.Source != "" {
		b.WriteString(": " + e.Source)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Field != "" {
		b.WriteString(" field " + e.Field)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *StorageCorruptError) Unwrap() error { return e.Err }

// StorageUnavailableError means the medium could not be read or written.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("ledger storage unavailable (%s): %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err unless it already carries a storage classification.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var corrupt *StorageCorruptError
	var unavailable *StorageUnavailableError
	if errors.As(err, &corrupt) || errors.As(err, &unavailable) {
		return err
	}
	return &StorageUnavailableError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsCorrupt(err error) bool {
	var ce *StorageCorruptError
	return errors.As(err, &ce)
}

func IsUnavailable(err error) bool {
	var ue *StorageUnavailableError
	return errors.As(err, &ue)
}
