package envconf

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingValue matches any *MissingValueError.
	ErrMissingValue = errors.New("missing value")
	// ErrParse matches any *ParseError.
	ErrParse = errors.New("parse failure")
)

// Source tells where a candidate value came from.
type Source string

const (
	SourceEnv     Source = "environment"
	SourceDefault Source = "default"
)

// MissingValueError is returned when a field has neither a present
// environment variable nor a default.
type MissingValueError struct {
	Field string
	// Env is the variable that was consulted, empty if the field declares none.
	Env string
}

func (e *MissingValueError) Error() string {
	if e.Env == "" {
		return fmt.Sprintf("field %q: no environment variable or default declared", e.Field)
	}
	return fmt.Sprintf("field %q: environment variable %s is not set and no default is declared", e.Field, e.Env)
}

// Is reports whether target is ErrMissingValue.
func (e *MissingValueError) Is(target error) bool {
	return target == ErrMissingValue
}

// ParseError is returned when a candidate value cannot be converted to the
// field's type.
type ParseError struct {
	Field  string
	Type   string
	Raw    string
	Source Source
	Env    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == SourceEnv {
		return fmt.Sprintf("field %q: parse environment variable %s value %q as %s: %v", e.Field, e.Env, e.Raw, e.Type, e.Err)
	}
	return fmt.Sprintf("field %q: parse default value %q as %s: %v", e.Field, e.Raw, e.Type, e.Err)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
