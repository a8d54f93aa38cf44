package envconf

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

var (
	// ErrEmptyFieldName is returned by Declare for a field without a name.
	ErrEmptyFieldName = errors.New("field name must not be empty")
	// ErrDuplicateField is returned by Declare when two fields share a name.
	ErrDuplicateField = errors.New("duplicate field name")
)

// Field resolves one value of a settings type S.
type Field[S any] interface {
	Spec() Spec
	apply(dst *S, env Lookuper, o initOptions) error
}

type field[S, V any] struct {
	spec  Spec
	parse Parser[V]
	set   func(*S, V)
}

func (f *field[S, V]) Spec() Spec {
	return f.spec
}

func (f *field[S, V]) apply(dst *S, env Lookuper, o initOptions) error {
	v, err := resolve(f.spec, env, f.parse, o)
	if err != nil {
		return err
	}
	f.set(dst, v)
	return nil
}

// Setter declares a field whose resolved value is handed to set.
func Setter[S, V any](name string, set func(*S, V), parse Parser[V], opts ...FieldOption) Field[S] {
	spec := newSpec(name, opts)
	if spec.Type == "" {
		spec.Type = typeName[V]()
	}
	return &field[S, V]{
		spec:  spec,
		parse: parse,
		set:   set,
	}
}

// Var declares a field stored at the location returned by target.
func Var[S, V any](name string, target func(*S) *V, parse Parser[V], opts ...FieldOption) Field[S] {
	return Setter(name, func(s *S, v V) { *target(s) = v }, parse, opts...)
}

// String declares a string field.
func String[S any](name string, target func(*S) *string, opts ...FieldOption) Field[S] {
	return Var(name, target, ParseString, opts...)
}

// Bool declares a bool field.
func Bool[S any](name string, target func(*S) *bool, opts ...FieldOption) Field[S] {
	return Var(name, target, ParseBool, opts...)
}

// Int declares an int field.
func Int[S any](name string, target func(*S) *int, opts ...FieldOption) Field[S] {
	return Var(name, target, ParseInt[int], opts...)
}

// Int64 declares an int64 field.
func Int64[S any](name string, target func(*S) *int64, opts ...FieldOption) Field[S] {
	return Var(name, target, ParseInt[int64], opts...)
}

// Uint declares a uint field.
func Uint[S any](name string, target func(*S) *uint, opts ...FieldOption) Field[S] {
	return Var(name, target, ParseUint[uint], opts...)
}

// Float64 declares a float64 field.
func Float64[S any](name string, target func(*S) *float64, opts ...FieldOption) Field[S] {
	return Var(name, target, ParseFloat[float64], opts...)
}

// Duration declares a time.Duration field.
func Duration[S any](name string, target func(*S) *time.Duration, opts ...FieldOption) Field[S] {
	return Var(name, target, ParseDuration, opts...)
}

// Declaration is the ordered set of fields of a settings type. It is
// immutable once built and safe for concurrent use.
type Declaration[S any] struct {
	fields []Field[S]
}

// Declare builds a Declaration. Field names must be non-empty and unique.
func Declare[S any](fields ...Field[S]) (*Declaration[S], error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		name := f.Spec().Name
		if name == "" {
			return nil, ErrEmptyFieldName
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, name)
		}
		seen[name] = struct{}{}
	}

	out := make([]Field[S], len(fields))
	copy(out, fields)
	return &Declaration[S]{fields: out}, nil
}

// MustDeclare is like Declare but panics on error. It is meant for
// package-level variables.
func MustDeclare[S any](fields ...Field[S]) *Declaration[S] {
	d, err := Declare(fields...)
	if err != nil {
		panic(fmt.Sprintf("envconf: %v", err))
	}
	return d
}

// Fields returns the specs of the declared fields in declaration order.
func (d *Declaration[S]) Fields() []Spec {
	specs := make([]Spec, len(d.fields))
	for i, f := range d.fields {
		specs[i] = f.Spec()
	}
	return specs
}

// Init resolves every field against env and returns the populated value.
// On failure the zero S is returned together with the first error, or with
// all errors combined when the Aggregate option is given.
func (d *Declaration[S]) Init(env Lookuper, opts ...InitOption) (S, error) {
	o := buildInitOptions(opts)

	var out S
	var errs error
	for _, f := range d.fields {
		if err := f.apply(&out, env, o); err != nil {
			if !o.aggregate {
				var zero S
				return zero, err
			}
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		var zero S
		return zero, errs
	}
	return out, nil
}
