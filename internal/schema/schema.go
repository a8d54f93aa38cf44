package schema

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/envconf"
)

// ErrInvalidSchema is returned when a schema document fails validation.
var ErrInvalidSchema = errors.New("invalid schema")

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Schema is a declaration file: a named, ordered list of fields.
type Schema struct {
	Name   string  `yaml:"name" validate:"required"`
	Fields []Field `yaml:"fields" validate:"required,min=1,unique=Name,dive"`
}

// Field is the resolution rule for one schema field.
type Field struct {
	Name    string  `yaml:"name" validate:"required"`
	Env     string  `yaml:"env" validate:"omitempty,envname"`
	Default *Scalar `yaml:"default"`
	Type    string  `yaml:"type" validate:"required,schematype"`
}

// Scalar keeps the literal text of a YAML scalar, so `default: 5432` and
// `default: "5432"` both become the text 5432.
type Scalar struct {
	Text string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: default must be a scalar value", node.Line)
	}
	s.Text = node.Value
	return nil
}

// Loader reads and validates schema documents against a type registry.
type Loader struct {
	types    *Types
	validate *validator.Validate
}

// NewLoader returns a Loader validating field types against types.
func NewLoader(types *Types) *Loader {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("envname", func(fl validator.FieldLevel) bool {
		return envNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("schematype", func(fl validator.FieldLevel) bool {
		_, err := types.Lookup(fl.Field().String())
		return err == nil
	})

	return &Loader{types: types, validate: v}
}

// LoadFile reads a schema from a YAML file.
func (l *Loader) LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes and validates a YAML schema document.
func (l *Loader) Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	if err := l.validate.Struct(&s); err != nil {
		return nil, describe(err)
	}
	return &s, nil
}

// Types returns the registry the loader validates against.
func (l *Loader) Types() *Types {
	return l.types
}

func describe(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := strings.TrimPrefix(e.Namespace(), "Schema.")
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must contain at least "+e.Param()+" entry")
		case "unique":
			msgs = append(msgs, field+" must have unique "+strings.ToLower(e.Param())+"s")
		case "envname":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a valid environment variable name", field, e.Value()))
		case "schematype":
			msgs = append(msgs, fmt.Sprintf("%s %q is not a known type", field, e.Value()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidSchema, strings.Join(msgs, "; "))
}

// Settings holds resolved values keyed by field name.
type Settings struct {
	values map[string]any
}

// Get returns the value resolved for the named field.
func (s Settings) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *Settings) set(name string, v any) {
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[name] = v
}

// Declaration builds the envconf declaration described by the schema.
func (s *Schema) Declaration(types *Types) (*envconf.Declaration[Settings], error) {
	fields := make([]envconf.Field[Settings], 0, len(s.Fields))
	for _, f := range s.Fields {
		typ, err := types.Lookup(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w: %s", f.Name, err, f.Type)
		}

		opts := []envconf.FieldOption{envconf.TypeName(typ.Name)}
		if f.Env != "" {
			opts = append(opts, envconf.Env(f.Env))
		}
		if f.Default != nil {
			opts = append(opts, envconf.Default(f.Default.Text))
		}

		name := f.Name
		zero := typ.Zero
		fields = append(fields, envconf.Setter(name, func(st *Settings, v any) {
			if v == nil {
				v = zero
			}
			st.set(name, v)
		}, envconf.Parser[any](typ.Parse), opts...))
	}
	return envconf.Declare(fields...)
}

// Entry is one resolved field.
type Entry struct {
	Field string
	Env   string
	Type  string
	Value any
}

// Resolved is the outcome of resolving a schema, in declaration order.
type Resolved struct {
	Name    string
	Entries []Entry
}

// Resolve evaluates the schema against env.
func (s *Schema) Resolve(types *Types, env envconf.Lookuper, opts ...envconf.InitOption) (*Resolved, error) {
	decl, err := s.Declaration(types)
	if err != nil {
		return nil, err
	}

	settings, err := decl.Init(env, opts...)
	if err != nil {
		return nil, err
	}

	out := &Resolved{Name: s.Name, Entries: make([]Entry, 0, len(s.Fields))}
	for _, f := range s.Fields {
		v, _ := settings.Get(f.Name)
		out.Entries = append(out.Entries, Entry{Field: f.Name, Env: f.Env, Type: f.Type, Value: v})
	}
	return out, nil
}
