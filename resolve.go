package envconf

import "fmt"

// Policy decides what happens to a field that has neither a present
// environment variable nor a default.
type Policy int

const (
	// Strict fails with a *MissingValueError.
	Strict Policy = iota
	// ZeroDefault leaves the field at its type's zero value.
	ZeroDefault
)

func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case ZeroDefault:
		return "zero-default"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(raw string) (Policy, error) {
	switch raw {
	case "strict":
		return Strict, nil
	case "zero-default":
		return ZeroDefault, nil
	default:
		return Strict, fmt.Errorf("unknown policy %q (want strict or zero-default)", raw)
	}
}

// UnmarshalText lets Policy be read by ParseText and by YAML decoders.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Spec is the resolution rule for one field. Type is the type name
// reported in parse errors.
type Spec struct {
	Name       string
	Type       string
	Env        string
	Default    string
	HasDefault bool
}

// FieldOption configures a Spec.
type FieldOption func(*Spec)

// Env names the environment variable consulted for the field.
func Env(name string) FieldOption {
	return func(s *Spec) {
		s.Env = name
	}
}

// TypeName overrides the type name reported in parse errors. It is useful
// when V is an interface type.
func TypeName(name string) FieldOption {
	return func(s *Spec) {
		s.Type = name
	}
}

// Default sets the fallback used when the variable is absent. Non-string
// values are formatted with fmt.Sprint, so Default(5432) behaves exactly
// like the variable text "5432".
func Default(value any) FieldOption {
	return func(s *Spec) {
		if str, ok := value.(string); ok {
			s.Default = str
		} else {
			s.Default = fmt.Sprint(value)
		}
		s.HasDefault = true
	}
}

func newSpec(name string, opts []FieldOption) Spec {
	s := Spec{Name: name}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

type initOptions struct {
	policy       Policy
	aggregate    bool
	emptyAsUnset bool
}

// InitOption adjusts how fields are resolved.
type InitOption func(*initOptions)

// WithPolicy selects the missing-value policy. The default is Strict.
func WithPolicy(p Policy) InitOption {
	return func(o *initOptions) {
		o.policy = p
	}
}

// Aggregate makes Init resolve every field and report all failures together
// instead of stopping at the first one.
func Aggregate() InitOption {
	return func(o *initOptions) {
		o.aggregate = true
	}
}

// EmptyAsUnset treats variables set to the empty string as absent.
func EmptyAsUnset() InitOption {
	return func(o *initOptions) {
		o.emptyAsUnset = true
	}
}

func buildInitOptions(opts []InitOption) initOptions {
	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolve produces the value of a single field. The environment variable
// wins over the default; the candidate text is then handed to parse.
func Resolve[V any](spec Spec, env Lookuper, parse Parser[V], opts ...InitOption) (V, error) {
	return resolve(spec, env, parse, buildInitOptions(opts))
}

func resolve[V any](spec Spec, env Lookuper, parse Parser[V], o initOptions) (V, error) {
	var zero V

	raw, source, found := candidate(spec, env, o)
	if !found {
		if o.policy == ZeroDefault {
			return zero, nil
		}
		return zero, &MissingValueError{Field: spec.Name, Env: spec.Env}
	}

	v, err := parse(raw)
	if err != nil {
		typ := spec.Type
		if typ == "" {
			typ = typeName[V]()
		}
		return zero, &ParseError{
			Field:  spec.Name,
			Type:   typ,
			Raw:    raw,
			Source: source,
			Env:    spec.Env,
			Err:    err,
		}
	}
	return v, nil
}

func candidate(spec Spec, env Lookuper, o initOptions) (string, Source, bool) {
	if spec.Env != "" && env != nil {
		if v, ok := env.Lookup(spec.Env); ok && !(o.emptyAsUnset && v == "") {
			return v, SourceEnv, true
		}
	}
	if spec.HasDefault {
		return spec.Default, SourceDefault, true
	}
	return "", "", false
}
