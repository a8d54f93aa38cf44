package schema

import (
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/eugenenazirov/envconf"
)

// ErrUnknownType indicates a field type that has no registered parser.
var ErrUnknownType = errors.New("unknown field type")

// ParseFunc converts raw text into a value of a registered type.
type ParseFunc func(raw string) (any, error)

// Type is a parser registered under a schema type name.
type Type struct {
	Name  string
	Parse ParseFunc
	// Zero is stored for fields left unresolved under the zero-default policy.
	Zero any
}

func typeOf[V any](name string, parse envconf.Parser[V]) Type {
	var zero V
	return Type{
		Name: name,
		Parse: func(raw string) (any, error) {
			return parse(raw)
		},
		Zero: zero,
	}
}

// Types maps schema type names to parsers and guards access with a RWMutex.
type Types struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewTypes returns a registry holding the built-in types.
func NewTypes() *Types {
	t := &Types{types: make(map[string]Type)}
	for _, typ := range builtinTypes() {
		t.types[typ.Name] = typ
	}
	return t
}

// Register adds or replaces a type.
func (t *Types) Register(typ Type) error {
	if typ.Name == "" || typ.Parse == nil {
		return errors.New("type needs a name and a parser")
	}

	t.mu.Lock()
	t.types[typ.Name] = typ
	t.mu.Unlock()

	return nil
}

// Lookup returns the type registered under name.
func (t *Types) Lookup(name string) (Type, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	typ, ok := t.types[name]
	if !ok {
		return Type{}, ErrUnknownType
	}
	return typ, nil
}

// Names returns the registered type names in sorted order.
func (t *Types) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.types))
	for name := range t.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func builtinTypes() []Type {
	return []Type{
		typeOf("string", envconf.ParseString),
		typeOf("bool", envconf.ParseBool),
		typeOf("int", envconf.ParseInt[int]),
		typeOf("int8", envconf.ParseInt[int8]),
		typeOf("int16", envconf.ParseInt[int16]),
		typeOf("int32", envconf.ParseInt[int32]),
		typeOf("int64", envconf.ParseInt[int64]),
		typeOf("uint", envconf.ParseUint[uint]),
		typeOf("uint8", envconf.ParseUint[uint8]),
		typeOf("uint16", envconf.ParseUint[uint16]),
		typeOf("uint32", envconf.ParseUint[uint32]),
		typeOf("uint64", envconf.ParseUint[uint64]),
		typeOf("float32", envconf.ParseFloat[float32]),
		typeOf("float64", envconf.ParseFloat[float64]),
		typeOf[time.Duration]("duration", envconf.ParseDuration),
		typeOf("ip", envconf.ParseText[net.IP]),
	}
}
