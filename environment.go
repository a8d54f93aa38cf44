package envconf

import (
	"os"

	"github.com/caarlos0/env/v11"
)

// Lookuper is a read-only view of environment variables.
type Lookuper interface {
	Lookup(key string) (string, bool)
}

// Environment is an in-memory variable table.
type Environment map[string]string

// Lookup implements Lookuper.
func (e Environment) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// LookupFunc adapts a function such as os.LookupEnv to Lookuper.
type LookupFunc func(key string) (string, bool)

// Lookup implements Lookuper.
func (f LookupFunc) Lookup(key string) (string, bool) {
	return f(key)
}

// FromEnviron builds an Environment from KEY=value lines as returned by
// os.Environ.
func FromEnviron(environ []string) Environment {
	return Environment(env.ToMap(environ))
}

// Snapshot copies the process environment. Later changes to the process
// environment are not visible through the returned value.
func Snapshot() Environment {
	return FromEnviron(os.Environ())
}

// Merge overlays environments. Variables in later layers replace those in
// earlier ones.
func Merge(layers ...Environment) Environment {
	size := 0
	for _, layer := range layers {
		size += len(layer)
	}

	out := make(Environment, size)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}
