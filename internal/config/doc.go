// Package config loads the runtime configuration of the envconf command from
// multiple sources (YAML files, environment variables, CLI flags) with
// precedence: CLI flags > Environment variables > YAML config > Defaults.
// The environment layer is itself resolved with envconf.
package config
