// Package schema reads YAML declaration files, resolves them with envconf and
// renders the result as YAML, JSON or KEY=value lines.
package schema
