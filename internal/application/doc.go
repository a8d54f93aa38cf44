// Package application wires configuration, logging, schema loading and code
// generation into the commands exposed by the envconf binary, keeping the
// main package focused on CLI parsing.
package application
