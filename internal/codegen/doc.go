// Package codegen turns `env` and `default` struct tags into explicit
// envconf declarations. It is the build step behind `envconf generate`,
// normally invoked through a go:generate directive:
//
//	//go:generate envconf generate --type DBSettings
//	type DBSettings struct {
//		Host     string `env:"DB_HOST" default:"localhost"`
//		Port     int    `env:"DB_PORT" default:"5432"`
//		Password string `env:"DB_PASSWORD"`
//	}
//
// Untagged fields are left alone. A `conf:"name"` tag overrides the field
// name reported in errors.
package codegen
