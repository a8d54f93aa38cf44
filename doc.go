// Package envconf populates settings values from environment variables.
//
// Each field of a settings type is described by a Field: the name used in
// errors, an optional environment variable and an optional default. A
// Declaration groups the fields of one type and Init resolves all of them
// against an injected environment:
//
//	var dbDecl = envconf.MustDeclare(
//		envconf.String("host", func(s *DBSettings) *string { return &s.Host },
//			envconf.Env("DB_HOST"), envconf.Default("localhost")),
//		envconf.Int("port", func(s *DBSettings) *int { return &s.Port },
//			envconf.Env("DB_PORT"), envconf.Default(5432)),
//		envconf.String("password", func(s *DBSettings) *string { return &s.Password },
//			envconf.Env("DB_PASSWORD")),
//	)
//
//	settings, err := dbDecl.Init(envconf.Snapshot())
//
// Declarations are usually not written by hand: the envconf generate command
// reads `env` and `default` struct tags and emits the equivalent code.
package envconf
