package envconf_test

import (
	"errors"
	"fmt"

	"github.com/eugenenazirov/envconf"
)

type DBSettings struct {
	Host     string
	Port     int
	User     string
	Password string
}

var dbSettings = envconf.MustDeclare(
	envconf.String("host", func(s *DBSettings) *string { return &s.Host },
		envconf.Env("DB_HOST"), envconf.Default("localhost")),
	envconf.Int("port", func(s *DBSettings) *int { return &s.Port },
		envconf.Env("DB_PORT"), envconf.Default(5432)),
	envconf.String("user", func(s *DBSettings) *string { return &s.User },
		envconf.Default("myuser")),
	envconf.String("password", func(s *DBSettings) *string { return &s.Password },
		envconf.Env("DB_PASSWORD")),
)

func ExampleDeclaration_Init() {
	settings, err := dbSettings.Init(envconf.Environment{"DB_PASSWORD": "secret"})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%+v\n", settings)

	_, err = dbSettings.Init(envconf.Environment{})
	var missing *envconf.MissingValueError
	if errors.As(err, &missing) {
		fmt.Println("missing:", missing.Field)
	}
	// Output:
	// {Host:localhost Port:5432 User:myuser Password:secret}
	// missing: password
}

func ExampleResolve() {
	spec := envconf.Spec{Name: "port", Env: "DB_PORT"}

	_, err := envconf.Resolve(spec, envconf.Environment{"DB_PORT": "notanumber"}, envconf.ParseInt[int])
	var parseErr *envconf.ParseError
	if errors.As(err, &parseErr) {
		fmt.Println(parseErr.Field, parseErr.Type, parseErr.Raw)
	}
	// Output:
	// port int notanumber
}
