package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/envconf"
	"github.com/eugenenazirov/envconf/internal/application"
	"github.com/eugenenazirov/envconf/internal/config"
	"github.com/eugenenazirov/envconf/internal/logging"
)

func main() {
	if err := run(os.Args[1:], envconf.Snapshot(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	app *kingpin.Application

	overrides config.CLIOverrides

	aggregate       *bool
	aggregateSet    bool
	emptyAsUnset    *bool
	emptyAsUnsetSet bool

	resolve  *kingpin.CmdClause
	schema   *string
	envFiles *[]string

	generate *kingpin.CmdClause
	typeName *string
	input    *string
	output   *string
}

func newCLI() *cli {
	c := &cli{app: kingpin.New("envconf", "Populate settings from environment variables")}

	c.app.Flag("config", "Path to YAML configuration file").StringVar(&c.overrides.ConfigFile)
	c.overrides.LogLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()
	c.overrides.LogFormat = c.app.Flag("log-format", "Log encoding (json, console)").String()
	c.overrides.Policy = c.app.Flag("policy", "Handling of fields with neither variable nor default (strict, zero-default)").String()
	c.aggregate = c.app.Flag("aggregate", "Report every failing field instead of the first").IsSetByUser(&c.aggregateSet).Bool()
	c.emptyAsUnset = c.app.Flag("empty-as-unset", "Treat variables set to an empty string as unset").IsSetByUser(&c.emptyAsUnsetSet).Bool()

	c.resolve = c.app.Command("resolve", "Resolve a declaration file against the environment")
	c.schema = c.resolve.Flag("schema", "Declaration file; defaults to the nearest "+application.DefaultSchemaFile).String()
	c.envFiles = c.resolve.Flag("env-file", "Dotenv file layered under the process environment (repeatable)").Strings()
	c.overrides.Format = c.resolve.Flag("format", "Output format (yaml, json, env)").String()

	c.generate = c.app.Command("generate", "Generate an envconf declaration from struct tags")
	c.typeName = c.generate.Flag("type", "Struct type to generate for").Required().String()
	c.input = c.generate.Flag("input", "Go source file holding the type; defaults to $GOFILE").String()
	c.output = c.generate.Flag("output", "Destination file; defaults to <input>_envconf.go").String()

	return c
}

// parse records boolean flags only when the user passed them, so unset flags
// do not override lower configuration layers.
func (c *cli) parse(args []string) (string, error) {
	command, err := c.app.Parse(args)
	if err != nil {
		return "", err
	}

	if c.aggregateSet {
		c.overrides.Aggregate = c.aggregate
	}
	if c.emptyAsUnsetSet {
		c.overrides.EmptyAsUnset = c.emptyAsUnset
	}
	return command, nil
}

func run(args []string, env envconf.Environment, stdout io.Writer) error {
	c := newCLI()
	command, err := c.parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(&c.overrides, env)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	app := application.New(cfg, logger, application.WithEnvironment(env), application.WithOutput(stdout))

	switch command {
	case c.resolve.FullCommand():
		err = app.Resolve(application.ResolveRequest{SchemaPath: *c.schema, EnvFiles: *c.envFiles})
	case c.generate.FullCommand():
		input := *c.input
		if input == "" {
			input, _ = env.Lookup("GOFILE")
		}
		err = app.Generate(application.GenerateRequest{TypeName: *c.typeName, Input: input, Output: *c.output})
	default:
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		logger.Debug("command failed", zap.String("command", command), zap.Error(err))
	}
	return err
}
