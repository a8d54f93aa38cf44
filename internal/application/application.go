package application

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eugenenazirov/envconf"
	"github.com/eugenenazirov/envconf/internal/codegen"
	"github.com/eugenenazirov/envconf/internal/config"
	"github.com/eugenenazirov/envconf/internal/schema"
)

// DefaultSchemaFile is searched for when no schema path is given.
const DefaultSchemaFile = "envconf.yaml"

// App encapsulates the command dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	loader *schema.Loader
	env    envconf.Environment
	stdout io.Writer
	getwd  func() (string, error)
}

// Option configures an App.
type Option func(*App)

// WithEnvironment replaces the process environment snapshot.
func WithEnvironment(env envconf.Environment) Option {
	return func(a *App) {
		a.env = env
	}
}

// WithOutput redirects rendered settings, primarily for tests.
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		a.stdout = w
	}
}

// WithTypes replaces the schema type registry.
func WithTypes(types *schema.Types) Option {
	return func(a *App) {
		a.loader = schema.NewLoader(types)
	}
}

// WithWorkingDir fixes the directory the default schema search starts from.
func WithWorkingDir(dir string) Option {
	return func(a *App) {
		a.getwd = func() (string, error) { return dir, nil }
	}
}

// New initializes the application from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		logger: logger,
		loader: schema.NewLoader(schema.NewTypes()),
		stdout: os.Stdout,
		getwd:  os.Getwd,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.env == nil {
		a.env = envconf.Snapshot()
	}
	return a
}

// ResolveRequest holds the inputs of the resolve command.
type ResolveRequest struct {
	SchemaPath string
	EnvFiles   []string
}

// Resolve evaluates a schema file against the environment and writes the
// result in the configured format.
func (a *App) Resolve(req ResolveRequest) error {
	path := req.SchemaPath
	if path == "" {
		found, err := a.resolveProjectPath(DefaultSchemaFile)
		if err != nil {
			return err
		}
		path = found
	}

	s, err := a.loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("load schema %s: %w", path, err)
	}

	env, err := a.environment(req.EnvFiles)
	if err != nil {
		return err
	}

	a.logger.Debug("resolving schema",
		zap.String("schema", path),
		zap.String("name", s.Name),
		zap.Int("fields", len(s.Fields)),
		zap.Stringer("policy", a.cfg.Policy),
	)

	resolved, err := s.Resolve(a.loader.Types(), env, a.cfg.InitOptions()...)
	if err != nil {
		a.logger.Error("schema resolution failed",
			zap.String("schema", s.Name),
			zap.Errors("errors", multierr.Errors(err)),
		)
		return err
	}

	if err := schema.Render(a.stdout, resolved, a.cfg.Format); err != nil {
		return fmt.Errorf("render settings: %w", err)
	}
	a.logger.Info("settings resolved", zap.String("schema", s.Name), zap.Int("fields", len(resolved.Entries)))
	return nil
}

// environment layers .env files under the process environment.
func (a *App) environment(files []string) (envconf.Environment, error) {
	if len(files) == 0 {
		return a.env, nil
	}

	fromFiles, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("read env files: %w", err)
	}
	return envconf.Merge(envconf.Environment(fromFiles), a.env), nil
}

// GenerateRequest holds the inputs of the generate command.
type GenerateRequest struct {
	TypeName string
	Input    string
	Output   string
}

// Generate writes the envconf declaration for a struct type.
func (a *App) Generate(req GenerateRequest) error {
	if req.Input == "" {
		return errors.New("no input file: pass --input or run through go generate")
	}

	src, err := os.ReadFile(req.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	output := req.Output
	if output == "" {
		output = codegen.OutputFilename(req.Input)
	}

	siblings, err := packageFiles(req.Input, output)
	if err != nil {
		return fmt.Errorf("read package files: %w", err)
	}

	out, err := codegen.Generate(codegen.Request{
		Filename:     req.Input,
		Source:       src,
		TypeName:     req.TypeName,
		PackageFiles: siblings,
	})
	if err != nil {
		return fmt.Errorf("generate %s: %w", req.TypeName, err)
	}

	if err := os.WriteFile(output, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	a.logger.Info("declaration generated", zap.String("type", req.TypeName), zap.String("output", output))
	return nil
}

// packageFiles reads the other Go sources next to input, leaving out tests
// and generated declarations.
func packageFiles(input, output string) (map[string][]byte, error) {
	dir := filepath.Dir(input)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	skip := map[string]bool{filepath.Clean(input): true, filepath.Clean(output): true}
	files := make(map[string][]byte)
	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(dir, name)
		if e.IsDir() || filepath.Ext(name) != ".go" || skip[path] ||
			strings.HasSuffix(name, "_test.go") || strings.HasSuffix(name, codegen.OutputFilename(".go")) {
			continue
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		files[path] = src
	}
	return files, nil
}

// resolveProjectPath locates a file by walking up the directory tree from
// the working directory.
func (a *App) resolveProjectPath(relative string) (string, error) {
	dir, err := a.getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, relative)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("unable to locate %s", relative)
}
