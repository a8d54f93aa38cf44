package integration

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/envconf"
	"github.com/eugenenazirov/envconf/internal/application"
	"github.com/eugenenazirov/envconf/internal/config"
)

const serviceSchema = `name: service
fields:
  - name: listen
    env: LISTEN_ADDR
    default: localhost:8080
    type: string
  - name: workers
    env: WORKERS
    default: 4
    type: uint8
  - name: shutdown_timeout
    env: SHUTDOWN_TIMEOUT
    default: 10s
    type: duration
  - name: debug
    env: DEBUG
    default: false
    type: bool
  - name: api_key
    env: API_KEY
    type: string
`

func newApp(t *testing.T, cfg config.Config, env envconf.Environment, out *bytes.Buffer) (*application.App, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, application.DefaultSchemaFile)
	if err := os.WriteFile(path, []byte(serviceSchema), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	app := application.New(cfg, zaptest.NewLogger(t),
		application.WithEnvironment(env),
		application.WithOutput(out),
		application.WithWorkingDir(dir),
	)
	return app, dir
}

func loadConfig(t *testing.T, env envconf.Environment) config.Config {
	t.Helper()

	cfg, err := config.Load(nil, env)
	if err != nil {
		t.Fatalf("config.Load returned error: %v", err)
	}
	return cfg
}

func TestIntegrationFlow(t *testing.T) {
	env := envconf.Environment{
		"API_KEY":        "k-123",
		"WORKERS":        "16",
		"DEBUG":          "true",
		"ENVCONF_FORMAT": "yaml",
	}

	var out bytes.Buffer
	app, _ := newApp(t, loadConfig(t, env), env, &out)

	if err := app.Resolve(application.ResolveRequest{}); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	want := "listen: localhost:8080\nworkers: 16\nshutdown_timeout: 10s\ndebug: true\napi_key: k-123\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestIntegrationAggregatedFailures(t *testing.T) {
	env := envconf.Environment{
		"WORKERS":           "300",
		"DEBUG":             "yes please",
		"ENVCONF_AGGREGATE": "true",
	}

	var out bytes.Buffer
	app, _ := newApp(t, loadConfig(t, env), env, &out)

	err := app.Resolve(application.ResolveRequest{})
	if err == nil {
		t.Fatalf("expected resolution failure")
	}

	errs := multierr.Errors(err)
	if len(errs) != 3 {
		t.Fatalf("expected 3 failures (workers, debug, api_key), got %d: %v", len(errs), err)
	}
	if !errors.Is(err, envconf.ErrMissingValue) || !errors.Is(err, envconf.ErrParse) {
		t.Fatalf("expected both missing and parse failures, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no partial output expected, got %q", out.String())
	}
}

func TestIntegrationEnvFileAndZeroDefault(t *testing.T) {
	env := envconf.Environment{"ENVCONF_POLICY": "zero-default", "ENVCONF_FORMAT": "env"}

	var out bytes.Buffer
	app, dir := newApp(t, loadConfig(t, env), env, &out)

	envFile := filepath.Join(dir, "service.env")
	if err := os.WriteFile(envFile, []byte("WORKERS=2\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	if err := app.Resolve(application.ResolveRequest{EnvFiles: []string{envFile}}); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	want := "API_KEY=\"\"\nDEBUG=\"false\"\nLISTEN_ADDR=\"localhost:8080\"\nSHUTDOWN_TIMEOUT=\"10s\"\nWORKERS=2\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out.String(), want)
	}
}
