package config

import (
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/envconf"
	"github.com/eugenenazirov/envconf/internal/schema"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

var logFormats = []string{"json", "console"}

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	LogLevel     string         `yaml:"log_level"`
	LogFormat    string         `yaml:"log_format"`
	Policy       envconf.Policy `yaml:"-"`
	Aggregate    bool           `yaml:"aggregate"`
	EmptyAsUnset bool           `yaml:"empty_as_unset"`
	Format       string         `yaml:"format"`
}

// InitOptions translates the resolution settings into envconf options.
func (c Config) InitOptions() []envconf.InitOption {
	opts := []envconf.InitOption{envconf.WithPolicy(c.Policy)}
	if c.Aggregate {
		opts = append(opts, envconf.Aggregate())
	}
	if c.EmptyAsUnset {
		opts = append(opts, envconf.EmptyAsUnset())
	}
	return opts
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	Policy       string `yaml:"policy"`
	Aggregate    *bool  `yaml:"aggregate"`
	EmptyAsUnset *bool  `yaml:"empty_as_unset"`
	Format       string `yaml:"format"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile   string
	LogLevel     *string
	LogFormat    *string
	Policy       *string
	Aggregate    *bool
	EmptyAsUnset *bool
	Format       *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides, env envconf.Lookuper) (Config, error) {
	cfg := defaultConfig()

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if err := applyEnvConfig(&cfg, env); err != nil {
		return Config{}, fmt.Errorf("apply environment: %w", err)
	}

	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
		Policy:    envconf.Strict,
		Format:    schema.FormatYAML,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.LogFormat != "" {
		cfg.LogFormat = yamlCfg.LogFormat
	}

	if yamlCfg.Policy != "" {
		p, err := envconf.ParsePolicy(yamlCfg.Policy)
		if err != nil {
			return err
		}
		cfg.Policy = p
	}

	if yamlCfg.Aggregate != nil {
		cfg.Aggregate = *yamlCfg.Aggregate
	}

	if yamlCfg.EmptyAsUnset != nil {
		cfg.EmptyAsUnset = *yamlCfg.EmptyAsUnset
	}

	if yamlCfg.Format != "" {
		cfg.Format = yamlCfg.Format
	}

	return nil
}

// applyEnvConfig applies environment variable configuration. The values
// collected so far act as defaults, so unset variables keep them.
func applyEnvConfig(cfg *Config, env envconf.Lookuper) error {
	decl, err := envconf.Declare(
		envconf.String("log_level", func(c *Config) *string { return &c.LogLevel },
			envconf.Env("ENVCONF_LOG_LEVEL"), envconf.Default(cfg.LogLevel)),
		envconf.String("log_format", func(c *Config) *string { return &c.LogFormat },
			envconf.Env("ENVCONF_LOG_FORMAT"), envconf.Default(cfg.LogFormat)),
		envconf.Var("policy", func(c *Config) *envconf.Policy { return &c.Policy }, envconf.ParseText[envconf.Policy],
			envconf.Env("ENVCONF_POLICY"), envconf.Default(cfg.Policy.String())),
		envconf.Bool("aggregate", func(c *Config) *bool { return &c.Aggregate },
			envconf.Env("ENVCONF_AGGREGATE"), envconf.Default(cfg.Aggregate)),
		envconf.Bool("empty_as_unset", func(c *Config) *bool { return &c.EmptyAsUnset },
			envconf.Env("ENVCONF_EMPTY_AS_UNSET"), envconf.Default(cfg.EmptyAsUnset)),
		envconf.String("format", func(c *Config) *string { return &c.Format },
			envconf.Env("ENVCONF_FORMAT"), envconf.Default(cfg.Format)),
	)
	if err != nil {
		return err
	}

	resolved, err := decl.Init(env, envconf.EmptyAsUnset())
	if err != nil {
		return err
	}

	*cfg = resolved
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.LogFormat != nil && *overrides.LogFormat != "" {
		cfg.LogFormat = *overrides.LogFormat
	}

	if overrides.Policy != nil && *overrides.Policy != "" {
		p, err := envconf.ParsePolicy(*overrides.Policy)
		if err != nil {
			return fmt.Errorf("parse policy flag: %w", err)
		}
		cfg.Policy = p
	}

	if overrides.Aggregate != nil {
		cfg.Aggregate = *overrides.Aggregate
	}

	if overrides.EmptyAsUnset != nil {
		cfg.EmptyAsUnset = *overrides.EmptyAsUnset
	}

	if overrides.Format != nil && *overrides.Format != "" {
		cfg.Format = *overrides.Format
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return fmt.Errorf("log format must be one of %v, got %q", logFormats, cfg.LogFormat)
	}
	if !slices.Contains(schema.Formats(), cfg.Format) {
		return fmt.Errorf("output format must be one of %v, got %q", schema.Formats(), cfg.Format)
	}
	return nil
}
