// Package config loads resync configuration from a YAML file, RESYNC_
// environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/roach88/resync/internal/model"
	"github.com/roach88/resync/internal/schema"
)

// EnvPrefix prefixes every environment variable resync reads,
// for example RESYNC_DATABASE.
const EnvPrefix = "RESYNC"

// DefaultConfigName is the config file searched for when none is given.
const DefaultConfigName = "resync"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	Database string        `mapstructure:"database"`
	LogLevel string        `mapstructure:"log_level"`
	Models   []ModelConfig `mapstructure:"models"`

	// File is the config file used, empty when none was found.
	File string `mapstructure:"-"`
}

// ModelConfig describes one collection and the schema its documents are
// reconciled against on save.
type ModelConfig struct {
	Name         string       `mapstructure:"name"`
	Reserved     []string     `mapstructure:"reserved"`
	Schema       SchemaConfig `mapstructure:"schema"`
	UnknownKeys  string       `mapstructure:"unknown_keys"`
	DeepSnapshot bool         `mapstructure:"deep_snapshot"`
}

// SchemaConfig locates a schema. Kind is "cue" or "jsonschema"; empty
// infers it from Path.
type SchemaConfig struct {
	Kind       string `mapstructure:"kind"`
	Path       string `mapstructure:"path"`
	Definition string `mapstructure:"definition"`
}

// Load reads configuration in order of precedence:
//  1. Environment variables (RESYNC_DATABASE, RESYNC_LOG_LEVEL)
//  2. .env files (.env.local overrides .env)
//  3. Config file (path, or ./resync.yaml when path is empty)
//  4. Defaults
//
// A missing default config file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("database", "resync.db")
	v.SetDefault("log_level", "info")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(DefaultConfigName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return cfg, nil
}

// loadEnvFiles loads environment variables from .env files.
// Variables already set in the environment win.
func loadEnvFiles() {
	// Load .env.local first: godotenv never overrides a set variable.
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

// BaseDir is the directory relative paths are resolved against: the config
// file's directory, or the working directory.
func (c *Config) BaseDir() string {
	if c.File == "" {
		return "."
	}
	return filepath.Dir(c.File)
}

// DatabasePath returns Database resolved against BaseDir.
func (c *Config) DatabasePath() string {
	return resolve(c.BaseDir(), c.Database)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.Database == "" {
		errs = append(errs, errors.New("database: must not be empty"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if m.Name != "" && seen[m.Name] {
			errs = append(errs, fmt.Errorf("models[%d]: duplicate name %q", i, m.Name))
		}
		seen[m.Name] = true
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("models[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Model returns the model config called name.
func (c *Config) Model(name string) (ModelConfig, error) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, nil
		}
	}
	return ModelConfig{}, fmt.Errorf("model %q is not configured", name)
}

// Validate checks one model entry.
func (m ModelConfig) Validate() error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("name: must not be empty"))
	}
	switch m.Schema.Kind {
	case "", schema.KindCUE, schema.KindJSONSchema:
	default:
		errs = append(errs, fmt.Errorf("schema.kind: must be %s or %s, got %q", schema.KindCUE, schema.KindJSONSchema, m.Schema.Kind))
	}
	if m.Schema.Path == "" {
		errs = append(errs, errors.New("schema.path: must not be empty"))
	}
	if m.Schema.Kind == schema.KindCUE && m.Schema.Definition == "" {
		errs = append(errs, errors.New("schema.definition: required for cue schemas"))
	}
	if _, err := schema.ParseUnknownKeys(m.UnknownKeys); err != nil {
		errs = append(errs, fmt.Errorf("unknown_keys: %w", err))
	}
	for _, name := range m.Reserved {
		if name == "" {
			errs = append(errs, errors.New("reserved: empty field name"))
		}
	}
	return errors.Join(errs...)
}

// Validator compiles the model's schema. Relative schema paths are resolved
// against baseDir.
func (m ModelConfig) Validator(baseDir string) (schema.Validator, error) {
	policy, err := schema.ParseUnknownKeys(m.UnknownKeys)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	v, err := schema.Load(m.Schema.Kind, resolve(baseDir, m.Schema.Path), m.Schema.Definition,
		schema.WithUnknownKeys(policy))
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}
	return v, nil
}

// Options returns the model options this entry describes: reserved
// fields, snapshot mode and the reconciling validator.
func (m ModelConfig) Options(baseDir string) ([]model.Option, error) {
	v, err := m.Validator(baseDir)
	if err != nil {
		return nil, err
	}
	opts := []model.Option{model.WithReserved(m.Reserved...)}
	if m.DeepSnapshot {
		opts = append(opts, model.WithDeepSnapshot())
	}
	return append(opts, model.WithValidator(v)), nil
}

func resolve(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
