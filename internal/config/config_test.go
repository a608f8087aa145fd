package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/model"
	"github.com/roach88/resync/internal/record"
)

const innCUE = `
#Inn: {
	name:  string
	rooms: *1 | int & >=1
}
`

const resyncYAML = `
database: data/resync.db
log_level: debug
models:
  - name: inns
    reserved: [_reserved]
    unknown_keys: strip
    schema:
      kind: cue
      path: schemas/inn.cue
      definition: "#Inn"
  - name: hostels
    deep_snapshot: true
    schema:
      path: schemas/hostel.schema.json
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// isolateEnv clears resync variables for the test and restores them after.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RESYNC_DATABASE", "RESYNC_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadFile(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "resync.yaml")
	writeFile(t, path, resyncYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, dir, cfg.BaseDir())
	assert.Equal(t, filepath.Join(dir, "data", "resync.db"), cfg.DatabasePath())
	require.Len(t, cfg.Models, 2)

	inns := cfg.Models[0]
	assert.Equal(t, "inns", inns.Name)
	assert.Equal(t, []string{"_reserved"}, inns.Reserved)
	assert.Equal(t, SchemaConfig{Kind: "cue", Path: "schemas/inn.cue", Definition: "#Inn"}, inns.Schema)
	assert.True(t, cfg.Models[1].DeepSnapshot)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "resync.db", cfg.Database)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.File)
	assert.Equal(t, "resync.db", cfg.DatabasePath())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFindsConfigInWorkingDirectory(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, "resync.yaml"), "database: found.db\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "found.db", cfg.Database)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	isolateEnv(t)
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "resync.yaml")
	writeFile(t, path, resyncYAML)
	t.Setenv("RESYNC_DATABASE", "/var/lib/resync/env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/resync/env.db", cfg.DatabasePath())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadDotEnvFiles(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, filepath.Join(dir, ".env"), "RESYNC_LOG_LEVEL=debug\nRESYNC_DATABASE=dotenv.db\n")
	writeFile(t, filepath.Join(dir, ".env.local"), "RESYNC_LOG_LEVEL=warn\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel, ".env.local overrides .env")
	assert.Equal(t, "dotenv.db", cfg.Database)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: "resync.db",
			LogLevel: "info",
			Models: []ModelConfig{{
				Name:   "inns",
				Schema: SchemaConfig{Kind: "cue", Path: "inn.cue", Definition: "#Inn"},
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty database", func(c *Config) { c.Database = "" }, "database: must not be empty"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"missing model name", func(c *Config) { c.Models[0].Name = "" }, "models[0]: name: must not be empty"},
		{"duplicate model", func(c *Config) { c.Models = append(c.Models, c.Models[0]) }, `models[1]: duplicate name "inns"`},
		{"bad kind", func(c *Config) { c.Models[0].Schema.Kind = "xsd" }, "schema.kind"},
		{"missing path", func(c *Config) { c.Models[0].Schema.Path = "" }, "schema.path: must not be empty"},
		{"cue without definition", func(c *Config) { c.Models[0].Schema.Definition = "" }, "schema.definition"},
		{"bad unknown keys", func(c *Config) { c.Models[0].UnknownKeys = "ignore" }, "unknown_keys"},
		{"empty reserved name", func(c *Config) { c.Models[0].Reserved = []string{""} }, "reserved: empty field name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := &Config{LogLevel: "loud", Models: []ModelConfig{{}}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"database", "log_level", "name", "schema.path"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestModelLookup(t *testing.T) {
	cfg := &Config{Models: []ModelConfig{{Name: "inns"}}}

	m, err := cfg.Model("inns")
	require.NoError(t, err)
	assert.Equal(t, "inns", m.Name)

	_, err = cfg.Model("hostels")
	assert.ErrorContains(t, err, `model "hostels" is not configured`)
}

func TestModelOptionsBuildReconcilingModel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schemas", "inn.cue"), innCUE)

	mc := ModelConfig{
		Name:     "inns",
		Reserved: []string{"_reserved"},
		Schema:   SchemaConfig{Kind: "cue", Path: "schemas/inn.cue", Definition: "#Inn"},
	}
	opts, err := mc.Options(dir)
	require.NoError(t, err)

	m := model.New(mc.Name, opts...)
	doc := record.NewDocument(
		record.F(record.FieldID, ir.IRString("inn-1")),
		record.F("name", ir.IRString("Inn")),
		record.F("extraLegacyField", ir.IRString("x")),
		record.F("_reserved", ir.IRBool(true)),
	)
	require.NoError(t, m.Save(context.Background(), doc))

	assert.Equal(t, []string{"_id", "name", "_reserved", "rooms", "_rev", "_isNew"}, doc.Fields())
}

func TestModelValidatorErrors(t *testing.T) {
	mc := ModelConfig{Name: "inns", Schema: SchemaConfig{Path: "missing.cue", Definition: "#Inn"}}
	_, err := mc.Validator(t.TempDir())
	assert.ErrorContains(t, err, "model inns")

	mc = ModelConfig{Name: "inns", UnknownKeys: "ignore"}
	_, err = mc.Options(t.TempDir())
	assert.Error(t, err)
}
