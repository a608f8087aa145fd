package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/legacy_field_stripped.yaml")
	require.NoError(t, err)

	assert.Equal(t, "legacy_field_stripped", scenario.Name)
	assert.Equal(t, "inns", scenario.Collection)
	assert.Equal(t, []string{"_reserved"}, scenario.Reserved)
	assert.Equal(t, 2, scenario.Passes)
	assert.Equal(t, []string{"name", "extraLegacyField", "_reserved"}, scenario.Record.Fields())
	require.NotNil(t, scenario.Expect.Record)
	require.NotNil(t, scenario.Expect.Stored)
}

func TestLoadScenario_ResolvesSchemaPath(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/stars_out_of_bound.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "schemas"), scenario.Schema.Path)
}

func TestLoadScenario_AbsoluteSchemaPathUnchanged(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "inn.schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{"type":"object"}`), 0644))

	path := writeScenario(t, t.TempDir(), `
name: abs
description: "absolute path"
schema:
  kind: jsonschema
  path: `+schemaPath+`
record:
  name: Inn
`)
	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, schemaPath, scenario.Schema.Path)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "misspelled key"
schema:
  kind: cue
  source: "#A: {}"
  defintion: "#A"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "defintion")
}

func TestParseScenario_RecordNotMapping(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad
description: "record is a list"
record: [a, b]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected mapping")
}

func TestValidateScenario(t *testing.T) {
	base := `
name: v
description: "validation"
`
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing name", "description: d\nschema: {kind: cue, source: x}\n", "name is required"},
		{"missing description", "name: n\nschema: {kind: cue, source: x}\n", "description is required"},
		{"missing kind", base + "schema: {source: x}\n", "schema.kind is required"},
		{"bad kind", base + "schema: {kind: avro, source: x}\n", `schema.kind must be cue or jsonschema, got "avro"`},
		{"no source", base + "schema: {kind: cue}\n", "schema needs source or path"},
		{"source and path", base + "schema: {kind: cue, source: x, path: testdata/schemas}\n", "mutually exclusive"},
		{"missing path", base + "schema: {kind: cue, path: testdata/nowhere}\n", "schema file not found"},
		{"bad unknown keys", base + "schema: {kind: cue, source: x, unknown_keys: ignore}\n", "schema.unknown_keys"},
		{"negative passes", base + "schema: {kind: cue, source: x}\npasses: -1\n", "passes must be non-negative"},
		{
			"stored and not stored",
			base + "schema: {kind: cue, source: x}\nexpect: {not_stored: true, stored: {a: 1}}\n",
			"not_stored and stored are mutually exclusive",
		},
		{
			"empty error expectation",
			base + "schema: {kind: cue, source: x}\nexpect: {error: {fields: []}}\n",
			"fields or codes is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScenario([]byte(tt.body))
			require.NoError(t, err)

			err = validateScenario(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: ok
description: "valid"
schema: {kind: jsonschema, source: "{}", unknown_keys: reject}
expect:
  error: {codes: [E203]}
`))
	require.NoError(t, err)
	assert.NoError(t, validateScenario(s))
}

func TestLoadScenario_WrapsValidationError(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "name: x\ndescription: y\n")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario: schema.kind is required")
}
