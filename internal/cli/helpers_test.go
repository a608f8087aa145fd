package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const innCUE = `package hotels

#Inn: {
	name:   string
	rooms:  *1 | int & >=1
	stars?: int & >=1 & <=5
}
`

const innJSONSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "rooms": {"type": "integer", "minimum": 1, "default": 1}
  },
  "required": ["name"]
}`

// writeFile writes content to dir/name, creating parent directories.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// newWorkspace creates a config file with an "inns" model and returns the
// config path. The database lives next to it.
func newWorkspace(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()
	writeFile(t, dir, "schemas/inn.cue", innCUE)
	configPath = writeFile(t, dir, "resync.yaml", `
database: data/resync.db
log_level: warn
models:
  - name: inns
    reserved: [_owner]
    schema:
      kind: cue
      path: schemas
      definition: "#Inn"
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0755))
	return dir, configPath
}

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
