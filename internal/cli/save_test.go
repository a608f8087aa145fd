package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resync/internal/ir"
)

type saveResponse struct {
	Status string     `json:"status"`
	Data   SaveResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

// saveOne saves one record through the "inns" model and returns its entry.
func saveOne(t *testing.T, configPath, recordPath string) SavedRecord {
	t.Helper()
	out, _, err := execute(t, "", "--config", configPath, "--format", "json", "save", "--model", "inns", recordPath)
	require.NoError(t, err, out)

	var resp saveResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Records, 1)
	return resp.Data.Records[0]
}

func TestSaveReconcilesAndPersists(t *testing.T) {
	dir, configPath := newWorkspace(t)
	recordPath := writeFile(t, dir, "inn.yaml", "name: Inn\nextraLegacyField: x\n_owner: ops\n")

	saved := saveOne(t, configPath, recordPath)

	assert.Equal(t, StatusSaved, saved.Status)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, int64(1), saved.Rev)
	require.NotNil(t, saved.Record)
	assert.Equal(t, []string{"_id", "_rev", "_isNew", "name", "_owner", "rooms"}, saved.Record.Fields())
	assert.FileExists(t, filepath.Join(dir, "data", "resync.db"), "database path is relative to the config file")

	out, _, err := execute(t, "", "--config", configPath, "show", saved.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "inns/"+saved.ID+" rev 1 (seq 1, ")
	assert.Contains(t, out, `"name":"Inn","rooms":1}`)
	assert.NotContains(t, out, "extraLegacyField")
	assert.NotContains(t, out, "_owner", "reserved fields are not persisted")
}

func TestSaveTextSummary(t *testing.T) {
	dir, configPath := newWorkspace(t)
	good := writeFile(t, dir, "good.yaml", "name: Inn\n")
	bad := writeFile(t, dir, "bad.yaml", "rooms: 0\n")

	out, _, err := execute(t, "", "--config", configPath, "save", "-m", "inns", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✓ "+good+" → ")
	assert.Contains(t, out, "✗ "+bad+" (rejected)")
	assert.Contains(t, out, "[E201] name")
	assert.Contains(t, out, "Save Summary: 1 saved, 1 failed, 2 total")
}

func TestSaveRejectedJSON(t *testing.T) {
	dir, configPath := newWorkspace(t)
	recordPath := writeFile(t, dir, "inn.json", `{"name":"Inn","stars":9}`)

	out, _, err := execute(t, "", "--config", configPath, "--format", "json", "save", "--model", "inns", recordPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp saveResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	saved := resp.Data.Records[0]
	assert.Equal(t, StatusRejected, saved.Status)
	require.Len(t, saved.Issues, 1)
	assert.Equal(t, "stars", saved.Issues[0].Field)

	out, _, err = execute(t, "", "--config", configPath, "list")
	require.NoError(t, err)
	assert.Equal(t, "No documents.\n", out)
}

func TestSaveExistingDocument(t *testing.T) {
	dir, configPath := newWorkspace(t)
	first := saveOne(t, configPath, writeFile(t, dir, "inn.yaml", "name: Inn\n"))

	// A copy read at rev 1 saves a second revision.
	updated := writeFile(t, dir, "updated.json",
		`{"_id":"`+first.ID+`","_rev":1,"_isNew":false,"name":"Tavern","rooms":4}`)
	second := saveOne(t, configPath, updated)
	assert.Equal(t, StatusSaved, second.Status)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2), second.Rev)

	// The same copy is now stale, and a different body conflicts.
	stale := writeFile(t, dir, "stale.json",
		`{"_id":"`+first.ID+`","_rev":1,"_isNew":false,"name":"Hostel"}`)
	out, _, err := execute(t, "", "--config", configPath, "--format", "json", "save", "--model", "inns", stale)
	require.Error(t, err)

	var resp saveResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, StatusConflict, resp.Data.Records[0].Status)

	out, _, err = execute(t, "", "--config", configPath, "--format", "json", "show", first.ID, "--history")
	require.NoError(t, err)

	var history struct {
		Data []RevisionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	require.Len(t, history.Data, 2)
	assert.Equal(t, int64(1), history.Data[0].Rev)
	assert.Equal(t, int64(2), history.Data[1].Rev)
	name, _ := history.Data[1].Record.Get("name")
	assert.Equal(t, ir.IRString("Tavern"), name)
}

func TestSaveCommandErrors(t *testing.T) {
	dir, configPath := newWorkspace(t)
	recordPath := writeFile(t, dir, "inn.yaml", "name: Inn\n")
	badConfig := writeFile(t, dir, "bad.yaml", "models:\n  - name: inns\n    schema: {kind: avro, path: x}\n")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown model", []string{"--config", configPath, "save", "--model", "hotels", recordPath}, ErrCodeConfig},
		{"missing config", []string{"--config", filepath.Join(dir, "nope.yaml"), "save", "--model", "inns", recordPath}, ErrCodeConfig},
		{"invalid config", []string{"--config", badConfig, "save", "--model", "inns", recordPath}, ErrCodeConfig},
		{"database directory missing", []string{"--config", configPath, "--db", filepath.Join(dir, "no", "such", "dir", "x.db"), "save", "--model", "inns", recordPath}, ErrCodeStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "", append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestSaveRequiresModelFlag(t *testing.T) {
	_, _, err := execute(t, "", "save", "inn.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "model" not set`)
}

func TestShowNotFound(t *testing.T) {
	_, configPath := newWorkspace(t)

	for _, args := range [][]string{
		{"show", "missing"},
		{"show", "missing", "--history"},
	} {
		out, _, err := execute(t, "", append([]string{"--config", configPath, "--format", "json"}, args...)...)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, "document missing not found", resp.Error.Message)
	}
}

func TestListDocuments(t *testing.T) {
	dir, configPath := newWorkspace(t)
	a := saveOne(t, configPath, writeFile(t, dir, "a.yaml", "name: A\n"))
	b := saveOne(t, configPath, writeFile(t, dir, "b.yaml", "name: B\n"))

	out, _, err := execute(t, "", "--config", configPath, "--format", "json", "list", "--collection", "inns")
	require.NoError(t, err)

	var resp struct {
		Data []ir.DocumentSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, a.ID, resp.Data[0].ID)
	assert.Equal(t, b.ID, resp.Data[1].ID)

	out, _, err = execute(t, "", "--config", configPath, "list", "--collection", "hotels")
	require.NoError(t, err)
	assert.Equal(t, "No documents.\n", out)

	out, _, err = execute(t, "", "--config", configPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, a.ID)
	assert.Contains(t, out, "inns")
}
