package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/resync/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRevision creates an unsaved revision of an inn document.
func createTestRevision(id, name string) ir.Revision {
	return ir.Revision{
		DocumentID: id,
		Collection: "inns",
		Fields:     []string{"name", "rooms"},
		Body: ir.IRObject{
			"name":  ir.IRString(name),
			"rooms": ir.IRInt(12),
		},
	}
}
