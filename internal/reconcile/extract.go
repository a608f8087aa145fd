package reconcile

import (
	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/record"
)

// ExtractUserFields returns the record's user field names in enumeration
// order and a snapshot of their current values.
//
// The snapshot is shallow: nested arrays and objects are shared with the
// record. Use ir.Clone (or Reconciler's WithDeepSnapshot) to isolate them.
//
// A nil record is a programming error and panics.
func ExtractUserFields(rec record.Record, reserved record.Reserved) ([]string, ir.IRObject) {
	if rec == nil {
		panic("reconcile: ExtractUserFields called with a nil record")
	}

	all := rec.Fields()
	names := make([]string, 0, len(all))
	snapshot := make(ir.IRObject, len(all))
	for _, name := range all {
		if reserved.Has(name) {
			continue
		}
		val, ok := rec.Get(name)
		if !ok {
			continue
		}
		if _, dup := snapshot[name]; dup {
			continue
		}
		names = append(names, name)
		snapshot[name] = val
	}
	return names, snapshot
}
