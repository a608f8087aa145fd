package reconcile

import (
	"github.com/roach88/resync/internal/ir"
	"github.com/roach88/resync/internal/record"
)

// Outcome summarises the mutations one Apply made.
type Outcome struct {
	// Assigned lists extracted names that were reassigned from the result.
	Assigned []string `json:"assigned"`
	// Changed is the subset of Assigned whose value actually differs.
	Changed []string `json:"changed"`
	// Deleted lists extracted names absent from the result.
	Deleted []string `json:"deleted"`
	// Added lists result names that were not extracted (defaults).
	Added []string `json:"added"`
}

// Mutated reports whether the record's user fields now differ from before.
func (o Outcome) Mutated() bool {
	return len(o.Changed) > 0 || len(o.Deleted) > 0 || len(o.Added) > 0
}

// ApplyValidated makes the record's user fields match validated.
//
// Every name in fieldNames is assigned from validated when present there and
// deleted otherwise. Keys of validated that are not in fieldNames are then
// assigned in canonical key order. Fields outside both sets, reserved fields
// included, are never read or written.
//
// ApplyValidated does not filter reserved names out of validated; use
// Reconciler.Apply for that.
func ApplyValidated(rec record.Record, fieldNames []string, validated ir.IRObject) Outcome {
	if rec == nil {
		panic("reconcile: ApplyValidated called with a nil record")
	}

	var out Outcome
	seen := make(map[string]struct{}, len(fieldNames))
	for _, name := range fieldNames {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		val, ok := validated[name]
		if !ok {
			rec.Delete(name)
			out.Deleted = append(out.Deleted, name)
			continue
		}
		if prev, had := rec.Get(name); !had || !ir.Equal(prev, val) {
			out.Changed = append(out.Changed, name)
		}
		rec.Set(name, val)
		out.Assigned = append(out.Assigned, name)
	}

	for _, name := range validated.SortedKeys() {
		if _, ok := seen[name]; ok {
			continue
		}
		rec.Set(name, validated[name])
		out.Added = append(out.Added, name)
	}
	return out
}
