package record

import (
	"github.com/roach88/resync/internal/ir"
)

// Record is a live object whose own fields can be enumerated, read and
// mutated in place.
type Record interface {
	// Fields returns the record's own field names in enumeration order.
	// The returned slice is owned by the caller.
	Fields() []string

	// Get returns the current value of name.
	Get(name string) (ir.IRValue, bool)

	// Set assigns value to name, adding the field if it is absent.
	Set(name string, value ir.IRValue)

	// Delete removes name. Deleting an absent field is a no-op.
	Delete(name string)
}

// Field is a name/value pair used to build documents in order.
type Field struct {
	Name  string
	Value ir.IRValue
}

// F is shorthand for Field.
// Example: NewDocument(F("_id", ir.IRString("a1")), F("name", ir.IRString("Inn")))
func F(name string, value ir.IRValue) Field {
	return Field{Name: name, Value: value}
}
