package record

import "slices"

// Names of the reserved fields every document carries.
const (
	FieldID    = "_id"
	FieldRev   = "_rev"
	FieldIsNew = "_isNew"
)

// DefaultReserved is the reserved set of a bare Document.
var DefaultReserved = NewReserved(FieldID, FieldRev, FieldIsNew)

// Reserved is a closed, immutable set of framework-owned field names.
// The zero value is the empty set.
type Reserved struct {
	names map[string]struct{}
}

// NewReserved builds a reserved set from names.
func NewReserved(names ...string) Reserved {
	r := Reserved{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		r.names[n] = struct{}{}
	}
	return r
}

// Has reports whether name is reserved.
func (r Reserved) Has(name string) bool {
	_, ok := r.names[name]
	return ok
}

// Len returns the number of reserved names.
func (r Reserved) Len() int {
	return len(r.names)
}

// With returns a new set containing r plus names.
func (r Reserved) With(names ...string) Reserved {
	return r.Union(NewReserved(names...))
}

// Union returns a new set containing the names of both sets.
func (r Reserved) Union(other Reserved) Reserved {
	out := Reserved{names: make(map[string]struct{}, len(r.names)+len(other.names))}
	for n := range r.names {
		out.names[n] = struct{}{}
	}
	for n := range other.names {
		out.names[n] = struct{}{}
	}
	return out
}

// Names returns the reserved names in sorted order.
func (r Reserved) Names() []string {
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}
