package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/resync/internal/ir"
)

// Document is the ordered, mutable Record implementation used by the host
// framework. Its identity is the pointer; the _id field is bookkeeping.
//
// Document is not safe for concurrent mutation. Callers serialize access
// per document (see model.Model.Save).
type Document struct {
	order  []string
	values map[string]ir.IRValue
}

var _ Record = (*Document)(nil)

// NewDocument creates a document with fields in the given order.
// A repeated name keeps its first position and its last value.
func NewDocument(fields ...Field) *Document {
	d := &Document{values: make(map[string]ir.IRValue, len(fields))}
	for _, f := range fields {
		d.Set(f.Name, f.Value)
	}
	return d
}

// Fields implements Record.
func (d *Document) Fields() []string {
	return slices.Clone(d.order)
}

// Get implements Record.
func (d *Document) Get(name string) (ir.IRValue, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Set implements Record. A nil value is stored as IRNull.
func (d *Document) Set(name string, value ir.IRValue) {
	if d.values == nil {
		d.values = make(map[string]ir.IRValue)
	}
	if value == nil {
		value = ir.IRNull{}
	}
	if _, exists := d.values[name]; !exists {
		d.order = append(d.order, name)
	}
	d.values[name] = value
}

// Delete implements Record.
func (d *Document) Delete(name string) {
	if _, exists := d.values[name]; !exists {
		return
	}
	delete(d.values, name)
	if i := slices.Index(d.order, name); i >= 0 {
		d.order = slices.Delete(d.order, i, i+1)
	}
}

// Entries returns the fields as name/value pairs in enumeration order.
// Values are shared.
func (d *Document) Entries() []Field {
	out := make([]Field, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, Field{Name: name, Value: d.values[name]})
	}
	return out
}

// Has reports whether name is an own field.
func (d *Document) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

// Len returns the number of fields.
func (d *Document) Len() int {
	return len(d.order)
}

// ID returns the _id field when it holds a string.
func (d *Document) ID() string {
	if s, ok := d.values[FieldID].(ir.IRString); ok {
		return string(s)
	}
	return ""
}

// Object returns all fields as an unordered object. Values are shared.
func (d *Document) Object() ir.IRObject {
	out := make(ir.IRObject, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy with the same field order.
func (d *Document) Clone() *Document {
	out := &Document{
		order:  slices.Clone(d.order),
		values: make(map[string]ir.IRValue, len(d.values)),
	}
	for k, v := range d.values {
		out.values[k] = ir.Clone(v)
	}
	return out
}

// Equal reports whether both documents hold the same fields, in the same
// order, with structurally equal values.
func (d *Document) Equal(other *Document) bool {
	if d == nil || other == nil {
		return d == other
	}
	if !slices.Equal(d.order, other.order) {
		return false
	}
	for _, name := range d.order {
		if !ir.Equal(d.values[name], other.values[name]) {
			return false
		}
	}
	return true
}

// String renders the document as ordered JSON, for logs and test failures.
func (d *Document) String() string {
	data, err := d.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid document: %v>", err)
	}
	return string(data)
}

// MarshalJSON writes fields in enumeration order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := ir.MarshalIRValue(d.values[name])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the order of its keys.
// Nested objects are unordered IRObjects.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode document: expected object, got %v", tok)
	}

	*d = Document{values: make(map[string]ir.IRValue)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode document: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode document: expected key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode field %q: %w", name, err)
		}
		val, err := ir.UnmarshalIRValue(raw)
		if err != nil {
			return fmt.Errorf("decode field %q: %w", name, err)
		}
		d.Set(name, val)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
