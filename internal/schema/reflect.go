package schema

import (
	"fmt"
	"reflect"

	invopop "github.com/invopop/jsonschema"
)

// FromStruct derives a JSON Schema from the Go type of v and compiles it.
//
// Field names follow json tags; fields without omitempty are required, and
// `jsonschema:"default=..."` tags become injected defaults. Nested structs
// are inlined rather than referenced.
func FromStruct(v any, opts ...Option) (*JSONSchemaValidator, error) {
	doc, err := ReflectJSONSchema(v)
	if err != nil {
		return nil, err
	}

	name := typeName(v) + ".schema.json"
	return CompileJSONSchema(name, doc, append([]Option{WithName(name)}, opts...)...)
}

// ReflectJSONSchema returns the JSON Schema document for the Go type of v.
func ReflectJSONSchema(v any) ([]byte, error) {
	r := &invopop.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	doc, err := r.Reflect(v).MarshalJSON()
	if err != nil {
		return nil, &CompileError{Field: "jsonschema", Message: fmt.Sprintf("reflect %s: %v", typeName(v), err)}
	}
	return doc, nil
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "nil"
	}
	return t.String()
}
