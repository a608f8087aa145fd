package schema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/resync/internal/ir"
)

var issuePrinter = message.NewPrinter(language.English)

// JSONSchemaValidator validates snapshots against a compiled JSON Schema.
//
// JSON Schema does not fill in defaults, so top-level `default` values from
// the schema's properties are injected for absent fields before validation.
// A compiled schema is safe for concurrent use.
type JSONSchemaValidator struct {
	schema   *jsonschema.Schema
	declared map[string]struct{}
	defaults ir.IRObject
	opts     options
}

var _ Validator = (*JSONSchemaValidator)(nil)

// CompileJSONSchema compiles doc, registered under name (a file name or URL).
func CompileJSONSchema(name string, doc []byte, opts ...Option) (*JSONSchemaValidator, error) {
	raw, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return nil, &CompileError{Field: "jsonschema", Message: fmt.Sprintf("parse %s: %v", name, err)}
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, raw); err != nil {
		return nil, &CompileError{Field: "jsonschema", Message: fmt.Sprintf("add resource %s: %v", name, err)}
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		return nil, &CompileError{Field: "jsonschema", Message: err.Error()}
	}

	declared, defaults, err := topLevelProperties(sch)
	if err != nil {
		return nil, &CompileError{Field: "jsonschema", Message: err.Error()}
	}

	return &JSONSchemaValidator{
		schema:   sch,
		declared: declared,
		defaults: defaults,
		opts:     buildOptions(name, opts),
	}, nil
}

// topLevelProperties collects the property names the root object declares
// and their defaults, following $ref and allOf. A nil declared map means the
// schema declares no properties.
func topLevelProperties(sch *jsonschema.Schema) (map[string]struct{}, ir.IRObject, error) {
	var declared map[string]struct{}
	defaults := make(ir.IRObject)
	visited := make(map[*jsonschema.Schema]bool)

	var walk func(s *jsonschema.Schema) error
	walk = func(s *jsonschema.Schema) error {
		if s == nil || visited[s] {
			return nil
		}
		visited[s] = true

		names := slices.Sorted(maps.Keys(s.Properties))
		for _, name := range names {
			if declared == nil {
				declared = make(map[string]struct{})
			}
			declared[name] = struct{}{}
			if defaults.Has(name) {
				continue
			}
			def := propertyDefault(s.Properties[name])
			if def == nil {
				continue
			}
			val, err := ir.FromGo(*def)
			if err != nil {
				return fmt.Errorf("default for %q: %w", name, err)
			}
			defaults[name] = val
		}

		if err := walk(s.Ref); err != nil {
			return err
		}
		for _, sub := range s.AllOf {
			if err := walk(sub); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(sch); err != nil {
		return nil, nil, err
	}
	return declared, defaults, nil
}

func propertyDefault(prop *jsonschema.Schema) *any {
	if prop == nil {
		return nil
	}
	if prop.Default != nil {
		return prop.Default
	}
	if prop.Ref != nil {
		return prop.Ref.Default
	}
	return nil
}

// Name implements Named.
func (v *JSONSchemaValidator) Name() string {
	return v.opts.name
}

func (v *JSONSchemaValidator) known(name string) bool {
	if v.declared == nil {
		return true
	}
	_, ok := v.declared[name]
	return ok
}

// Validate implements Validator.
func (v *JSONSchemaValidator) Validate(ctx context.Context, snapshot ir.IRObject) (ir.IRObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, issues := applyUnknownKeys(snapshot, v.opts.unknown, v.known)
	for name, def := range v.defaults {
		if !input.Has(name) {
			input[name] = ir.Clone(def)
		}
	}

	if err := v.schema.Validate(ir.ToGo(input)); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return nil, fmt.Errorf("validate against %s: %w", v.opts.name, err)
		}
		issues = append(issues, jsonSchemaIssues(verr)...)
	}
	if len(issues) > 0 {
		sortIssues(issues)
		return nil, &ValidationError{Schema: v.opts.name, Issues: dedupeIssues(issues)}
	}
	return input, nil
}

// jsonSchemaIssues flattens the leaf causes of a validation error.
func jsonSchemaIssues(verr *jsonschema.ValidationError) []Issue {
	var issues []Issue
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		issues = append(issues, leafIssues(e)...)
	}
	walk(verr)
	return issues
}

func leafIssues(e *jsonschema.ValidationError) []Issue {
	loc := strings.Join(e.InstanceLocation, ".")
	msg := e.ErrorKind.LocalizedString(issuePrinter)

	switch k := e.ErrorKind.(type) {
	case *kind.Required:
		out := make([]Issue, 0, len(k.Missing))
		for _, name := range k.Missing {
			out = append(out, Issue{Field: joinField(loc, name), Code: ErrCodeRequired, Message: "missing property"})
		}
		return out
	case *kind.AdditionalProperties:
		props := slices.Clone(k.Properties)
		slices.Sort(props)
		out := make([]Issue, 0, len(props))
		for _, name := range props {
			out = append(out, Issue{Field: joinField(loc, name), Code: ErrCodeUnknown, Message: "additional property not allowed"})
		}
		return out
	case *kind.Type:
		return []Issue{{Field: loc, Code: ErrCodeType, Message: msg}}
	case *kind.Enum, *kind.Const, *kind.Minimum, *kind.Maximum,
		*kind.ExclusiveMinimum, *kind.ExclusiveMaximum, *kind.MultipleOf,
		*kind.MinLength, *kind.MaxLength, *kind.Pattern, *kind.Format,
		*kind.MinItems, *kind.MaxItems, *kind.UniqueItems,
		*kind.MinProperties, *kind.MaxProperties:
		return []Issue{{Field: loc, Code: ErrCodeConstraint, Message: msg}}
	default:
		return []Issue{{Field: loc, Code: ErrCodeInvalid, Message: msg}}
	}
}

func joinField(loc, name string) string {
	if loc == "" {
		return name
	}
	return loc + "." + name
}
