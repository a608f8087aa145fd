package record

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/resync/internal/ir"
)

// FromYAML builds a document from a YAML mapping node, keeping key order.
// A document node is unwrapped first.
func FromYAML(node *yaml.Node) (*Document, error) {
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, fmt.Errorf("decode document: empty YAML document")
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode document: line %d: expected mapping", node.Line)
	}

	d := NewDocument()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var raw any
		if err := valNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode field %q: line %d: %w", keyNode.Value, valNode.Line, err)
		}
		val, err := ir.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("decode field %q: line %d: %w", keyNode.Value, valNode.Line, err)
		}
		d.Set(keyNode.Value, val)
	}
	return d, nil
}

// UnmarshalYAML implements yaml.Unmarshaler so documents can be embedded in
// YAML files (scenarios, record inputs) without losing field order.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := FromYAML(node)
	if err != nil {
		return err
	}
	*d = *decoded
	return nil
}

// ParseDocument decodes a JSON or YAML document. Input with a leading brace
// is tried as JSON first; a YAML flow mapping such as {name: Inn} falls back
// to the YAML decoder, and the JSON error is reported if both fail.
func ParseDocument(data []byte) (*Document, error) {
	if trimmed := bytes.TrimLeft(data, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '{' {
		d := NewDocument()
		jsonErr := d.UnmarshalJSON(data)
		if jsonErr == nil {
			return d, nil
		}
		if doc, err := parseYAML(data); err == nil {
			return doc, nil
		}
		return nil, jsonErr
	}
	return parseYAML(data)
}

func parseYAML(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return FromYAML(&node)
}
