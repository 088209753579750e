package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Column maps a display header to a record field name.
type Column struct {
	Header string
	Field  string
}

// FieldMap is an ordered header-to-field mapping. In YAML it is a plain
// mapping whose key order is the column order.
type FieldMap []Column

// Headers returns the display headers in order.
func (m FieldMap) Headers() []string {
	headers := make([]string, len(m))
	for i, c := range m {
		headers[i] = c.Header
	}
	return headers
}

// Fields returns the field names in order.
func (m FieldMap) Fields() []string {
	fields := make([]string, len(m))
	for i, c := range m {
		fields[i] = c.Field
	}
	return fields
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *FieldMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: field map must be a mapping of header: field", node.Line)
	}

	columns := make(FieldMap, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: field map entries must be scalars", key.Line)
		}
		if value.Value == "" {
			return fmt.Errorf("line %d: header %q has no field", key.Line, key.Value)
		}
		columns = append(columns, Column{Header: key.Value, Field: value.Value})
	}
	*m = columns
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m FieldMap) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range m {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Header},
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Field},
		)
	}
	return node, nil
}
