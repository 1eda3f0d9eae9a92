package codec

import (
	"fmt"
	"io"

	"nodestore/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the MIME type of exported documents
func (c *YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// yamlDocument represents the YAML structure for node data
type yamlDocument struct {
	Nodes []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	ID         int64  `yaml:"id,omitempty"`
	Label      string `yaml:"label"`
	Attributes any    `yaml:"attributes,omitempty"`
}

// parsedNode keeps attributes as a raw node so a literal null stays
// distinct from an absent key
type parsedNode struct {
	ID         int64     `yaml:"id"`
	Label      string    `yaml:"label"`
	Attributes yaml.Node `yaml:"attributes"`
}

// Parse imports a node document from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.NodeDocument, error) {
	var yd struct {
		Nodes []parsedNode `yaml:"nodes"`
	}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yd); err != nil && err != io.EOF {
		return nil, domain.NewValidationError("document", fmt.Sprintf("failed to parse YAML: %v", err))
	}

	doc := domain.NewNodeDocument()
	for i, yn := range yd.Nodes {
		attrs, err := yamlAttributes(&yn.Attributes)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		doc.AddNode(domain.Node{
			ID:         yn.ID,
			Label:      yn.Label,
			Attributes: attrs,
		})
	}

	return doc, nil
}

// Export writes a node document as YAML
func (c *YAMLCodec) Export(doc *domain.NodeDocument, w io.Writer) error {
	yd := yamlDocument{
		Nodes: make([]yamlNode, 0, len(doc.Nodes)),
	}

	for _, node := range doc.Nodes {
		value, err := node.Attributes.Value()
		if err != nil {
			return fmt.Errorf("node %d: %w", node.ID, err)
		}
		yd.Nodes = append(yd.Nodes, yamlNode{
			ID:         node.ID,
			Label:      node.Label,
			Attributes: value,
		})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&yd); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}

// yamlAttributes returns nil for a missing key and a JSON null for an
// explicit one, leaving both cases to NodeInput validation
func yamlAttributes(n *yaml.Node) (domain.Attributes, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, domain.NewValidationError("attributes", fmt.Sprintf("failed to parse YAML: %v", err))
	}
	if v == nil {
		return domain.Attributes("null"), nil
	}
	return domain.AttributesFromValue(normalizeYAML(v))
}

// normalizeYAML converts map[interface{}]interface{} values, which YAML
// produces for non-string keys, into JSON-compatible map[string]any
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
