package codec

import (
	"fmt"
	"io"

	"nodestore/internal/domain"

	"github.com/bytedance/sonic"
)

// JSONCodec handles JSON import/export
type JSONCodec struct {
	api sonic.API
}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{api: sonic.ConfigStd}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the MIME type of exported documents
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Parse imports a node document from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.NodeDocument, error) {
	doc := domain.NewNodeDocument()
	decoder := c.api.NewDecoder(r)
	if err := decoder.Decode(doc); err != nil {
		return nil, domain.NewValidationError("document", fmt.Sprintf("failed to parse JSON: %v", err))
	}
	if doc.Nodes == nil {
		doc.Nodes = make([]domain.Node, 0)
	}

	return doc, nil
}

// Export writes a node document as indented JSON
func (c *JSONCodec) Export(doc *domain.NodeDocument, w io.Writer) error {
	encoder := c.api.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
