package codec

import (
	"fmt"
	"io"
	"strings"

	"nodestore/internal/domain"
)

// Importer interface for importing node documents from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.NodeDocument, error)
	Format() string
}

// Exporter interface for exporting node documents to various formats
type Exporter interface {
	Export(doc *domain.NodeDocument, w io.Writer) error
	Format() string
	ContentType() string
}

// Codec both imports and exports one format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec registered for a format name.
// An empty name selects JSON.
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, domain.NewValidationError("format", fmt.Sprintf("unsupported format %q, must be json or yaml", format))
	}
}
