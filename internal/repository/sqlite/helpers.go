package sqlite

import (
	"fmt"

	"nodestore/internal/domain"
)

// ============================================================================
// Node Row Scanner
// ============================================================================
//
// Column order must match between nodeColumns, scanArgs() and every SELECT
// that uses nodeColumns.

// nodeRow holds all columns from a node query for scanning
type nodeRow struct {
	ID             int64
	Label          string
	AttributesJSON string
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match nodeColumns order exactly: id, label, attributes
func (r *nodeRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,             // 1
		&r.Label,          // 2
		&r.AttributesJSON, // 3
	}
}

// toDomain converts the scanned row to a domain.Node
func (r *nodeRow) toDomain() (*domain.Node, error) {
	attrs, err := domain.NewAttributes([]byte(r.AttributesJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal attributes of node %d: %w", r.ID, err)
	}

	return &domain.Node{
		ID:         r.ID,
		Label:      r.Label,
		Attributes: attrs,
	}, nil
}

// nodeColumns returns the SELECT column list for node queries
const nodeColumns = `id, label, attributes`

// ============================================================================
// Node Write Helpers
// ============================================================================

// nodeInsertArgs prepares arguments for node INSERT/UPDATE.
// The input must already be normalized.
// Returns: label, attributes
func nodeInsertArgs(input domain.NodeInput) ([]interface{}, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid node: %w", err)
	}

	return []interface{}{
		input.Label,
		input.Attributes.String(),
	}, nil
}
