package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxLabelLength is the maximum number of characters in a node label
const MaxLabelLength = 100

// Node is the single persisted entity: an id, a short label and an opaque
// JSON attribute payload.
type Node struct {
	ID         int64      `json:"id"`
	Label      string     `json:"label"`
	Attributes Attributes `json:"attributes"`
}

// NodeInput carries the caller-supplied fields for create and update.
// The id is never part of the input; the store assigns it.
type NodeInput struct {
	Label      string     `json:"label"`
	Attributes Attributes `json:"attributes"`
}

// NewNodeInput builds an input with defaulted attributes
func NewNodeInput(label string, attrs Attributes) NodeInput {
	in := NodeInput{Label: label, Attributes: attrs}
	in.Normalize()
	return in
}

// Normalize fills in defaults. Missing attributes become an empty array.
func (in *NodeInput) Normalize() {
	if in.Attributes.IsZero() {
		in.Attributes = EmptyAttributes()
	}
}

// Validate checks the label bound and the attribute payload shape
func (in NodeInput) Validate() error {
	if strings.TrimSpace(in.Label) == "" {
		return NewValidationError("label", "label is required")
	}
	if n := utf8.RuneCountInString(in.Label); n > MaxLabelLength {
		return NewValidationError("label", fmt.Sprintf("label must be at most %d characters, got %d", MaxLabelLength, n))
	}
	if err := in.Attributes.Validate(); err != nil {
		return err
	}
	return nil
}

// Apply builds the node that results from writing this input under id
func (in NodeInput) Apply(id int64) *Node {
	return &Node{
		ID:         id,
		Label:      in.Label,
		Attributes: in.Attributes.Clone(),
	}
}
