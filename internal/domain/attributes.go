package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// AttributeKind classifies the top-level JSON value of an attribute payload
type AttributeKind string

const (
	AttributeKindNull   AttributeKind = "null"
	AttributeKindBool   AttributeKind = "bool"
	AttributeKindNumber AttributeKind = "number"
	AttributeKindString AttributeKind = "string"
	AttributeKindArray  AttributeKind = "array"
	AttributeKindObject AttributeKind = "object"
)

// Attributes is an opaque JSON value attached to a node.
//
// The store never interprets it: the raw bytes are persisted and returned as
// received. The zero value means "not supplied" and is replaced by an empty
// array on write.
type Attributes json.RawMessage

// EmptyAttributes returns the default payload, an empty array
func EmptyAttributes() Attributes {
	return Attributes("[]")
}

// NewAttributes wraps raw JSON, compacting insignificant whitespace.
// It fails when raw is not valid JSON.
func NewAttributes(raw []byte) (Attributes, error) {
	if !json.Valid(raw) {
		return nil, NewValidationError("attributes", "attributes must be valid JSON")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, NewValidationError("attributes", err.Error())
	}
	return Attributes(buf.Bytes()), nil
}

// AttributesFromValue encodes a decoded Go value (maps, slices, scalars)
func AttributesFromValue(v any) (Attributes, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, NewValidationError("attributes", fmt.Sprintf("attributes are not JSON-serializable: %v", err))
	}
	return Attributes(data), nil
}

// MustAttributes is NewAttributes for literals known to be valid
func MustAttributes(raw string) Attributes {
	a, err := NewAttributes([]byte(raw))
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether no payload was supplied
func (a Attributes) IsZero() bool {
	return len(bytes.TrimSpace(a)) == 0
}

// Kind returns the type of the top-level JSON value
func (a Attributes) Kind() AttributeKind {
	trimmed := bytes.TrimSpace(a)
	if len(trimmed) == 0 {
		return AttributeKindNull
	}
	switch trimmed[0] {
	case '{':
		return AttributeKindObject
	case '[':
		return AttributeKindArray
	case '"':
		return AttributeKindString
	case 't', 'f':
		return AttributeKindBool
	case 'n':
		return AttributeKindNull
	default:
		return AttributeKindNumber
	}
}

// Validate accepts a well-formed JSON array or object
func (a Attributes) Validate() error {
	if a.IsZero() {
		return NewValidationError("attributes", "attributes are required")
	}
	if !json.Valid(a) {
		return NewValidationError("attributes", "attributes must be valid JSON")
	}
	switch kind := a.Kind(); kind {
	case AttributeKindArray, AttributeKindObject:
		return nil
	default:
		return NewValidationError("attributes", fmt.Sprintf("attributes must be an array or an object, got %s", kind))
	}
}

// Value decodes the payload into plain Go values
func (a Attributes) Value() (any, error) {
	if a.IsZero() {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(a, &v); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return v, nil
}

// Equal compares two payloads semantically, ignoring key order and whitespace
func (a Attributes) Equal(b Attributes) bool {
	if bytes.Equal(a, b) {
		return true
	}
	va, errA := a.Value()
	vb, errB := b.Value()
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

// Clone returns an independent copy of the payload
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	return append(Attributes(nil), a...)
}

// String returns the raw JSON text
func (a Attributes) String() string {
	return string(a)
}

// MarshalJSON emits the payload verbatim, or [] when unset
func (a Attributes) MarshalJSON() ([]byte, error) {
	if a.IsZero() {
		return []byte("[]"), nil
	}
	return a, nil
}

// UnmarshalJSON keeps a copy of the raw payload, including a literal null
func (a *Attributes) UnmarshalJSON(data []byte) error {
	if a == nil {
		return fmt.Errorf("domain.Attributes: UnmarshalJSON on nil pointer")
	}
	*a = append((*a)[0:0], data...)
	return nil
}
