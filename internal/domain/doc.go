// Package domain defines the core types of the node store.
//
// # Core Types
//
// Node is the only persisted entity: a store-assigned integer id, a short
// label and an opaque JSON attribute payload.
//
// Attributes wraps the raw JSON payload. The store never looks inside it
// beyond checking that it is a well-formed array or object.
//
// NodeInput carries the caller-supplied label and attributes for create and
// update, with defaulting (Normalize) and constraint checks (Validate).
//
// Page is the offset/limit window used by list.
//
// # Errors
//
// ValidationError marks malformed input and is always raised before any
// store access. ErrNotFound marks a reference to a node id that does not
// exist. Every other error is a storage failure.
//
// # Design Principles
//
// - No database or external dependencies
// - Attribute payloads stay byte-opaque end to end
package domain
