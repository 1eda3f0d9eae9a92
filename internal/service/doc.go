// Package service implements the business logic of the node store.
//
// NodeService sits between the HTTP handlers and the repository. It
// validates input before any store access, calls the repository, and
// publishes change events on success.
//
// # Event System
//
// EventBus fans node events (node_created, node_updated, node_deleted,
// nodes_imported) out to subscribers without blocking. The SSE hub and the
// optional Redis publisher subscribe to it.
//
// # Import and Export
//
// Nodes can be exported to and imported from JSON or YAML documents via the
// codec package. Import is all-or-nothing and always assigns fresh ids.
package service
