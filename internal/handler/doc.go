// Package handler implements the HTTP surface of the node store.
//
// # Routes
//
//	POST   /nodes/            create a node (201)
//	GET    /nodes/            list nodes, ?skip=&limit= (X-Total-Count, ETag)
//	GET    /nodes/{id}        fetch one node
//	PUT    /nodes/{id}        replace label and attributes
//	DELETE /nodes/{id}        delete, returns {"detail":"deleted"}
//	GET    /nodes/export      ?format=json|yaml
//	POST   /nodes/import      ?format=json|yaml, returns {"imported": n}
//	GET    /events            server-sent node events
//	GET    /healthz           store connectivity
//
// Collection routes are also served without the trailing slash.
//
// # Errors
//
// Error responses return JSON with {error, details} structure. Validation
// failures (including malformed bodies and bad ids or query values) map to
// 422, unknown ids to 404 and everything else to 500.
//
// # Middleware
//
// NewRouter wraps the mux with request ids, panic recovery, CORS and request
// logging, in that order.
package handler
