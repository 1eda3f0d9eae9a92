package handler

import (
	"net/http"

	"github.com/rs/zerolog"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	CORSOrigins []string
	// Events serves GET /events when set
	Events http.Handler
}

// NewRouter registers the node API and wraps it in the standard middleware
func NewRouter(nodes *NodeHandler, log zerolog.Logger, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	// Collection routes, with and without the trailing slash
	for _, prefix := range []string{"/nodes", "/nodes/{$}"} {
		mux.HandleFunc("GET "+prefix, nodes.ListNodes)
		mux.HandleFunc("POST "+prefix, nodes.CreateNode)
	}

	mux.HandleFunc("GET /nodes/export", nodes.ExportNodes)
	mux.HandleFunc("POST /nodes/import", nodes.ImportNodes)

	mux.HandleFunc("GET /nodes/{id}", nodes.GetNode)
	mux.HandleFunc("PUT /nodes/{id}", nodes.UpdateNode)
	mux.HandleFunc("DELETE /nodes/{id}", nodes.DeleteNode)

	mux.HandleFunc("GET /healthz", nodes.Health)

	if opts.Events != nil {
		mux.Handle("GET /events", opts.Events)
	}

	return Chain(mux,
		RequestID,
		Recover(log),
		CORS(opts.CORSOrigins),
		Logger(log),
	)
}
