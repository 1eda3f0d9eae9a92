package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nodestore/internal/domain"
	"nodestore/internal/service"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

const (
	maxNodeBodyBytes   = 1 << 20
	maxImportBodyBytes = 16 << 20
	healthTimeout      = 2 * time.Second
)

// NodeService is the business layer the handler drives
type NodeService interface {
	GetNode(ctx context.Context, id int64) (*domain.Node, error)
	ListNodes(ctx context.Context, page domain.Page) ([]domain.Node, error)
	CountNodes(ctx context.Context) (int, error)
	CreateNode(ctx context.Context, input domain.NodeInput) (*domain.Node, error)
	UpdateNode(ctx context.Context, id int64, input domain.NodeInput) (*domain.Node, error)
	DeleteNode(ctx context.Context, id int64) error
	Import(ctx context.Context, format string, r io.Reader) (*service.ImportResult, error)
	Export(ctx context.Context, format string, w io.Writer) error
	ExportContentType(format string) (string, error)
	Ping(ctx context.Context) error
}

// NodeHandler handles node API requests
type NodeHandler struct {
	svc NodeService
	log zerolog.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(svc NodeService, log zerolog.Logger) *NodeHandler {
	return &NodeHandler{
		svc: svc,
		log: log.With().Str("component", "node_handler").Logger(),
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// DeleteResponse confirms a delete
type DeleteResponse struct {
	Detail string `json:"detail"`
}

// ImportResponse reports how many nodes an import created
type ImportResponse struct {
	Imported int `json:"imported"`
}

// ListNodes returns one page of nodes
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		h.writeFailure(w, r, "Invalid query", err)
		return
	}

	nodes, err := h.svc.ListNodes(r.Context(), page)
	if err != nil {
		h.writeFailure(w, r, "Failed to list nodes", err)
		return
	}

	total, err := h.svc.CountNodes(r.Context())
	if err != nil {
		h.writeFailure(w, r, "Failed to count nodes", err)
		return
	}

	if nodes == nil {
		nodes = []domain.Node{}
	}

	body, err := json.Marshal(nodes)
	if err != nil {
		h.writeFailure(w, r, "Failed to encode nodes", err)
		return
	}

	etag := pageETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(append(body, '\n'))
}

// GetNode returns a single node
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeFailure(w, r, "Invalid node ID", err)
		return
	}

	node, err := h.svc.GetNode(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, "Failed to get node", err)
		return
	}

	h.writeJSON(w, node, http.StatusOK)
}

// CreateNode creates a new node
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	input, err := decodeInput(w, r)
	if err != nil {
		h.writeFailure(w, r, "Invalid request body", err)
		return
	}

	node, err := h.svc.CreateNode(r.Context(), input)
	if err != nil {
		h.writeFailure(w, r, "Failed to create node", err)
		return
	}

	h.writeJSON(w, node, http.StatusCreated)
}

// UpdateNode replaces the label and attributes of an existing node
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeFailure(w, r, "Invalid node ID", err)
		return
	}

	input, err := decodeInput(w, r)
	if err != nil {
		h.writeFailure(w, r, "Invalid request body", err)
		return
	}

	node, err := h.svc.UpdateNode(r.Context(), id, input)
	if err != nil {
		h.writeFailure(w, r, "Failed to update node", err)
		return
	}

	h.writeJSON(w, node, http.StatusOK)
}

// DeleteNode deletes a node
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.writeFailure(w, r, "Invalid node ID", err)
		return
	}

	if err := h.svc.DeleteNode(r.Context(), id); err != nil {
		h.writeFailure(w, r, "Failed to delete node", err)
		return
	}

	h.writeJSON(w, DeleteResponse{Detail: "deleted"}, http.StatusOK)
}

// ExportNodes writes every node as a JSON or YAML document
func (h *NodeHandler) ExportNodes(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	contentType, err := h.svc.ExportContentType(format)
	if err != nil {
		h.writeFailure(w, r, "Invalid export format", err)
		return
	}

	// Buffer so a storage failure can still produce an error response
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), format, &buf); err != nil {
		h.writeFailure(w, r, "Failed to export nodes", err)
		return
	}

	ext := "json"
	if strings.Contains(contentType, "yaml") {
		ext = "yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=nodes.%s", ext))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ImportNodes creates every node of an uploaded document
func (h *NodeHandler) ImportNodes(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	body := http.MaxBytesReader(w, r.Body, maxImportBodyBytes)

	result, err := h.svc.Import(r.Context(), format, body)
	if err != nil {
		h.writeFailure(w, r, "Failed to import nodes", err)
		return
	}

	h.writeJSON(w, ImportResponse{Imported: result.Imported}, http.StatusCreated)
}

// Health reports whether the store is reachable
func (h *NodeHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("health check failed")
		h.writeJSON(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Helper methods

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusUnprocessableEntity
	case domain.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *NodeHandler) writeFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusNotFound {
		msg = "Not found"
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", RequestIDFromContext(r.Context())).
			Msg(msg)
	}
	h.writeError(w, msg, err.Error(), status)
}

func (h *NodeHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("failed to encode JSON")
	}
}

func (h *NodeHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}

// decodeInput reads a {label, attributes} body. Malformed JSON is reported
// as a validation error.
func decodeInput(w http.ResponseWriter, r *http.Request) (domain.NodeInput, error) {
	var input domain.NodeInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNodeBodyBytes))
	if err := dec.Decode(&input); err != nil {
		if errors.Is(err, io.EOF) {
			return input, domain.NewValidationError("body", "request body is required")
		}
		return input, domain.NewValidationError("body", err.Error())
	}
	if dec.More() {
		return input, domain.NewValidationError("body", "request body must contain a single JSON object")
	}
	return input, nil
}

func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("id", fmt.Sprintf("invalid node id %q", raw))
	}
	return id, nil
}

func parsePage(r *http.Request) (domain.Page, error) {
	page := domain.DefaultPage()
	q := r.URL.Query()

	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, domain.NewValidationError("skip", fmt.Sprintf("skip must be an integer, got %q", raw))
		}
		page.Skip = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, domain.NewValidationError("limit", fmt.Sprintf("limit must be an integer, got %q", raw))
		}
		page.Limit = n
	}

	return page, page.Validate()
}

func pageETag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
