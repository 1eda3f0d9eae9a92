package service

import (
	"context"
	"fmt"
	"io"

	"nodestore/internal/codec"
	"nodestore/internal/domain"
	"nodestore/internal/repository"

	"github.com/rs/zerolog"
)

// exportBatchSize is the page size used to stream every node on export
const exportBatchSize = 500

// NodeService provides business logic for node operations
type NodeService struct {
	repo     repository.NodeRepository
	eventBus *EventBus
	log      zerolog.Logger
}

// NewNodeService creates a new node service
func NewNodeService(repo repository.NodeRepository, eventBus *EventBus, log zerolog.Logger) *NodeService {
	return &NodeService{
		repo:     repo,
		eventBus: eventBus,
		log:      log.With().Str("component", "node_service").Logger(),
	}
}

// GetNode retrieves a single node by ID
func (s *NodeService) GetNode(ctx context.Context, id int64) (*domain.Node, error) {
	return s.repo.GetNode(ctx, id)
}

// ListNodes returns one page of nodes in id order
func (s *NodeService) ListNodes(ctx context.Context, page domain.Page) ([]domain.Node, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListNodes(ctx, page)
}

// CountNodes returns the total number of nodes
func (s *NodeService) CountNodes(ctx context.Context) (int, error) {
	return s.repo.CountNodes(ctx)
}

// CreateNode validates input and creates a new node
func (s *NodeService) CreateNode(ctx context.Context, input domain.NodeInput) (*domain.Node, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	node, err := s.repo.CreateNode(ctx, input)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Int64("node_id", node.ID).Str("label", node.Label).Msg("node created")
	s.publish(EventNodeCreated, node)

	return node, nil
}

// UpdateNode replaces the label and attributes of an existing node
func (s *NodeService) UpdateNode(ctx context.Context, id int64, input domain.NodeInput) (*domain.Node, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	node, err := s.repo.UpdateNode(ctx, id, input)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Int64("node_id", node.ID).Msg("node updated")
	s.publish(EventNodeUpdated, node)

	return node, nil
}

// DeleteNode permanently removes a node
func (s *NodeService) DeleteNode(ctx context.Context, id int64) error {
	if err := s.repo.DeleteNode(ctx, id); err != nil {
		return err
	}

	s.log.Debug().Int64("node_id", id).Msg("node deleted")
	s.publish(EventNodeDeleted, map[string]int64{"id": id})

	return nil
}

// ImportResult summarizes an import
type ImportResult struct {
	Imported int           `json:"imported"`
	Nodes    []domain.Node `json:"nodes"`
}

// Import parses a document and creates all of its nodes in one transaction.
// Ids present in the document are ignored.
func (s *NodeService) Import(ctx context.Context, format string, r io.Reader) (*ImportResult, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}

	doc, err := c.Parse(r)
	if err != nil {
		return nil, err
	}

	inputs := doc.Inputs()
	for i := range inputs {
		if err := inputs[i].Validate(); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}

	nodes, err := s.repo.CreateNodes(ctx, inputs)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Imported: len(nodes), Nodes: nodes}

	s.log.Info().Int("count", result.Imported).Str("format", c.Format()).Msg("nodes imported")
	s.publish(EventNodesImported, map[string]int{"imported": result.Imported})

	return result, nil
}

// Export writes every node to w in the requested format
func (s *NodeService) Export(ctx context.Context, format string, w io.Writer) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}

	doc, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	return c.Export(doc, w)
}

// ExportContentType returns the MIME type for an export format
func (s *NodeService) ExportContentType(format string) (string, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return "", err
	}
	return c.ContentType(), nil
}

// snapshot pages through the store and collects every node
func (s *NodeService) snapshot(ctx context.Context) (*domain.NodeDocument, error) {
	doc := domain.NewNodeDocument()
	page := domain.Page{Skip: 0, Limit: exportBatchSize}
	for {
		nodes, err := s.repo.ListNodes(ctx, page)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			doc.AddNode(n)
		}
		if len(nodes) < page.Limit {
			return doc, nil
		}
		page.Skip += page.Limit
	}
}

// Ping checks store connectivity
func (s *NodeService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *NodeService) publish(eventType EventType, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(Event{Type: eventType, Payload: payload})
}
