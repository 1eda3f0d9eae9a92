package repository

import (
	"context"

	"nodestore/internal/domain"
)

// NodeRepository is the Node Store: durable storage and retrieval of nodes
// and sole owner of the schema.
//
// Every method runs as a single transaction or atomic statement. Methods
// that reference an id return an error wrapping domain.ErrNotFound when no
// node has that id, and in that case nothing is mutated.
type NodeRepository interface {
	// Schema
	Migrate(ctx context.Context) error

	// Read operations
	GetNode(ctx context.Context, id int64) (*domain.Node, error)
	ListNodes(ctx context.Context, page domain.Page) ([]domain.Node, error)
	CountNodes(ctx context.Context) (int, error)

	// Write operations
	CreateNode(ctx context.Context, input domain.NodeInput) (*domain.Node, error)
	CreateNodes(ctx context.Context, inputs []domain.NodeInput) ([]domain.Node, error)
	UpdateNode(ctx context.Context, id int64, input domain.NodeInput) (*domain.Node, error)
	DeleteNode(ctx context.Context, id int64) error

	// Ping checks connectivity
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}
