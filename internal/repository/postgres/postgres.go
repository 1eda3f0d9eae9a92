package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"nodestore/internal/domain"
	"nodestore/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ repository.NodeRepository = (*Repository)(nil)

// schema is the canonical node table. The column is named label; the legacy
// "name" column of older bootstrap scripts is not supported.
const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id SERIAL PRIMARY KEY,
	label VARCHAR(100) NOT NULL,
	attributes JSONB NOT NULL
)`

// beginner starts a transaction. *pgxpool.Pool satisfies it.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Options tunes the connection pool
type Options struct {
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
}

// Repository implements repository.NodeRepository on PostgreSQL
type Repository struct {
	pool  beginner
	close func()
	ping  func(ctx context.Context) error
}

// New connects to databaseURL, verifies connectivity and bootstraps the schema
func New(ctx context.Context, databaseURL string, opts Options) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{pool: pool, close: pool.Close, ping: pool.Ping}
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

// withTx runs fn inside a transaction. The transaction is rolled back on
// every exit path that does not commit.
func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate creates the nodes table if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to create nodes table: %w", err)
		}
		return nil
	})
}

// GetNode retrieves a single node by ID
func (r *Repository) GetNode(ctx context.Context, id int64) (*domain.Node, error) {
	if !storableID(id) {
		return nil, domain.NodeNotFound(id)
	}

	var node *domain.Node
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		node, err = scanNode(tx.QueryRow(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NodeNotFound(id)
		}
		if err != nil {
			return fmt.Errorf("failed to query node: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// ListNodes returns one page of nodes in id order
func (r *Repository) ListNodes(ctx context.Context, page domain.Page) ([]domain.Node, error) {
	nodes := make([]domain.Node, 0)
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+nodeColumns+`
			FROM nodes
			ORDER BY id
			LIMIT $1 OFFSET $2
		`, page.Limit, page.Skip)
		if err != nil {
			return fmt.Errorf("failed to query nodes: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			node, err := scanNode(rows)
			if err != nil {
				return fmt.Errorf("failed to scan node: %w", err)
			}
			nodes = append(nodes, *node)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating nodes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// CountNodes returns the total number of nodes
func (r *Repository) CountNodes(ctx context.Context) (int, error) {
	var count int64
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&count); err != nil {
			return fmt.Errorf("failed to count nodes: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// CreateNode inserts a node and returns it as stored
func (r *Repository) CreateNode(ctx context.Context, input domain.NodeInput) (*domain.Node, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid node: %w", err)
	}

	var node *domain.Node
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		node, err = insertNode(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// CreateNodes inserts all inputs in one transaction. Either every node is
// created or none is.
func (r *Repository) CreateNodes(ctx context.Context, inputs []domain.NodeInput) ([]domain.Node, error) {
	for i := range inputs {
		inputs[i].Normalize()
		if err := inputs[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid node %d: %w", i, err)
		}
	}

	nodes := make([]domain.Node, 0, len(inputs))
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		for i, input := range inputs {
			node, err := insertNode(ctx, tx, input)
			if err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			nodes = append(nodes, *node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// UpdateNode replaces the label and attributes of an existing node
func (r *Repository) UpdateNode(ctx context.Context, id int64, input domain.NodeInput) (*domain.Node, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid node: %w", err)
	}
	if !storableID(id) {
		return nil, domain.NodeNotFound(id)
	}

	var node *domain.Node
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		node, err = scanNode(tx.QueryRow(ctx, `
			UPDATE nodes SET label = $1, attributes = $2
			WHERE id = $3
			RETURNING `+nodeColumns,
			input.Label, attributesArg(input.Attributes), id))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NodeNotFound(id)
		}
		if err != nil {
			return fmt.Errorf("failed to update node: %w", constraintError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// DeleteNode permanently removes a node
func (r *Repository) DeleteNode(ctx context.Context, id int64) error {
	if !storableID(id) {
		return domain.NodeNotFound(id)
	}

	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM nodes WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete node: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.NodeNotFound(id)
		}
		return nil
	})
}

// Ping checks that the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	if r.ping == nil {
		return nil
	}
	return r.ping(ctx)
}

// Close releases the connection pool
func (r *Repository) Close() error {
	if r.close != nil {
		r.close()
	}
	return nil
}

// ============================================================================
// Row Helpers
// ============================================================================

// storableID reports whether id fits the SERIAL (int4) id column. Ids
// outside that range cannot name a row.
func storableID(id int64) bool {
	return id >= math.MinInt32 && id <= math.MaxInt32
}

// nodeColumns is the column list shared by SELECT and RETURNING clauses
const nodeColumns = `id, label, attributes`

func insertNode(ctx context.Context, tx pgx.Tx, input domain.NodeInput) (*domain.Node, error) {
	node, err := scanNode(tx.QueryRow(ctx, `
		INSERT INTO nodes (label, attributes)
		VALUES ($1, $2)
		RETURNING `+nodeColumns,
		input.Label, attributesArg(input.Attributes)))
	if err != nil {
		return nil, fmt.Errorf("failed to insert node: %w", constraintError(err))
	}
	return node, nil
}

// scanNode reads id, label, attributes from a row
func scanNode(row pgx.Row) (*domain.Node, error) {
	var (
		id    int64
		label string
		raw   []byte
	)
	if err := row.Scan(&id, &label, &raw); err != nil {
		return nil, err
	}

	attrs, err := domain.NewAttributes(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal attributes of node %d: %w", id, err)
	}

	return &domain.Node{ID: id, Label: label, Attributes: attrs}, nil
}

// attributesArg passes the payload as JSON text so pgx sends it verbatim
func attributesArg(a domain.Attributes) string {
	return a.String()
}

// PostgreSQL error codes surfaced as validation failures
const (
	codeStringDataRightTruncation = "22001"
	codeCharacterNotInRepertoire  = "22021"
	codeInvalidTextRepresentation = "22P02"
	codeUntranslatableCharacter   = "22P05"
	codeNotNullViolation          = "23502"
	codeCheckViolation            = "23514"
)

// constraintError converts column constraint violations into validation
// errors. Other errors are returned unchanged.
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeStringDataRightTruncation, codeCharacterNotInRepertoire, codeInvalidTextRepresentation,
		codeUntranslatableCharacter, codeNotNullViolation, codeCheckViolation:
		field := pgErr.ColumnName
		if field == "" {
			field = "node"
		}
		return domain.NewValidationError(field, pgErr.Message)
	default:
		return err
	}
}
