package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nodestore/internal/domain"
	"nodestore/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.NodeRepository = (*Repository)(nil)

// Repository implements repository.NodeRepository using SQLite
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and bootstraps the schema.
// ":memory:" opens a private in-memory database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	return dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Migrate creates the nodes table if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL CHECK (length(label) <= 100),
		attributes TEXT NOT NULL CHECK (json_valid(attributes))
	);
	`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create nodes table: %w", err)
	}
	return nil
}

// GetNode retrieves a single node by ID
func (r *Repository) GetNode(ctx context.Context, id int64) (*domain.Node, error) {
	var row nodeRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes WHERE id = ?
	`, id).Scan(row.scanArgs()...)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NodeNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node: %w", err)
	}

	return row.toDomain()
}

// ListNodes returns one page of nodes in id order
func (r *Repository) ListNodes(ctx context.Context, page domain.Page) ([]domain.Node, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes
		ORDER BY id
		LIMIT ? OFFSET ?
	`, page.Limit, page.Skip)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]domain.Node, 0)
	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		node, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

// CountNodes returns the total number of nodes
func (r *Repository) CountNodes(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return count, nil
}

// CreateNode inserts a node and returns it with its assigned ID
func (r *Repository) CreateNode(ctx context.Context, input domain.NodeInput) (*domain.Node, error) {
	input.Normalize()
	args, err := nodeInsertArgs(input)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO nodes (label, attributes) VALUES (?, ?)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert node: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read node id: %w", err)
	}

	return input.Apply(id), nil
}

// CreateNodes inserts all inputs in one transaction. Either every node is
// created or none is.
func (r *Repository) CreateNodes(ctx context.Context, inputs []domain.NodeInput) ([]domain.Node, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (label, attributes) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	nodes := make([]domain.Node, 0, len(inputs))
	for i, input := range inputs {
		input.Normalize()
		args, err := nodeInsertArgs(input)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to insert node %d: %w", i, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read id of node %d: %w", i, err)
		}
		nodes = append(nodes, *input.Apply(id))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nodes, nil
}

// UpdateNode replaces the label and attributes of an existing node
func (r *Repository) UpdateNode(ctx context.Context, id int64, input domain.NodeInput) (*domain.Node, error) {
	input.Normalize()
	args, err := nodeInsertArgs(input)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE nodes SET label = ?, attributes = ? WHERE id = ?
	`, append(args, id)...)
	if err != nil {
		return nil, fmt.Errorf("failed to update node: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, domain.NodeNotFound(id)
	}

	var row nodeRow
	if err := tx.QueryRowContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes WHERE id = ?
	`, id).Scan(row.scanArgs()...); err != nil {
		return nil, fmt.Errorf("failed to reload node: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return row.toDomain()
}

// DeleteNode permanently removes a node
func (r *Repository) DeleteNode(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NodeNotFound(id)
	}
	return nil
}

// Ping checks that the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
