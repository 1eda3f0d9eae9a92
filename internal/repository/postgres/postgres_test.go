package postgres

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"nodestore/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ============================================================================
// Test Doubles
// ============================================================================

type beginnerFunc func(ctx context.Context) (pgx.Tx, error)

func (f beginnerFunc) Begin(ctx context.Context) (pgx.Tx, error) { return f(ctx) }

func assign(dest []any, values []any) error {
	for i := range dest {
		if i >= len(values) {
			return errors.New("not enough values")
		}
		switch d := dest[i].(type) {
		case *int64:
			*d = values[i].(int64)
		case *string:
			*d = values[i].(string)
		case *[]byte:
			*d = []byte(values[i].(string))
		default:
			return errors.New("unsupported scan type")
		}
	}
	return nil
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type stubRows struct {
	pgx.Rows
	records [][]any
	idx     int
	err     error
	closed  bool
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.records) {
		return false
	}
	r.idx++
	return true
}
func (r *stubRows) Scan(dest ...any) error { return assign(dest, r.records[r.idx-1]) }
func (r *stubRows) Err() error             { return r.err }
func (r *stubRows) Close()                 { r.closed = true }

// stubTx embeds pgx.Tx so only the methods the repository calls need bodies
type stubTx struct {
	pgx.Tx
	rows      []stubRow
	queryRows *stubRows
	queryErr  error
	execTag   pgconn.CommandTag
	execErr   error
	commitErr error

	statements []string
	committed  bool
	rolledBack bool
}

func (tx *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	tx.statements = append(tx.statements, sql)
	if len(tx.rows) == 0 {
		return stubRow{err: pgx.ErrNoRows}
	}
	row := tx.rows[0]
	tx.rows = tx.rows[1:]
	return row
}

func (tx *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	tx.statements = append(tx.statements, sql)
	if tx.queryErr != nil {
		return nil, tx.queryErr
	}
	return tx.queryRows, nil
}

func (tx *stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.statements = append(tx.statements, sql)
	return tx.execTag, tx.execErr
}

func (tx *stubTx) Commit(ctx context.Context) error {
	if tx.commitErr != nil {
		return tx.commitErr
	}
	tx.committed = true
	return nil
}

func (tx *stubTx) Rollback(ctx context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

func repoWith(tx *stubTx) *Repository {
	return &Repository{pool: beginnerFunc(func(context.Context) (pgx.Tx, error) { return tx, nil })}
}

func nodeValues(id int64, label, attrs string) stubRow {
	return stubRow{values: []any{id, label, attrs}}
}

// ============================================================================
// Tests
// ============================================================================

func TestBeginError(t *testing.T) {
	repo := &Repository{pool: beginnerFunc(func(context.Context) (pgx.Tx, error) {
		return nil, errors.New("begin")
	})}
	ctx := context.Background()

	if _, err := repo.ListNodes(ctx, domain.DefaultPage()); err == nil {
		t.Fatal("expected error")
	}
	if err := repo.DeleteNode(ctx, 1); err == nil || domain.IsNotFound(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestMigrate(t *testing.T) {
	tx := &stubTx{}
	if err := repoWith(tx).Migrate(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	if !tx.committed {
		t.Fatal("expected commit")
	}
	if !strings.Contains(tx.statements[0], "CREATE TABLE IF NOT EXISTS nodes") {
		t.Fatalf("unexpected statement %q", tx.statements[0])
	}
	for _, want := range []string{"SERIAL PRIMARY KEY", "label VARCHAR(100) NOT NULL", "attributes JSONB NOT NULL"} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema missing %q", want)
		}
	}
}

func TestMigrateExecError(t *testing.T) {
	tx := &stubTx{execErr: errors.New("exec")}
	if err := repoWith(tx).Migrate(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if tx.committed || !tx.rolledBack {
		t.Fatal("expected rollback without commit")
	}
}

func TestCreateNode(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stored node", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{nodeValues(1, "Intro", `[{"difficulty": "easy"}]`)}}
		node, err := repoWith(tx).CreateNode(ctx, domain.NewNodeInput("Intro", domain.MustAttributes(`[{"difficulty":"easy"}]`)))
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if node.ID != 1 || node.Label != "Intro" || node.Attributes.String() != `[{"difficulty":"easy"}]` {
			t.Fatalf("unexpected node %+v", node)
		}
		if !tx.committed {
			t.Fatal("expected commit")
		}
	})

	t.Run("invalid input never reaches the database", func(t *testing.T) {
		tx := &stubTx{}
		_, err := repoWith(tx).CreateNode(ctx, domain.NewNodeInput("", nil))
		if !domain.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if len(tx.statements) != 0 {
			t.Fatalf("expected no statements, got %v", tx.statements)
		}
	})

	t.Run("constraint violation is a validation error", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{{err: &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(100)"}}}}
		_, err := repoWith(tx).CreateNode(ctx, domain.NewNodeInput("Intro", nil))
		if !domain.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if tx.committed {
			t.Fatal("unexpected commit")
		}
	})

	t.Run("connection error is not a validation error", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{{err: errors.New("connection reset")}}}
		_, err := repoWith(tx).CreateNode(ctx, domain.NewNodeInput("Intro", nil))
		if err == nil || domain.IsValidation(err) || domain.IsNotFound(err) {
			t.Fatalf("expected storage error, got %v", err)
		}
	})

	t.Run("commit error", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{nodeValues(1, "Intro", `[]`)}, commitErr: errors.New("commit")}
		if _, err := repoWith(tx).CreateNode(ctx, domain.NewNodeInput("Intro", nil)); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestCreateNodes(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts every input in one transaction", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{nodeValues(1, "a", `[]`), nodeValues(2, "b", `{}`)}}
		nodes, err := repoWith(tx).CreateNodes(ctx, []domain.NodeInput{
			domain.NewNodeInput("a", nil),
			domain.NewNodeInput("b", domain.MustAttributes(`{}`)),
		})
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if len(nodes) != 2 || nodes[1].ID != 2 {
			t.Fatalf("unexpected nodes %+v", nodes)
		}
		if !tx.committed {
			t.Fatal("expected commit")
		}
	})

	t.Run("failure rolls back the batch", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{nodeValues(1, "a", `[]`), {err: errors.New("insert")}}}
		if _, err := repoWith(tx).CreateNodes(ctx, []domain.NodeInput{
			domain.NewNodeInput("a", nil),
			domain.NewNodeInput("b", nil),
		}); err == nil {
			t.Fatal("expected error")
		}
		if tx.committed || !tx.rolledBack {
			t.Fatal("expected rollback without commit")
		}
	})
}

func TestGetNode(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{nodeValues(4, "x", `{"a": 1}`)}}
		node, err := repoWith(tx).GetNode(ctx, 4)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if node.Attributes.String() != `{"a":1}` {
			t.Fatalf("unexpected attributes %s", node.Attributes)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repoWith(&stubTx{}).GetNode(ctx, 4)
		if !domain.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("row error", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{{err: errors.New("row")}}}
		_, err := repoWith(tx).GetNode(ctx, 4)
		if err == nil || domain.IsNotFound(err) {
			t.Fatalf("expected storage error, got %v", err)
		}
	})
}

func TestListNodes(t *testing.T) {
	ctx := context.Background()

	t.Run("scans rows in order", func(t *testing.T) {
		rows := &stubRows{records: [][]any{
			{int64(1), "a", `[]`},
			{int64(2), "b", `{"k":"v"}`},
		}}
		tx := &stubTx{queryRows: rows}
		nodes, err := repoWith(tx).ListNodes(ctx, domain.Page{Skip: 0, Limit: 2})
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if len(nodes) != 2 || nodes[0].ID != 1 || nodes[1].Label != "b" {
			t.Fatalf("unexpected nodes %+v", nodes)
		}
		if !rows.closed {
			t.Fatal("expected rows to be closed")
		}
		if !strings.Contains(tx.statements[0], "ORDER BY id") {
			t.Fatalf("expected stable ordering, got %q", tx.statements[0])
		}
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		tx := &stubTx{queryRows: &stubRows{}}
		nodes, err := repoWith(tx).ListNodes(ctx, domain.Page{Skip: 100, Limit: 10})
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if nodes == nil || len(nodes) != 0 {
			t.Fatalf("expected empty slice, got %#v", nodes)
		}
	})

	t.Run("query error", func(t *testing.T) {
		tx := &stubTx{queryErr: errors.New("query")}
		if _, err := repoWith(tx).ListNodes(ctx, domain.DefaultPage()); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("rows error", func(t *testing.T) {
		tx := &stubTx{queryRows: &stubRows{err: errors.New("rows")}}
		if _, err := repoWith(tx).ListNodes(ctx, domain.DefaultPage()); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestCountNodes(t *testing.T) {
	tx := &stubTx{rows: []stubRow{{values: []any{int64(12)}}}}
	count, err := repoWith(tx).CountNodes(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if count != 12 {
		t.Fatalf("expected 12, got %d", count)
	}
}

func TestUpdateNode(t *testing.T) {
	ctx := context.Background()

	t.Run("returns updated row", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{nodeValues(1, "Intro2", `[{"difficulty":"easy"}]`)}}
		node, err := repoWith(tx).UpdateNode(ctx, 1, domain.NewNodeInput("Intro2", domain.MustAttributes(`[{"difficulty":"easy"}]`)))
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if node.ID != 1 || node.Label != "Intro2" {
			t.Fatalf("unexpected node %+v", node)
		}
		if !strings.Contains(tx.statements[0], "RETURNING") {
			t.Fatalf("expected RETURNING clause, got %q", tx.statements[0])
		}
		if !tx.committed {
			t.Fatal("expected commit")
		}
	})

	t.Run("missing id is not found and not committed", func(t *testing.T) {
		tx := &stubTx{}
		_, err := repoWith(tx).UpdateNode(ctx, 9, domain.NewNodeInput("x", nil))
		if !domain.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
		if tx.committed || !tx.rolledBack {
			t.Fatal("expected rollback without commit")
		}
	})
}

func TestDeleteNode(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes one row", func(t *testing.T) {
		tx := &stubTx{execTag: pgconn.NewCommandTag("DELETE 1")}
		if err := repoWith(tx).DeleteNode(ctx, 1); err != nil {
			t.Fatalf("err=%v", err)
		}
		if !tx.committed {
			t.Fatal("expected commit")
		}
	})

	t.Run("missing id is not found", func(t *testing.T) {
		tx := &stubTx{execTag: pgconn.NewCommandTag("DELETE 0")}
		if err := repoWith(tx).DeleteNode(ctx, 1); !domain.IsNotFound(err) {
			t.Fatalf("expected not found, got %v", err)
		}
		if tx.committed {
			t.Fatal("unexpected commit")
		}
	})

	t.Run("exec error", func(t *testing.T) {
		tx := &stubTx{execErr: errors.New("exec")}
		if err := repoWith(tx).DeleteNode(ctx, 1); err == nil || domain.IsNotFound(err) {
			t.Fatalf("expected storage error, got %v", err)
		}
	})
}

func TestConstraintError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		validation bool
	}{
		{"truncation", &pgconn.PgError{Code: "22001", ColumnName: "label"}, true},
		{"invalid json", &pgconn.PgError{Code: "22P02"}, true},
		{"not null", &pgconn.PgError{Code: "23502", ColumnName: "attributes"}, true},
		{"nul byte in label", &pgconn.PgError{Code: "22021", Message: `invalid byte sequence for encoding "UTF8": 0x00`}, true},
		{"nul escape in jsonb", &pgconn.PgError{Code: "22P05", Message: "unsupported Unicode escape sequence"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.IsValidation(constraintError(tt.err)); got != tt.validation {
				t.Fatalf("IsValidation = %v, want %v", got, tt.validation)
			}
		})
	}
}

func TestNulCharactersAreValidationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("label on create", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{{err: &pgconn.PgError{Code: "22021", Message: `invalid byte sequence for encoding "UTF8": 0x00`}}}}
		_, err := repoWith(tx).CreateNode(ctx, domain.NewNodeInput("a\x00b", nil))
		if !domain.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if tx.committed {
			t.Fatal("unexpected commit")
		}
	})

	t.Run("attributes on update", func(t *testing.T) {
		tx := &stubTx{rows: []stubRow{{err: &pgconn.PgError{Code: "22P05", Message: "unsupported Unicode escape sequence"}}}}
		_, err := repoWith(tx).UpdateNode(ctx, 1, domain.NewNodeInput("a", domain.MustAttributes(`["\u0000"]`)))
		if !domain.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestIDsOutsideSerialRangeAreNotFound(t *testing.T) {
	repo := &Repository{pool: beginnerFunc(func(context.Context) (pgx.Tx, error) {
		t.Fatal("no transaction expected for an unstorable id")
		return nil, nil
	})}
	ctx := context.Background()

	for _, id := range []int64{3000000000, math.MaxInt32 + 1, math.MinInt32 - 1, math.MinInt64} {
		if _, err := repo.GetNode(ctx, id); !domain.IsNotFound(err) {
			t.Fatalf("GetNode(%d): expected not found, got %v", id, err)
		}
		if _, err := repo.UpdateNode(ctx, id, domain.NewNodeInput("x", nil)); !domain.IsNotFound(err) {
			t.Fatalf("UpdateNode(%d): expected not found, got %v", id, err)
		}
		if err := repo.DeleteNode(ctx, id); !domain.IsNotFound(err) {
			t.Fatalf("DeleteNode(%d): expected not found, got %v", id, err)
		}
	}

	tx := &stubTx{execTag: pgconn.NewCommandTag("DELETE 0")}
	if err := repoWith(tx).DeleteNode(ctx, 0); !domain.IsNotFound(err) {
		t.Fatalf("DeleteNode(0): expected not found, got %v", err)
	}
	if len(tx.statements) != 1 {
		t.Fatal("in-range ids must reach the database")
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(context.Background(), "postgres://%zz", Options{}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCloseWithoutPool(t *testing.T) {
	repo := repoWith(&stubTx{})
	if err := repo.Close(); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
}
