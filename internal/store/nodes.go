package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codegraph/internal/graph"
)

// InsertNodes inserts every node inside one write transaction, silently
// deduplicating on the (name, kind, file, line) uniqueness invariant, and
// returns the assigned database id for each input node in the same order.
// Ids are assigned by SQLite rowid allocation, which is insertion-order-
// stable for a given input ordering.
func (s *Store) InsertNodes(ctx context.Context, nodes []graph.Node) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes(name, kind, file, line, end_line)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name, kind, file, line) DO NOTHING`)
	if err != nil {
		return nil, err
	}
	defer insert.Close()

	lookup, err := tx.PrepareContext(ctx, `
		SELECT id FROM nodes WHERE name = ? AND kind = ? AND file = ? AND line = ?`)
	if err != nil {
		return nil, err
	}
	defer lookup.Close()

	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		if _, err := insert.ExecContext(ctx, n.Name, n.Kind, n.FilePath, n.LineStart, nullableInt(n.LineEnd)); err != nil {
			return nil, fmt.Errorf("insert node %s: %w", n.Name, err)
		}
		var id int64
		if err := lookup.QueryRowContext(ctx, n.Name, n.Kind, n.FilePath, n.LineStart).Scan(&id); err != nil {
			return nil, fmt.Errorf("lookup node %s: %w", n.Name, err)
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetNode fetches a node by id.
func (s *Store) GetNode(ctx context.Context, id int64) (*graph.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, kind, file, line, end_line FROM nodes WHERE id = ?`, id)
	return scanNode(row)
}

// NodeID looks up the id of the node matching (name, kind, file, line),
// returning ok=false if no such node exists.
func (s *Store) NodeID(ctx context.Context, name, kind, file string, line int) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM nodes WHERE name = ? AND kind = ? AND file = ? AND line = ?`,
		name, kind, file, line).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// FindNodesByKindsAndName finds nodes with an exact name among the given
// kinds, across the whole workspace (the global lookup tier of call
// resolution) or restricted to one file when file != "".
func (s *Store) FindNodesByKindsAndName(ctx context.Context, name string, kinds []string, file string) ([]*graph.Node, error) {
	query := `SELECT id, name, kind, file, line, end_line FROM nodes WHERE name = ? AND kind IN (` + placeholders(len(kinds)) + `)`
	args := []any{name}
	for _, k := range kinds {
		args = append(args, k)
	}
	if file != "" {
		query += ` AND file = ?`
		args = append(args, file)
	}
	query += ` ORDER BY file, line`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// FindMethodSuffixMatches finds method-kind nodes named "%.{name}", the
// method-suffix tier of call resolution.
func (s *Store) FindMethodSuffixMatches(ctx context.Context, name string) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, file, line, end_line FROM nodes WHERE kind = 'method' AND name LIKE ? ORDER BY file, line`,
		"%."+name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// FindNodesBySubstring is the symbol-lookup-by-substring query.
func (s *Store) FindNodesBySubstring(ctx context.Context, substr string) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, file, line, end_line FROM nodes WHERE name LIKE ? ORDER BY file, line`,
		"%"+substr+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// NodesInFile returns every node in file, ordered by line, the file node
// included.
func (s *Store) NodesInFile(ctx context.Context, file string) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, file, line, end_line FROM nodes WHERE file = ? ORDER BY line`, file)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// AllFileNodes returns every node of kind 'file', for the module-map
// query.
func (s *Store) AllFileNodes(ctx context.Context) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, file, line, end_line FROM nodes WHERE kind = 'file' ORDER BY file`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetSymbolLocation finds every node with an exact name. Symbol lookup
// is implemented with this plus FindNodesBySubstring.
func (s *Store) GetSymbolLocation(ctx context.Context, name string) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, file, line, end_line FROM nodes WHERE name = ? ORDER BY file, line`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// GetSymbolsInFile is an alias for NodesInFile; the diff-impact query
// reads a file's definitions through it.
func (s *Store) GetSymbolsInFile(ctx context.Context, file string) ([]*graph.Node, error) {
	return s.NodesInFile(ctx, file)
}

func scanNode(row rowScanner) (*graph.Node, error) {
	var n graph.Node
	var id int64
	var end nullInt64
	if err := row.Scan(&id, &n.Name, &n.Kind, &n.FilePath, &n.LineStart, &end); err != nil {
		return nil, err
	}
	n.ID = fmt.Sprintf("%d", id)
	n.LineEnd = end.ptr()
	return &n, nil
}
