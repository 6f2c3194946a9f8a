package store

import (
	"context"
	"fmt"
	"strconv"

	"codegraph/internal/graph"
)

// InsertEdges inserts every edge inside one write transaction. Multiple
// edges with identical (source, target, kind) are allowed, so there is no
// ON CONFLICT clause. Self-edges are dropped.
func (s *Store) InsertEdges(ctx context.Context, edges []graph.Edge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO edges(source_id, target_id, kind, confidence, dynamic)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	for _, e := range edges {
		sourceID, err := strconv.ParseInt(e.SourceID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source id %q: %w", e.SourceID, err)
		}
		targetID, err := strconv.ParseInt(e.TargetID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid target id %q: %w", e.TargetID, err)
		}
		if sourceID == targetID {
			continue
		}
		dynamic := 0
		if e.Dynamic {
			dynamic = 1
		}
		if _, err := insert.ExecContext(ctx, sourceID, targetID, e.Relation, e.Confidence, dynamic); err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.SourceID, e.TargetID, err)
		}
	}

	return tx.Commit()
}

// EdgeRow is one edge joined with the node at its "other" end, used by
// the caller/callee/impact queries.
type EdgeRow struct {
	Node       *graph.Node
	Kind       string
	Confidence float64
	Dynamic    bool
}

// FindImpact returns every node with a calls/imports/imports-type edge
// targeting any node named name (direct dependents only; transitive
// impact is internal/query's job).
func (s *Store) FindImpact(ctx context.Context, name string) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.name, n.kind, n.file, n.line, n.end_line
		FROM edges e
		JOIN nodes n ON n.id = e.source_id
		JOIN nodes t ON t.id = e.target_id
		WHERE t.name = ? AND e.kind IN ('calls', 'imports', 'imports-type')
		ORDER BY n.file, n.line`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// CallersOf returns every node with a `calls` edge targeting targetID,
// sorted by descending confidence so downstream consumers can rank by
// confidence before displaying.
func (s *Store) CallersOf(ctx context.Context, targetID int64) ([]EdgeRow, error) {
	return s.edgesJoining(ctx, `
		SELECT n.id, n.name, n.kind, n.file, n.line, n.end_line, e.kind, e.confidence, e.dynamic
		FROM edges e JOIN nodes n ON n.id = e.source_id
		WHERE e.target_id = ? AND e.kind = 'calls'
		ORDER BY e.confidence DESC`, targetID)
}

// CalleesOf returns every node targeted by a `calls` edge from sourceID.
func (s *Store) CalleesOf(ctx context.Context, sourceID int64) ([]EdgeRow, error) {
	return s.edgesJoining(ctx, `
		SELECT n.id, n.name, n.kind, n.file, n.line, n.end_line, e.kind, e.confidence, e.dynamic
		FROM edges e JOIN nodes n ON n.id = e.target_id
		WHERE e.source_id = ? AND e.kind = 'calls'
		ORDER BY e.confidence DESC`, sourceID)
}

// ImportersOf returns every file node with an imports/imports-type edge
// targeting fileNodeID: one level of the file-level impact BFS.
func (s *Store) ImportersOf(ctx context.Context, fileNodeID int64) ([]EdgeRow, error) {
	return s.edgesJoining(ctx, `
		SELECT n.id, n.name, n.kind, n.file, n.line, n.end_line, e.kind, e.confidence, e.dynamic
		FROM edges e JOIN nodes n ON n.id = e.source_id
		WHERE e.target_id = ? AND e.kind IN ('imports', 'imports-type')
		ORDER BY n.file`, fileNodeID)
}

// AncestorsOf returns the classes classNodeID `extends`, directly.
// internal/query walks this repeatedly for the full ancestor chain.
func (s *Store) AncestorsOf(ctx context.Context, classNodeID int64) ([]*graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.name, n.kind, n.file, n.line, n.end_line
		FROM edges e JOIN nodes n ON n.id = e.target_id
		WHERE e.source_id = ? AND e.kind = 'extends'
		ORDER BY n.file, n.line`, classNodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// InboundEdgeCounts returns, per file node id, the count of inbound edges
// of the given kinds, used by the module-map query.
func (s *Store) InboundEdgeCounts(ctx context.Context, kinds []string) (map[int64]int, error) {
	query := `SELECT target_id, COUNT(*) FROM edges WHERE kind IN (` + placeholders(len(kinds)) + `) GROUP BY target_id`
	args := make([]any, len(kinds))
	for i, k := range kinds {
		args[i] = k
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		out[id] = count
	}
	return out, rows.Err()
}

func (s *Store) edgesJoining(ctx context.Context, query string, arg int64) ([]EdgeRow, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EdgeRow
	for rows.Next() {
		var n graph.Node
		var id int64
		var end nullInt64
		var kind string
		var confidence float64
		var dynamic int
		if err := rows.Scan(&id, &n.Name, &n.Kind, &n.FilePath, &n.LineStart, &end, &kind, &confidence, &dynamic); err != nil {
			return nil, err
		}
		n.ID = fmt.Sprintf("%d", id)
		n.LineEnd = end.ptr()
		out = append(out, EdgeRow{Node: &n, Kind: kind, Confidence: confidence, Dynamic: dynamic != 0})
	}
	return out, rows.Err()
}
