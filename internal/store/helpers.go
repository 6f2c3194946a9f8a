package store

import (
	"database/sql"
	"strings"

	"codegraph/internal/graph"
)

// rowScanner abstracts over *sql.Row and *sql.Rows for scanNode.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullInt64 is a small local alias kept distinct from sql.NullInt64 only
// to give it a .ptr() convenience method.
type nullInt64 sql.NullInt64

func (n nullInt64) ptr() *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func (n *nullInt64) Scan(src any) error {
	return (*sql.NullInt64)(n).Scan(src)
}

func scanNodes(rows *sql.Rows) ([]*graph.Node, error) {
	var out []*graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}
