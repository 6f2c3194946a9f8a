// Package store implements the relational store: a stable schema contract,
// migration of older databases, and the persistence operations the graph
// builder and the query layer use.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite connection backing one workspace's graph.
type Store struct {
	db *sql.DB
}

// DefaultRelativePath is where the per-project store lives.
const DefaultRelativePath = ".codegraph/graph.db"

// FindWorkspaceStore walks upward from dir looking for .codegraph/graph.db,
// defaulting to ./.codegraph/graph.db when none is found.
func FindWorkspaceStore(dir string) string {
	d := dir
	for {
		candidate := filepath.Join(d, DefaultRelativePath)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return filepath.Join(dir, DefaultRelativePath)
}

// Open opens (creating if absent) the SQLite database at path, enables
// write-ahead logging so read-only queries can run over an older snapshot
// concurrently with a build, and migrates the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer model

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// OpenReadOnly opens an existing store for read-only querying. A missing
// store is a fatal error for a read-only query.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store: no graph database at %s: %w", path, err)
	}
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("store: open %s read-only: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return err
	}
	for _, col := range legacyColumns {
		has, err := s.hasColumn(col.table, col.name)
		if err != nil {
			return err
		}
		if !has {
			if _, err := s.db.Exec(col.ddl); err != nil {
				return fmt.Errorf("add column %s.%s: %w", col.table, col.name, err)
			}
		}
	}
	return nil
}

func (s *Store) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Clear deletes every node and edge, inside one write transaction: the
// full-rebuild lifecycle's first step.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteFile deletes all nodes where file = f and all edges whose source
// or target node has file = f: the incremental-delta lifecycle's first
// step for one changed file. Nodes/edges referenced by other files are
// otherwise preserved.
func (s *Store) DeleteFile(ctx context.Context, file string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM edges WHERE source_id IN (SELECT id FROM nodes WHERE file = ?)
		                     OR target_id IN (SELECT id FROM nodes WHERE file = ?)`,
		file, file); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE file = ?`, file); err != nil {
		return err
	}
	return tx.Commit()
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
