package store

const schemaDDL = `
CREATE TABLE IF NOT EXISTS nodes (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL,
	kind      TEXT NOT NULL,
	file      TEXT NOT NULL,
	line      INTEGER NOT NULL,
	end_line  INTEGER,
	UNIQUE(name, kind, file, line)
);

CREATE TABLE IF NOT EXISTS edges (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id   INTEGER NOT NULL REFERENCES nodes(id),
	target_id   INTEGER NOT NULL REFERENCES nodes(id),
	kind        TEXT NOT NULL,
	confidence  REAL NOT NULL DEFAULT 1.0,
	dynamic     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);
CREATE INDEX IF NOT EXISTS idx_nodes_file ON nodes(file);
CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind);
`

// legacyColumn describes a column an older database (predating end_line,
// confidence, dynamic) might be missing. Migration adds them with their
// defaults, with no data loss.
type legacyColumn struct {
	table, name, ddl string
}

var legacyColumns = []legacyColumn{
	{"nodes", "end_line", "ALTER TABLE nodes ADD COLUMN end_line INTEGER"},
	{"edges", "confidence", "ALTER TABLE edges ADD COLUMN confidence REAL NOT NULL DEFAULT 1.0"},
	{"edges", "dynamic", "ALTER TABLE edges ADD COLUMN dynamic INTEGER NOT NULL DEFAULT 0"},
}
