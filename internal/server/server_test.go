package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewRegistersServerWithoutError(t *testing.T) {
	root := t.TempDir()
	srv := New(root, filepath.Join(root, ".codegraph", "graph.db"))
	if srv.MCPServer() == nil {
		t.Fatal("expected a non-nil underlying MCP server")
	}
}

func TestDefaultStorePathFindsExistingStore(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	storeDir := filepath.Join(root, ".codegraph")
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		t.Fatalf("mkdir .codegraph: %v", err)
	}
	if err := os.WriteFile(filepath.Join(storeDir, "graph.db"), []byte(""), 0o644); err != nil {
		t.Fatalf("write graph.db: %v", err)
	}

	path, err := DefaultStorePath(nested)
	if err != nil {
		t.Fatalf("DefaultStorePath: %v", err)
	}
	want := filepath.Join(storeDir, "graph.db")
	if path != want {
		t.Fatalf("expected to walk up to %s, got %s", want, path)
	}
}

func TestDefaultStorePathDefaultsWhenNoneFound(t *testing.T) {
	root := t.TempDir()
	path, err := DefaultStorePath(root)
	if err != nil {
		t.Fatalf("DefaultStorePath: %v", err)
	}
	want := filepath.Join(root, ".codegraph", "graph.db")
	if path != want {
		t.Fatalf("expected default %s, got %s", want, path)
	}
}

func TestSchemaMapCoversEveryTool(t *testing.T) {
	schemas := buildSchemaMap()
	for _, name := range []string{
		"build", "update", "find_callers", "find_callees",
		"file_impact", "function_impact", "module_map", "diff_impact",
	} {
		raw, ok := schemas[name]
		if !ok {
			t.Fatalf("missing schema for tool %q", name)
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			t.Fatalf("schema for %q is not valid JSON: %v", name, err)
		}
	}
}
