package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codegraph/internal/graph"
	"codegraph/internal/store"
)

func writeWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func TestBuildEndToEnd(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"a.ts": "import { foo } from './b';\nfoo();\n",
		"b.ts": "export function foo() {}\n",
	})
	dbPath := filepath.Join(t.TempDir(), "graph.db")

	res, err := Build(context.Background(), root, dbPath)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.NodesWritten == 0 || res.EdgesWritten == 0 {
		t.Fatalf("expected a non-trivial graph, got %+v", res)
	}

	s, err := store.OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	fooNodes, err := s.GetSymbolLocation(ctx, "foo")
	if err != nil {
		t.Fatalf("GetSymbolLocation: %v", err)
	}
	if len(fooNodes) != 1 || fooNodes[0].Kind != graph.KindFunction {
		t.Fatalf("expected one foo function node, got %+v", fooNodes)
	}

	callers, err := s.CallersOf(ctx, mustID(t, fooNodes[0].ID))
	if err != nil {
		t.Fatalf("CallersOf: %v", err)
	}
	if len(callers) != 1 {
		t.Fatalf("expected one caller of foo, got %d", len(callers))
	}
}

func TestUpdateAppliesIncrementalDelta(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"a.ts": "import { foo } from './b';\nfoo();\n",
		"b.ts": "export function foo() {}\n",
	})
	dbPath := filepath.Join(t.TempDir(), "graph.db")
	ctx := context.Background()

	if _, err := Build(ctx, root, dbPath); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "b.ts"), []byte("export function foo() {}\nexport function bar() {}\n"), 0o644); err != nil {
		t.Fatalf("rewrite b.ts: %v", err)
	}

	if _, err := Update(ctx, root, dbPath, "b.ts"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	s, err := store.OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer s.Close()

	nodes, err := s.NodesInFile(ctx, "b.ts")
	if err != nil {
		t.Fatalf("NodesInFile: %v", err)
	}
	// file node + foo + bar
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes in b.ts after update, got %d: %+v", len(nodes), nodes)
	}

	// a.ts was untouched by the delta and should still exist.
	aNodes, err := s.NodesInFile(ctx, "a.ts")
	if err != nil {
		t.Fatalf("NodesInFile a.ts: %v", err)
	}
	if len(aNodes) == 0 {
		t.Fatalf("expected a.ts's nodes to survive an update scoped to b.ts")
	}
}

// TestBuildIsDeterministicAcrossRuns checks the round-trip property:
// building the same workspace twice yields the same multiset of nodes.
func TestBuildIsDeterministicAcrossRuns(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"a.ts":     "import { foo } from './b';\nfoo();\n",
		"b.ts":     "export function foo() {}\nexport class Box {\n  open() {}\n}\n",
		"c/d.ts":   "import { Box } from '../b';\nnew Box();\n",
		"util.py":  "def helper():\n    pass\n",
		"infra.tf": "variable \"region\" {}\n",
	})
	ctx := context.Background()

	signatures := func(dbPath string) ([]string, int) {
		res, err := Build(ctx, root, dbPath)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		s, err := store.OpenReadOnly(dbPath)
		if err != nil {
			t.Fatalf("OpenReadOnly: %v", err)
		}
		defer s.Close()

		var sigs []string
		fileNodes, err := s.AllFileNodes(ctx)
		if err != nil {
			t.Fatalf("AllFileNodes: %v", err)
		}
		for _, f := range fileNodes {
			nodes, err := s.NodesInFile(ctx, f.FilePath)
			if err != nil {
				t.Fatalf("NodesInFile %s: %v", f.FilePath, err)
			}
			for _, n := range nodes {
				sigs = append(sigs, fmt.Sprintf("%s|%s|%s|%d", n.Name, n.Kind, n.FilePath, n.LineStart))
			}
		}
		return sigs, res.EdgesWritten
	}

	first, firstEdges := signatures(filepath.Join(t.TempDir(), "one.db"))
	second, secondEdges := signatures(filepath.Join(t.TempDir(), "two.db"))

	if len(first) != len(second) {
		t.Fatalf("node counts differ across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("node %d differs across runs: %q vs %q", i, first[i], second[i])
		}
	}
	if firstEdges != secondEdges {
		t.Fatalf("edge counts differ across runs: %d vs %d", firstEdges, secondEdges)
	}
}

// TestUpdateEquivalentToRebuildForUnchangedFile checks the incremental
// equivalence property restricted to one file: delete(f) then reparse(f)
// yields the same nodes for f as the full build had.
func TestUpdateEquivalentToRebuildForUnchangedFile(t *testing.T) {
	root := writeWorkspace(t, map[string]string{
		"a.ts": "import { foo } from './b';\nfoo();\n",
		"b.ts": "export function foo() {}\nexport function bar() {}\n",
	})
	dbPath := filepath.Join(t.TempDir(), "graph.db")
	ctx := context.Background()

	if _, err := Build(ctx, root, dbPath); err != nil {
		t.Fatalf("Build: %v", err)
	}

	s, err := store.OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	before, err := s.NodesInFile(ctx, "b.ts")
	if err != nil {
		t.Fatalf("NodesInFile: %v", err)
	}
	s.Close()

	if _, err := Update(ctx, root, dbPath, "b.ts"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	s, err = store.OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenReadOnly after update: %v", err)
	}
	defer s.Close()
	after, err := s.NodesInFile(ctx, "b.ts")
	if err != nil {
		t.Fatalf("NodesInFile after update: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("node counts for b.ts differ: %d before, %d after", len(before), len(after))
	}
	for i := range before {
		if before[i].Name != after[i].Name || before[i].Kind != after[i].Kind || before[i].LineStart != after[i].LineStart {
			t.Fatalf("node %d differs: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func mustID(t *testing.T, id string) int64 {
	t.Helper()
	v, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		t.Fatalf("parse id %q: %v", id, err)
	}
	return v
}
