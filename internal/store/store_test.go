package store

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codegraph/internal/graph"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "graph.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertNodesDedupesOnUniquenessInvariant(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	end := 10
	nodes := []graph.Node{
		{Name: "foo", Kind: "function", FilePath: "a.ts", LineStart: 1, LineEnd: &end},
		{Name: "foo", Kind: "function", FilePath: "a.ts", LineStart: 1, LineEnd: &end}, // exact dup
	}
	ids, err := s.InsertNodes(ctx, nodes)
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	if ids[0] != ids[1] {
		t.Fatalf("expected duplicate insert to resolve to the same id, got %d and %d", ids[0], ids[1])
	}

	all, err := s.NodesInFile(ctx, "a.ts")
	if err != nil {
		t.Fatalf("NodesInFile: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 node after dedup, got %d", len(all))
	}
}

func TestInsertNodesAllowsSameNameDifferentLine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	nodes := []graph.Node{
		{Name: "foo", Kind: "function", FilePath: "a.ts", LineStart: 1},
		{Name: "foo", Kind: "function", FilePath: "a.ts", LineStart: 20},
	}
	ids, err := s.InsertNodes(ctx, nodes)
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	if ids[0] == ids[1] {
		t.Fatalf("expected distinct ids for distinct lines, got same id %d", ids[0])
	}
}

func TestClearRemovesNodesAndEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.InsertNodes(ctx, []graph.Node{
		{Name: "a", Kind: "function", FilePath: "a.ts", LineStart: 1},
		{Name: "b", Kind: "function", FilePath: "a.ts", LineStart: 2},
	})
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	err = s.InsertEdges(ctx, []graph.Edge{{
		SourceID: itoa(ids[0]), TargetID: itoa(ids[1]), Relation: graph.RelationCalls, Confidence: 1.0,
	}})
	if err != nil {
		t.Fatalf("InsertEdges: %v", err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	nodes, err := s.NodesInFile(ctx, "a.ts")
	if err != nil {
		t.Fatalf("NodesInFile: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("expected no nodes after Clear, got %d", len(nodes))
	}
}

func TestDeleteFileRemovesOnlyThatFilesNodesAndEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.InsertNodes(ctx, []graph.Node{
		{Name: "caller", Kind: "function", FilePath: "a.ts", LineStart: 1},
		{Name: "callee", Kind: "function", FilePath: "b.ts", LineStart: 1},
	})
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	if err := s.InsertEdges(ctx, []graph.Edge{{
		SourceID: itoa(ids[0]), TargetID: itoa(ids[1]), Relation: graph.RelationCalls, Confidence: 1.0,
	}}); err != nil {
		t.Fatalf("InsertEdges: %v", err)
	}

	if err := s.DeleteFile(ctx, "a.ts"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}

	aNodes, err := s.NodesInFile(ctx, "a.ts")
	if err != nil {
		t.Fatalf("NodesInFile a.ts: %v", err)
	}
	if len(aNodes) != 0 {
		t.Fatalf("expected a.ts nodes gone, got %d", len(aNodes))
	}
	bNodes, err := s.NodesInFile(ctx, "b.ts")
	if err != nil {
		t.Fatalf("NodesInFile b.ts: %v", err)
	}
	if len(bNodes) != 1 {
		t.Fatalf("expected b.ts node preserved, got %d", len(bNodes))
	}

	callers, err := s.CallersOf(ctx, ids[1])
	if err != nil {
		t.Fatalf("CallersOf: %v", err)
	}
	if len(callers) != 0 {
		t.Fatalf("expected the calls edge to be gone along with a.ts, got %d", len(callers))
	}
}

func TestCallersAndCalleesOf(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.InsertNodes(ctx, []graph.Node{
		{Name: "main", Kind: "function", FilePath: "a.ts", LineStart: 1},
		{Name: "helper", Kind: "function", FilePath: "a.ts", LineStart: 10},
	})
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	main, helper := ids[0], ids[1]

	if err := s.InsertEdges(ctx, []graph.Edge{{
		SourceID: itoa(main), TargetID: itoa(helper), Relation: graph.RelationCalls, Confidence: graph.ConfidenceSameFile,
	}}); err != nil {
		t.Fatalf("InsertEdges: %v", err)
	}

	callers, err := s.CallersOf(ctx, helper)
	if err != nil {
		t.Fatalf("CallersOf: %v", err)
	}
	if len(callers) != 1 || callers[0].Node.Name != "main" {
		t.Fatalf("expected main as the sole caller of helper, got %+v", callers)
	}

	callees, err := s.CalleesOf(ctx, main)
	if err != nil {
		t.Fatalf("CalleesOf: %v", err)
	}
	if len(callees) != 1 || callees[0].Node.Name != "helper" {
		t.Fatalf("expected helper as the sole callee of main, got %+v", callees)
	}
}

func TestInsertEdgesRejectsSelfEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.InsertNodes(ctx, []graph.Node{{Name: "a", Kind: "function", FilePath: "a.ts", LineStart: 1}})
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	if err := s.InsertEdges(ctx, []graph.Edge{{
		SourceID: itoa(ids[0]), TargetID: itoa(ids[0]), Relation: graph.RelationCalls, Confidence: 1.0,
	}}); err != nil {
		t.Fatalf("InsertEdges: %v", err)
	}

	callers, err := s.CallersOf(ctx, ids[0])
	if err != nil {
		t.Fatalf("CallersOf: %v", err)
	}
	if len(callers) != 0 {
		t.Fatalf("expected self-edge to be dropped, got %+v", callers)
	}
}

func TestFindImpactReturnsDirectDependents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.InsertNodes(ctx, []graph.Node{
		{Name: "shared", Kind: "function", FilePath: "shared.ts", LineStart: 1},
		{Name: "user", Kind: "function", FilePath: "user.ts", LineStart: 1},
	})
	if err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}
	if err := s.InsertEdges(ctx, []graph.Edge{{
		SourceID: itoa(ids[1]), TargetID: itoa(ids[0]), Relation: graph.RelationCalls, Confidence: 1.0,
	}}); err != nil {
		t.Fatalf("InsertEdges: %v", err)
	}

	impacted, err := s.FindImpact(ctx, "shared")
	if err != nil {
		t.Fatalf("FindImpact: %v", err)
	}
	if len(impacted) != 1 || impacted[0].Name != "user" {
		t.Fatalf("expected user as shared's direct dependent, got %+v", impacted)
	}
}

func TestFindWorkspaceStoreWalksUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(filepath.Join(root, ".codegraph"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".codegraph", "graph.db"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got := FindWorkspaceStore(nested)
	want := filepath.Join(root, ".codegraph", "graph.db")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	empty := t.TempDir()
	if got := FindWorkspaceStore(empty); got != filepath.Join(empty, ".codegraph", "graph.db") {
		t.Fatalf("expected the default path under the start dir, got %q", got)
	}
}

func TestFindMethodSuffixMatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertNodes(ctx, []graph.Node{
		{Name: "Foo.render", Kind: "method", FilePath: "a.ts", LineStart: 1},
		{Name: "Bar.render", Kind: "method", FilePath: "b.ts", LineStart: 1},
		{Name: "render", Kind: "function", FilePath: "c.ts", LineStart: 1},
	}); err != nil {
		t.Fatalf("InsertNodes: %v", err)
	}

	matches, err := s.FindMethodSuffixMatches(ctx, "render")
	if err != nil {
		t.Fatalf("FindMethodSuffixMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 method-suffix matches, got %d", len(matches))
	}
}

func TestMigrateAddsLegacyColumnsToOlderSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Simulate an older database predating confidence/dynamic by replacing
	// edges with a table lacking them, then reopening through the normal
	// migration path.
	if _, err := s.db.Exec(`ALTER TABLE edges RENAME TO edges_old`); err != nil {
		t.Fatalf("rename edges: %v", err)
	}
	if _, err := s.db.Exec(`CREATE TABLE edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_id INTEGER NOT NULL,
		target_id INTEGER NOT NULL,
		kind TEXT NOT NULL
	)`); err != nil {
		t.Fatalf("create legacy edges: %v", err)
	}
	s.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	has, err := reopened.hasColumn("edges", "confidence")
	if err != nil {
		t.Fatalf("hasColumn: %v", err)
	}
	if !has {
		t.Fatalf("expected migrate() to add the confidence column to a legacy edges table")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
