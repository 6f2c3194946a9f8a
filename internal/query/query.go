// Package query implements the five reverse-reachability query kinds as
// library functions over *store.Store: symbol lookup, file-level impact,
// function-level impact, the module map, and diff impact. It never
// mutates the store.
package query

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"codegraph/internal/graph"
	"codegraph/internal/store"
)

// testFilePattern is the stable pattern used to identify test artifacts,
// opt-in to every reverse-reachability query.
var testFilePattern = regexp.MustCompile(`\.(test|spec)\.|__test__|__tests__|\.stories\.`)

// IsTestFile reports whether path matches the test-file filter.
func IsTestFile(path string) bool {
	return testFilePattern.MatchString(path)
}

// CallerEdge is one caller row. Via is empty for a direct caller; for a
// caller found through the method hierarchy it names the path used, e.g.
// "Child.m -> Parent.m".
type CallerEdge struct {
	store.EdgeRow
	Via string `json:"via,omitempty"`
}

// SymbolMatch is one node returned by SymbolLookup or GetSymbol, along
// with its callers and callees.
type SymbolMatch struct {
	Node    *graph.Node
	Callers []CallerEdge
	Callees []store.EdgeRow
}

// SymbolLookup finds every node whose name contains substr and reports
// its callers and callees. Method-hierarchy-aware expansion (ancestor
// callers) is applied to every method-kind match.
func SymbolLookup(ctx context.Context, s *store.Store, substr string, excludeTests bool) ([]SymbolMatch, error) {
	nodes, err := s.FindNodesBySubstring(ctx, substr)
	if err != nil {
		return nil, err
	}

	var out []SymbolMatch
	for _, n := range nodes {
		if excludeTests && IsTestFile(n.FilePath) {
			continue
		}
		id, err := parseID(n.ID)
		if err != nil {
			return nil, err
		}

		callers, err := CallersWithHierarchy(ctx, s, n)
		if err != nil {
			return nil, err
		}
		callees, err := s.CalleesOf(ctx, id)
		if err != nil {
			return nil, err
		}
		if excludeTests {
			callers = filterTestCallers(callers)
			callees = filterTestFiles(callees)
		}

		out = append(out, SymbolMatch{Node: n, Callers: callers, Callees: callees})
	}
	return out, nil
}

// CallersWithHierarchy returns direct callers of n plus, when n is a
// method `C.m`, the callers of `A.m` for every ancestor class A of C
// reachable via `extends`, each annotated with the hierarchy path used.
func CallersWithHierarchy(ctx context.Context, s *store.Store, n *graph.Node) ([]CallerEdge, error) {
	id, err := parseID(n.ID)
	if err != nil {
		return nil, err
	}
	direct, err := s.CallersOf(ctx, id)
	if err != nil {
		return nil, err
	}
	callers := make([]CallerEdge, 0, len(direct))
	for _, row := range direct {
		callers = append(callers, CallerEdge{EdgeRow: row})
	}
	if n.Kind != graph.KindMethod {
		return callers, nil
	}

	className, methodName, ok := splitMethodName(n.Name)
	if !ok {
		return callers, nil
	}

	classNodes, err := s.FindNodesByKindsAndName(ctx, className, []string{graph.KindClass}, n.FilePath)
	if err != nil {
		return nil, err
	}
	if len(classNodes) == 0 {
		return callers, nil
	}

	for _, ancestorMethod := range ancestorMethodNodes(ctx, s, classNodes[0], methodName) {
		aid, err := parseID(ancestorMethod.ID)
		if err != nil {
			return nil, err
		}
		ancestorCallers, err := s.CallersOf(ctx, aid)
		if err != nil {
			return nil, err
		}
		via := n.Name + " -> " + ancestorMethod.Name
		for _, row := range ancestorCallers {
			callers = append(callers, CallerEdge{EdgeRow: row, Via: via})
		}
	}
	return callers, nil
}

// ancestorMethodNodes walks the `extends` chain from classNode and
// collects every ancestor's `Ancestor.methodName` definition node, if any.
func ancestorMethodNodes(ctx context.Context, s *store.Store, classNode *graph.Node, methodName string) []*graph.Node {
	var out []*graph.Node
	visited := map[string]bool{classNode.ID: true}
	frontier := []*graph.Node{classNode}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		id, err := parseID(current.ID)
		if err != nil {
			continue
		}
		ancestors, err := s.AncestorsOf(ctx, id)
		if err != nil {
			continue
		}
		for _, a := range ancestors {
			if visited[a.ID] {
				continue
			}
			visited[a.ID] = true

			methodNodes, err := s.FindNodesByKindsAndName(ctx, a.Name+"."+methodName, []string{graph.KindMethod}, a.FilePath)
			if err == nil {
				out = append(out, methodNodes...)
			}
			frontier = append(frontier, a)
		}
	}
	return out
}

func splitMethodName(name string) (class, method string, ok bool) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i], name[i+1:], true
		}
	}
	return "", "", false
}

func filterTestFiles(rows []store.EdgeRow) []store.EdgeRow {
	var out []store.EdgeRow
	for _, r := range rows {
		if !IsTestFile(r.Node.FilePath) {
			out = append(out, r)
		}
	}
	return out
}

func filterTestCallers(rows []CallerEdge) []CallerEdge {
	var out []CallerEdge
	for _, r := range rows {
		if !IsTestFile(r.Node.FilePath) {
			out = append(out, r)
		}
	}
	return out
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query: malformed node id %q: %w", id, err)
	}
	return n, nil
}

func sortByFile(nodes []*graph.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].FilePath != nodes[j].FilePath {
			return nodes[i].FilePath < nodes[j].FilePath
		}
		return nodes[i].LineStart < nodes[j].LineStart
	})
}

// FileImpactLevel is one BFS level of a file-level impact traversal: every
// file that reaches the queried file through a chain of `level` import
// edges.
type FileImpactLevel struct {
	Level int
	Files []*graph.Node
}

// FileImpact performs a level-annotated breadth-first reverse traversal
// over imports/imports-type edges starting at path. Level 0 is path's own
// file node; level 1 is its direct importers; and so on. A file already
// seen at an earlier level is not repeated.
func FileImpact(ctx context.Context, s *store.Store, path string, excludeTests bool) ([]FileImpactLevel, error) {
	rootID, ok, err := s.NodeID(ctx, path, graph.KindFile, path, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("query: no file node for %q", path)
	}
	rootNode, err := s.GetNode(ctx, rootID)
	if err != nil {
		return nil, err
	}

	visited := map[int64]bool{rootID: true}
	levels := []FileImpactLevel{{Level: 0, Files: []*graph.Node{rootNode}}}
	frontier := []int64{rootID}

	for level := 1; len(frontier) > 0; level++ {
		var next []int64
		var nodes []*graph.Node
		for _, id := range frontier {
			importers, err := s.ImportersOf(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, imp := range importers {
				iid, err := parseID(imp.Node.ID)
				if err != nil {
					return nil, err
				}
				if visited[iid] {
					continue
				}
				if excludeTests && IsTestFile(imp.Node.FilePath) {
					continue
				}
				visited[iid] = true
				next = append(next, iid)
				nodes = append(nodes, imp.Node)
			}
		}
		if len(nodes) == 0 {
			break
		}
		sortByFile(nodes)
		levels = append(levels, FileImpactLevel{Level: level, Files: nodes})
		frontier = next
	}
	return levels, nil
}

// FunctionImpactLevel is one BFS level of a function-level impact
// traversal: every function/method reachable from the queried node through
// a chain of `level` reverse `calls` edges.
type FunctionImpactLevel struct {
	Level int
	Calls []store.EdgeRow
}

// FunctionImpact performs a depth-bounded breadth-first reverse traversal
// over `calls` edges starting at nodeID. depth <= 0 returns only the
// root's direct callers (depth 1).
func FunctionImpact(ctx context.Context, s *store.Store, nodeID int64, depth int, excludeTests bool) ([]FunctionImpactLevel, error) {
	if depth <= 0 {
		depth = 1
	}

	visited := map[int64]bool{nodeID: true}
	frontier := []int64{nodeID}
	var levels []FunctionImpactLevel

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []int64
		var rows []store.EdgeRow
		for _, id := range frontier {
			callers, err := s.CallersOf(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, c := range callers {
				cid, err := parseID(c.Node.ID)
				if err != nil {
					return nil, err
				}
				if visited[cid] {
					continue
				}
				if excludeTests && IsTestFile(c.Node.FilePath) {
					continue
				}
				visited[cid] = true
				next = append(next, cid)
				rows = append(rows, c)
			}
		}
		if len(rows) == 0 {
			break
		}
		levels = append(levels, FunctionImpactLevel{Level: level, Calls: rows})
		frontier = next
	}
	return levels, nil
}

// ModuleRank is one row of the module map: a file node and its inbound
// edge count across imports/imports-type/calls edges.
type ModuleRank struct {
	Node  *graph.Node
	Count int
}

// ModuleMap ranks every non-test file node by inbound edge count,
// descending.
func ModuleMap(ctx context.Context, s *store.Store) ([]ModuleRank, error) {
	files, err := s.AllFileNodes(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.InboundEdgeCounts(ctx, []string{graph.RelationImports, graph.RelationImportsType, graph.RelationCalls})
	if err != nil {
		return nil, err
	}

	var out []ModuleRank
	for _, f := range files {
		if IsTestFile(f.FilePath) {
			continue
		}
		id, err := parseID(f.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ModuleRank{Node: f, Count: counts[id]})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Node.FilePath < out[j].Node.FilePath
	})
	return out, nil
}

// LineRange is one inclusive line range (both ends included) supplied
// by a diff hunk, e.g. the `+12,5` of `@@ +12,5 @@` becomes {Start: 12,
// End: 16}.
type LineRange struct {
	Start int
	End   int
}

// DiffImpactResult is the affected-definitions set for one file plus its
// transitive callers.
type DiffImpactResult struct {
	AffectedDefinitions []*graph.Node
	TransitiveCallers   []FunctionImpactLevel
}

// DiffImpact finds every definition in file whose [line, end_line] overlaps
// any of ranges (falling back to "next definition's line - 1", or +inf if
// last, when a definition's end_line is null), then reverse-traverses
// `calls` up to depth for each affected definition, merging the resulting
// levels.
func DiffImpact(ctx context.Context, s *store.Store, file string, ranges []LineRange, depth int, excludeTests bool) (DiffImpactResult, error) {
	var result DiffImpactResult
	if depth <= 0 {
		depth = 3
	}

	defs, err := s.GetSymbolsInFile(ctx, file)
	if err != nil {
		return result, err
	}
	sortByFile(defs)

	ends := effectiveEndLines(defs)

	for i, d := range defs {
		if d.Kind == graph.KindFile {
			continue
		}
		if overlapsAny(d.LineStart, ends[i], ranges) {
			result.AffectedDefinitions = append(result.AffectedDefinitions, d)
		}
	}

	merged := map[int]map[string]store.EdgeRow{}
	for _, d := range result.AffectedDefinitions {
		id, err := parseID(d.ID)
		if err != nil {
			return result, err
		}
		levels, err := FunctionImpact(ctx, s, id, depth, excludeTests)
		if err != nil {
			return result, err
		}
		for _, lvl := range levels {
			bucket, ok := merged[lvl.Level]
			if !ok {
				bucket = map[string]store.EdgeRow{}
				merged[lvl.Level] = bucket
			}
			for _, row := range lvl.Calls {
				bucket[row.Node.ID] = row
			}
		}
	}

	for level := 1; level <= depth; level++ {
		bucket, ok := merged[level]
		if !ok || len(bucket) == 0 {
			continue
		}
		var rows []store.EdgeRow
		for _, row := range bucket {
			rows = append(rows, row)
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Node.FilePath < rows[j].Node.FilePath })
		result.TransitiveCallers = append(result.TransitiveCallers, FunctionImpactLevel{Level: level, Calls: rows})
	}
	return result, nil
}

// effectiveEndLines computes, for each definition in defs (already sorted
// by file then line), the end line to use in overlap computation: its own
// LineEnd when set, else the next definition's line minus one, else an
// effectively infinite bound for the last definition in the file.
func effectiveEndLines(defs []*graph.Node) []int {
	const effectivelyInfinite = int(^uint(0) >> 1)
	out := make([]int, len(defs))
	for i, d := range defs {
		if d.LineEnd != nil {
			out[i] = *d.LineEnd
			continue
		}
		if i+1 < len(defs) && defs[i+1].FilePath == d.FilePath {
			out[i] = defs[i+1].LineStart - 1
			continue
		}
		out[i] = effectivelyInfinite
	}
	return out
}

func overlapsAny(start, end int, ranges []LineRange) bool {
	for _, r := range ranges {
		if start <= r.End && r.Start <= end {
			return true
		}
	}
	return false
}
