// Package builder implements the graph builder and call resolver: the
// two-pass transactional algorithm that turns per-file extraction records
// into the persisted node/edge graph, including the confidence-ranked
// call resolver.
package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"codegraph/internal/extractor"
	"codegraph/internal/graph"
	"codegraph/internal/resolver"
	"codegraph/internal/store"
	"codegraph/util"
)

// callKinds are the node kinds a call site's target can resolve to.
var callKinds = []string{graph.KindFunction, graph.KindMethod, graph.KindClass, graph.KindInterface}

// Result reports what one build wrote, for an external caller (pipeline,
// CLI, MCP tool) to surface without depending on the core's internals.
type Result struct {
	NodesWritten int
	EdgesWritten int
	Warnings     []string
}

// Build runs Pass 1 (node materialization) then Pass 2 (edge construction)
// over records. files fixes the stable, sorted file order Pass 1 writes
// in, since file node insertion order must be stable.
func Build(ctx context.Context, s *store.Store, r *resolver.Resolver, files []string, records map[string]*extractor.FileRecord) (Result, error) {
	var res Result

	nodeCount, err := pass1(ctx, s, files, records)
	if err != nil {
		return res, fmt.Errorf("builder: pass 1: %w", err)
	}
	res.NodesWritten = nodeCount

	barrelMap := resolver.BuildBarrelMap(records, r)

	edgeCount, warnings, err := pass2(ctx, s, r, barrelMap, files, records)
	if err != nil {
		return res, fmt.Errorf("builder: pass 2: %w", err)
	}
	res.EdgesWritten = edgeCount
	res.Warnings = warnings

	return res, nil
}

// pass1 inserts a file node per file plus one node per extracted
// definition, inside a single write transaction.
func pass1(ctx context.Context, s *store.Store, files []string, records map[string]*extractor.FileRecord) (int, error) {
	var nodes []graph.Node
	for _, path := range files {
		nodes = append(nodes, graph.Node{
			Name:      path,
			Kind:      graph.KindFile,
			FilePath:  path,
			LineStart: 0,
			SymbolURI: util.PathToURI(path),
		})
		rec := records[path]
		if rec == nil {
			continue
		}
		for _, def := range rec.Definitions {
			nodes = append(nodes, graph.Node{
				Name:      def.Name,
				Kind:      def.Kind,
				FilePath:  path,
				LineStart: def.StartLine,
				LineEnd:   def.EndLine,
				SymbolURI: util.PathToURI(path),
			})
		}
	}

	if _, err := s.InsertNodes(ctx, nodes); err != nil {
		return 0, err
	}
	return len(nodes), nil
}

// pass2 builds import, call, and heritage edges for every file and writes
// them in a single write transaction.
func pass2(ctx context.Context, s *store.Store, r *resolver.Resolver, barrelMap *resolver.BarrelMap, files []string, records map[string]*extractor.FileRecord) (int, []string, error) {
	var edges []graph.Edge
	var warnings []string

	for _, path := range files {
		rec := records[path]
		if rec == nil {
			continue
		}

		fileID, ok, err := s.NodeID(ctx, path, graph.KindFile, path, 0)
		if err != nil {
			return 0, warnings, err
		}
		if !ok {
			warnings = append(warnings, fmt.Sprintf("builder: no file node for %s, skipping its edges", path))
			continue
		}

		importEdges, err := importEdgesForFile(ctx, s, r, barrelMap, path, fileID, rec)
		if err != nil {
			return 0, warnings, err
		}
		edges = append(edges, importEdges...)

		callEdges, err := callEdgesForFile(ctx, s, r, barrelMap, path, fileID, rec)
		if err != nil {
			return 0, warnings, err
		}
		edges = append(edges, callEdges...)

		heritageEdges, err := heritageEdgesForFile(ctx, s, rec)
		if err != nil {
			return 0, warnings, err
		}
		edges = append(edges, heritageEdges...)
	}

	if err := s.InsertEdges(ctx, edges); err != nil {
		return 0, warnings, err
	}
	return len(edges), warnings, nil
}

func importEdgesForFile(ctx context.Context, s *store.Store, r *resolver.Resolver, barrelMap *resolver.BarrelMap, path string, fileID int64, rec *extractor.FileRecord) ([]graph.Edge, error) {
	var edges []graph.Edge

	for _, imp := range rec.Imports {
		target, ok := r.Resolve(imp.Specifier, path)
		if !ok {
			continue // resolution miss: no edge, no warning
		}
		targetID, ok, err := s.NodeID(ctx, target, graph.KindFile, target, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue // target isn't a tracked source file (e.g. a package, an asset)
		}

		relation := relationForImport(imp)
		edges = append(edges, graph.Edge{
			SourceID:   fmt.Sprintf("%d", fileID),
			TargetID:   fmt.Sprintf("%d", targetID),
			Relation:   relation,
			Confidence: graph.ConfidenceSameFile,
		})

		if imp.Name == "" || !isNamedBinding(imp.Kind) || !barrelMap.IsBarrel(target) {
			continue
		}
		final, ok := barrelMap.Resolve(target, imp.Name)
		if !ok || final == target {
			continue
		}
		finalID, ok, err := s.NodeID(ctx, final, graph.KindFile, final, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		edges = append(edges, graph.Edge{
			SourceID:   fmt.Sprintf("%d", fileID),
			TargetID:   fmt.Sprintf("%d", finalID),
			Relation:   relation,
			Confidence: graph.ConfidenceBarrelIndirect,
		})
	}
	return edges, nil
}

func relationForImport(imp extractor.Import) string {
	switch imp.Kind {
	case extractor.ImportReexport, extractor.ImportReexportWildcard:
		return graph.RelationReexports
	default:
		if imp.TypeOnly {
			return graph.RelationImportsType
		}
		return graph.RelationImports
	}
}

func isNamedBinding(kind extractor.ImportKind) bool {
	return kind == extractor.ImportNamed || kind == extractor.ImportDefault || kind == extractor.ImportNamespace
}

func callEdgesForFile(ctx context.Context, s *store.Store, r *resolver.Resolver, barrelMap *resolver.BarrelMap, path string, fileID int64, rec *extractor.FileRecord) ([]graph.Edge, error) {
	importedNames := buildImportedNamesMap(r, path, rec.Imports)

	defs := make([]extractor.Definition, len(rec.Definitions))
	copy(defs, rec.Definitions)
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].StartLine < defs[j].StartLine })

	var edges []graph.Edge
	for _, call := range rec.Calls {
		callerID, callerFile, err := attributeCaller(ctx, s, path, fileID, defs, call.Line)
		if err != nil {
			return nil, err
		}

		importTarget := importedNames[call.Name]
		candidates, importOrigin, err := resolveCallCandidates(ctx, s, barrelMap, path, call.Name, importTarget)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			continue // resolution miss: no edge, no warning
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return confidenceFor(callerFile, candidates[i].FilePath, importOrigin) >
				confidenceFor(callerFile, candidates[j].FilePath, importOrigin)
		})

		for _, cand := range candidates {
			if cand.ID == callerID {
				continue // no self-edges
			}
			edges = append(edges, graph.Edge{
				SourceID:   callerID,
				TargetID:   cand.ID,
				Relation:   graph.RelationCalls,
				Confidence: confidenceFor(callerFile, cand.FilePath, importOrigin),
				Dynamic:    call.Dynamic,
			})
		}
	}
	return edges, nil
}

// buildImportedNamesMap maps a locally-bound import name to its resolved
// target file. Bare wildcard re-exports carry no Name and are naturally
// excluded.
func buildImportedNamesMap(r *resolver.Resolver, path string, imports []extractor.Import) map[string]string {
	out := make(map[string]string)
	for _, imp := range imports {
		if imp.Name == "" {
			continue
		}
		target, ok := r.Resolve(imp.Specifier, path)
		if !ok {
			continue
		}
		out[imp.Name] = target
	}
	return out
}

// attributeCaller finds the definition in path whose start line is the
// greatest value <= line, falling back to the file node. Ties (two
// definitions on the same line) attribute to the last one in source
// order.
func attributeCaller(ctx context.Context, s *store.Store, path string, fileID int64, sortedDefs []extractor.Definition, line int) (id string, callerFile string, err error) {
	var best *extractor.Definition
	for i := range sortedDefs {
		d := &sortedDefs[i]
		if d.StartLine <= line && (best == nil || d.StartLine >= best.StartLine) {
			best = d
		}
	}
	if best == nil {
		return fmt.Sprintf("%d", fileID), path, nil
	}
	nodeID, ok, err := s.NodeID(ctx, best.Name, best.Kind, path, best.StartLine)
	if err != nil {
		return "", "", err
	}
	if !ok {
		return fmt.Sprintf("%d", fileID), path, nil
	}
	return fmt.Sprintf("%d", nodeID), path, nil
}

// resolveCallCandidates implements the four-tier priority order, stopping
// at the first tier with any match. importOrigin is the file the called
// name effectively came from: importTarget itself, or the file a barrel
// chain ultimately resolved to, so the confidence scorer treats a
// barrel-routed target as the import origin.
func resolveCallCandidates(ctx context.Context, s *store.Store, barrelMap *resolver.BarrelMap, callerFile, name, importTarget string) (candidates []*graph.Node, importOrigin string, err error) {
	importOrigin = importTarget
	if importTarget != "" {
		nodes, err := s.FindNodesByKindsAndName(ctx, name, callKinds, importTarget)
		if err != nil {
			return nil, importOrigin, err
		}
		if len(nodes) == 0 && barrelMap.IsBarrel(importTarget) {
			if final, ok := barrelMap.Resolve(importTarget, name); ok {
				nodes, err = s.FindNodesByKindsAndName(ctx, name, callKinds, final)
				if err != nil {
					return nil, importOrigin, err
				}
				if len(nodes) > 0 {
					importOrigin = final
				}
			}
		}
		if len(nodes) > 0 {
			return nodes, importOrigin, nil
		}
	}

	sameFile, err := s.FindNodesByKindsAndName(ctx, name, callKinds, callerFile)
	if err != nil {
		return nil, importOrigin, err
	}
	if len(sameFile) > 0 {
		return sameFile, importOrigin, nil
	}

	methodMatches, err := s.FindMethodSuffixMatches(ctx, name)
	if err != nil {
		return nil, importOrigin, err
	}
	if len(methodMatches) > 0 {
		return methodMatches, importOrigin, nil
	}

	global, err := s.FindNodesByKindsAndName(ctx, name, callKinds, "")
	return global, importOrigin, err
}

func confidenceFor(callerFile, targetFile, importTarget string) float64 {
	if callerFile == targetFile {
		return graph.ConfidenceSameFile
	}
	if importTarget != "" && targetFile == importTarget {
		return graph.ConfidenceSameFile
	}
	if filepath.Dir(callerFile) == filepath.Dir(targetFile) {
		return graph.ConfidenceSameDir
	}
	if filepath.Dir(filepath.Dir(callerFile)) == filepath.Dir(filepath.Dir(targetFile)) {
		return graph.ConfidenceSameParentDir
	}
	return graph.ConfidenceDefault
}

func heritageEdgesForFile(ctx context.Context, s *store.Store, rec *extractor.FileRecord) ([]graph.Edge, error) {
	var edges []graph.Edge
	for _, h := range rec.Classes {
		sourceNodes, err := s.FindNodesByKindsAndName(ctx, h.ClassName, []string{graph.KindClass}, rec.Path)
		if err != nil {
			return nil, err
		}
		if len(sourceNodes) == 0 {
			continue
		}
		sourceID := sourceNodes[0].ID

		relation := graph.RelationImplements
		targetKinds := []string{graph.KindInterface, graph.KindClass}
		if h.Kind == extractor.HeritageExtends {
			relation = graph.RelationExtends
			targetKinds = []string{graph.KindClass}
		}

		targets, err := s.FindNodesByKindsAndName(ctx, h.TargetName, targetKinds, "")
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			if t.ID == sourceID {
				continue
			}
			edges = append(edges, graph.Edge{
				SourceID:   sourceID,
				TargetID:   t.ID,
				Relation:   relation,
				Confidence: graph.ConfidenceSameFile,
			})
		}
	}
	return edges, nil
}
