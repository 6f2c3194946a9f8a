// Package pipeline implements the orchestration entry points that sequence
// enumeration, parsing, extraction, and graph construction end to end:
// Build (a full rebuild) and Update (the incremental-delta lifecycle for
// one file).
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"

	"codegraph/internal/builder"
	"codegraph/internal/enumerator"
	"codegraph/internal/extractor"
	"codegraph/internal/grammar"
	"codegraph/internal/resolver"
	"codegraph/internal/store"
)

// Result reports what a build or update wrote. It is the union of every
// stage's own warnings, so an external caller (CLI, MCP tool) can report
// counts without depending on any of the core's internal packages.
type Result struct {
	NodesWritten int
	EdgesWritten int
	Warnings     []string
}

// Build runs the whole pipeline, Enumerate -> Parse -> Extract -> Pass1 ->
// Pass2 -> Commit, over root, clearing and repopulating the store at
// storePath atomically.
func Build(ctx context.Context, root, storePath string) (Result, error) {
	var res Result

	caps, err := grammar.Probe()
	if err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}
	if w := caps.Warning(); w != "" {
		res.Warnings = append(res.Warnings, w)
	}

	files, err := enumerator.Enumerate(root)
	if err != nil {
		return res, fmt.Errorf("pipeline: enumerate %s: %w", root, err)
	}
	sort.Strings(files) // already sorted by Enumerate; defensive, extraction order must be stable

	records, warnings, err := extractAll(ctx, root, caps, files)
	if err != nil {
		return res, fmt.Errorf("pipeline: extract: %w", err)
	}
	res.Warnings = append(res.Warnings, warnings...)

	s, err := store.Open(storePath)
	if err != nil {
		return res, fmt.Errorf("pipeline: open store: %w", err)
	}
	defer s.Close()

	if err := s.Clear(ctx); err != nil {
		return res, fmt.Errorf("pipeline: clear store: %w", err)
	}

	r := resolver.New(root)
	buildRes, err := builder.Build(ctx, s, r, files, records)
	if err != nil {
		return res, fmt.Errorf("pipeline: build graph: %w", err)
	}

	res.NodesWritten = buildRes.NodesWritten
	res.EdgesWritten = buildRes.EdgesWritten
	res.Warnings = append(res.Warnings, buildRes.Warnings...)
	logWarnings(res.Warnings)
	return res, nil
}

func logWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
}

// Update applies the incremental-delta lifecycle for one changed file:
// delete every node/edge touching it, then re-extract and rebuild the
// graph for it alone. Files it imports or that import it are looked up
// against the store's existing contents, which is why Update does not
// re-extract the whole workspace.
func Update(ctx context.Context, root, storePath, path string) (Result, error) {
	var res Result

	caps, err := grammar.Probe()
	if err != nil {
		return res, fmt.Errorf("pipeline: %w", err)
	}

	s, err := store.Open(storePath)
	if err != nil {
		return res, fmt.Errorf("pipeline: open store: %w", err)
	}
	defer s.Close()

	if err := s.DeleteFile(ctx, path); err != nil {
		return res, fmt.Errorf("pipeline: delete %s: %w", path, err)
	}

	rec, warning, err := extractOne(root, caps, path)
	if err != nil {
		return res, fmt.Errorf("pipeline: extract %s: %w", path, err)
	}
	if warning != "" {
		res.Warnings = append(res.Warnings, warning)
		logWarnings(res.Warnings)
		// The file is now absent from the graph (as if deleted); a
		// parse/grammar failure is a skippable per-file error, not fatal.
		return res, nil
	}

	records := map[string]*extractor.FileRecord{path: rec}
	r := resolver.New(root)
	buildRes, err := builder.Build(ctx, s, r, []string{path}, records)
	if err != nil {
		return res, fmt.Errorf("pipeline: build graph: %w", err)
	}

	res.NodesWritten = buildRes.NodesWritten
	res.EdgesWritten = buildRes.EdgesWritten
	res.Warnings = append(res.Warnings, buildRes.Warnings...)
	logWarnings(res.Warnings)
	return res, nil
}
