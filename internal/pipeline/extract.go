package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"codegraph/internal/extractor"
	"codegraph/internal/extractor/hcl"
	"codegraph/internal/extractor/jsts"
	"codegraph/internal/extractor/python"
	"codegraph/internal/grammar"
)

// languageExtractors holds one tree-sitter-backed extractor per language,
// constructed lazily and reused across files a single worker goroutine
// handles. Tree-sitter parsers aren't safe for concurrent use, so each
// worker in extractAll owns its own cache, so per-file extraction stays
// self-contained within a worker.
type languageExtractors struct {
	jsts map[grammar.Language]*jsts.Extractor
	py   *python.Extractor
	hcl  *hcl.Extractor
}

func newLanguageExtractors() *languageExtractors {
	return &languageExtractors{jsts: make(map[grammar.Language]*jsts.Extractor)}
}

func (le *languageExtractors) close() {
	for _, e := range le.jsts {
		e.Close()
	}
	if le.py != nil {
		le.py.Close()
	}
}

func (le *languageExtractors) forLanguage(lang grammar.Language) (extractor.Extractor, error) {
	switch lang {
	case grammar.LangJS, grammar.LangTS, grammar.LangTSX:
		if e, ok := le.jsts[lang]; ok {
			return e, nil
		}
		e, err := jsts.New(lang)
		if err != nil {
			return nil, err
		}
		le.jsts[lang] = e
		return e, nil
	case grammar.LangPython:
		if le.py == nil {
			e, err := python.New()
			if err != nil {
				return nil, err
			}
			le.py = e
		}
		return le.py, nil
	case grammar.LangHCL:
		if le.hcl == nil {
			le.hcl = hcl.New()
		}
		return le.hcl, nil
	default:
		return nil, fmt.Errorf("pipeline: no extractor for language %q", lang)
	}
}

// extractAll parses and extracts every file, bounded-parallel across
// runtime.GOMAXPROCS worker goroutines, each holding its own
// languageExtractors cache so its tree-sitter parsers are reused across
// the files it handles rather than rebuilt per file. A skippable per-file
// error (unreadable file, absent grammar, parse failure) yields one
// warning and excludes that file from the returned map; it never aborts
// the run.
func extractAll(ctx context.Context, root string, caps *grammar.Capabilities, files []string) (map[string]*extractor.FileRecord, []string, error) {
	var (
		mu       sync.Mutex
		records  = make(map[string]*extractor.FileRecord, len(files))
		warnings []string
	)

	paths := make(chan string)
	g, gctx := errgroup.WithContext(ctx)

	workers := runtime.GOMAXPROCS(0)
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			cache := newLanguageExtractors()
			defer cache.close()

			for path := range paths {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec, warning, err := extractOneWithCache(root, caps, path, cache)
				if err != nil {
					return err
				}
				mu.Lock()
				if warning != "" {
					warnings = append(warnings, warning)
				} else {
					records[path] = rec
				}
				mu.Unlock()
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(paths)
		for _, path := range files {
			select {
			case paths <- path:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return records, warnings, nil
}

// extractOne parses and extracts a single file, for the incremental-delta
// path. warning is non-empty, and err nil, for a skippable per-file error.
func extractOne(root string, caps *grammar.Capabilities, path string) (*extractor.FileRecord, string, error) {
	le := newLanguageExtractors()
	defer le.close()
	return extractOneWithCache(root, caps, path, le)
}

// extractOneWithCache does the actual read-parse-extract for one file,
// against the given extractor cache. cache is owned by the caller, which
// is responsible for closing it once it's done handling files.
func extractOneWithCache(root string, caps *grammar.Capabilities, path string, cache *languageExtractors) (*extractor.FileRecord, string, error) {
	lang, ok := grammar.DispatchExtension(path)
	if !ok {
		return nil, fmt.Sprintf("pipeline: %s: no grammar mapped for this extension, skipping", path), nil
	}
	if !caps.Supports(lang) {
		return nil, fmt.Sprintf("pipeline: %s: grammar %q unavailable, skipping", path, lang), nil
	}

	source, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Sprintf("pipeline: %s: unreadable (%v), skipping", path, err), nil
	}

	ext, err := cache.forLanguage(lang)
	if err != nil {
		return nil, fmt.Sprintf("pipeline: %s: %v, skipping", path, err), nil
	}

	rec, err := ext.Extract(path, source)
	if err != nil {
		return nil, fmt.Sprintf("pipeline: %s: parse failed (%v), skipping", path, err), nil
	}
	return rec, "", nil
}
