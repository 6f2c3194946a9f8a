// Package enumerator walks a workspace and yields its tracked source
// files in a stable order, honoring a fixed directory denylist plus
// optional ignore files.
package enumerator

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Denylist holds directory names skipped unconditionally, regardless of
// extension or ignore rules. Vendored dependency caches, build outputs,
// VCS metadata, virtualenvs, and the tool's own output directory.
var Denylist = map[string]bool{
	"node_modules": true,
	".git":         true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".terraform":   true,
	".codegraph":   true,
}

// TrackedExtensions are the file extensions yielded by Enumerate.
var TrackedExtensions = map[string]bool{
	".ts":   true,
	".tsx":  true,
	".js":   true,
	".jsx":  true,
	".mjs":  true,
	".cjs":  true,
	".py":   true,
	".tf":   true,
	".hcl":  true,
}

// Enumerate walks root and returns workspace-relative paths of every
// tracked source file, in stable lexicographic order. Hidden directories
// (dotfile-style, except the root itself) are skipped unconditionally. A
// workspace .gitignore or .codegraphignore, when present, is ORed with
// Denylist: a path is skipped if any rule excludes it.
func Enumerate(root string) ([]string, error) {
	ignore := loadIgnoreRules(root)

	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := info.Name()

		if info.IsDir() {
			if Denylist[name] || isHidden(name) {
				return filepath.SkipDir
			}
			if ignore.matches(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if ignore.matches(rel) {
			return nil
		}
		if TrackedExtensions[filepath.Ext(name)] {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(out)
	return out, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

type ignoreRules struct {
	matchers []*gitignore.GitIgnore
}

func (r ignoreRules) matches(rel string) bool {
	for _, m := range r.matchers {
		if m.MatchesPath(rel) {
			return true
		}
	}
	return false
}

func loadIgnoreRules(root string) ignoreRules {
	var rules ignoreRules
	for _, name := range []string{".gitignore", ".codegraphignore"} {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := gitignore.CompileIgnoreFile(path)
		if err != nil || m == nil {
			continue // malformed ignore file: skippable, never fatal
		}
		rules.matchers = append(rules.matchers, m)
	}
	return rules
}
