// Package resolver implements the import & alias resolver: mapping an
// import specifier to a canonical workspace-relative path.
package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// probeSuffixes is the fixed suffix probe list, in priority order.
var probeSuffixes = []string{
	"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".py",
	"/index.ts", "/index.tsx", "/index.js", "/__init__.py",
}

// Resolver maps import specifiers to workspace-relative file paths.
type Resolver struct {
	root   string
	config *Config
}

// New constructs a Resolver rooted at workspaceRoot, loading at most one
// project config file up front.
func New(workspaceRoot string) *Resolver {
	abs, err := filepath.Abs(workspaceRoot)
	if err != nil {
		abs = workspaceRoot
	}
	return &Resolver{root: abs, config: loadConfig(abs)}
}

// pythonProbeSuffixes restricts the probe list for Python module paths.
var pythonProbeSuffixes = []string{"", ".py", "/__init__.py"}

// Resolve maps specifier, issued from workspace-relative file from, to a
// workspace-relative path. ok reports whether an actual file on disk was
// found; when false, the returned path is the best-effort unresolved form
// and no edge should be created from it.
func (r *Resolver) Resolve(specifier, from string) (path string, ok bool) {
	if strings.HasSuffix(from, ".py") {
		return r.resolvePython(specifier, from)
	}
	if isRelative(specifier) {
		return r.resolveRelative(specifier, from)
	}
	return r.resolveBare(specifier)
}

// resolvePython maps a Python module path to a workspace-relative file.
// Leading dots navigate relative to the importing file's package (one dot
// is the current package, each further dot one package up); the remaining
// dotted path maps to directories. Non-relative module paths are probed
// under the workspace root only; external packages do not resolve and
// produce no edges.
func (r *Resolver) resolvePython(specifier, from string) (string, bool) {
	dots := 0
	for dots < len(specifier) && specifier[dots] == '.' {
		dots++
	}
	rest := strings.ReplaceAll(specifier[dots:], ".", "/")

	base := ""
	if dots > 0 {
		base = filepath.ToSlash(filepath.Dir(from))
		for i := 1; i < dots; i++ {
			base = filepath.ToSlash(filepath.Dir(base))
		}
	}
	candidate := filepath.ToSlash(filepath.Join(base, rest))

	for _, suf := range pythonProbeSuffixes {
		c := candidate + suf
		if r.exists(c) {
			return c, true
		}
	}
	if dots == 0 {
		return specifier, false
	}
	return candidate, false
}

func isRelative(specifier string) bool {
	return strings.HasPrefix(specifier, ".")
}

func (r *Resolver) resolveRelative(specifier, from string) (string, bool) {
	dir := filepath.ToSlash(filepath.Dir(from))
	joined := filepath.ToSlash(filepath.Join(dir, specifier))

	if strings.HasSuffix(joined, ".js") {
		stem := strings.TrimSuffix(joined, ".js")
		for _, ext := range []string{".ts", ".tsx"} {
			if r.exists(stem + ext) {
				return stem + ext, true
			}
		}
	}

	for _, suf := range probeSuffixes {
		candidate := joined + suf
		if r.exists(candidate) {
			return candidate, true
		}
	}
	return joined, false
}

func (r *Resolver) resolveBare(specifier string) (string, bool) {
	if r.config != nil {
		if path, ok := r.resolveAlias(specifier); ok {
			return path, true
		}
		candidate := filepath.ToSlash(filepath.Join(filepathRelSafe(r.root, r.config.BaseURL), specifier))
		for _, suf := range probeSuffixes {
			c := candidate + suf
			if r.exists(c) {
				return c, true
			}
		}
	}
	// Not relative and alias resolution failed: treated as an external
	// module. Returned unchanged so it will not match any file node.
	return specifier, false
}

// resolveAlias tries each alias pattern whose literal prefix matches
// specifier, substituting the wildcard tail into each of the pattern's
// target directories and probing candidates. Patterns are tried
// longest-literal-prefix first for determinism when more than one pattern
// could match.
func (r *Resolver) resolveAlias(specifier string) (string, bool) {
	type candidate struct {
		prefix  string
		targets []string
	}
	var matches []candidate
	for pattern, targets := range r.config.Paths {
		prefix := strings.TrimSuffix(pattern, "*")
		if strings.HasPrefix(specifier, prefix) {
			matches = append(matches, candidate{prefix: prefix, targets: targets})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if len(matches[i].prefix) != len(matches[j].prefix) {
			return len(matches[i].prefix) > len(matches[j].prefix)
		}
		return matches[i].prefix < matches[j].prefix
	})

	for _, m := range matches {
		tail := strings.TrimPrefix(specifier, m.prefix)
		for _, target := range m.targets {
			base := strings.TrimSuffix(target, "*") + tail
			relBase := filepath.ToSlash(filepathRelSafe(r.root, base))
			for _, suf := range probeSuffixes {
				c := relBase + suf
				if r.exists(c) {
					return c, true
				}
			}
		}
	}
	return "", false
}

func (r *Resolver) exists(workspaceRelative string) bool {
	full := filepath.Join(r.root, filepath.FromSlash(workspaceRelative))
	info, err := os.Stat(full)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// filepathRelSafe returns path relative to root, falling back to path
// itself if it cannot be made relative (e.g. different volumes).
func filepathRelSafe(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
