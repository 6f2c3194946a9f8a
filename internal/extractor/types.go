// Package extractor defines the strongly-typed records symbol extraction
// produces per file, and the common Extractor interface each language
// package implements. FileRecord exposes only the fields the graph
// builder consumes.
package extractor

// Definition is a single named declaration found in a file.
type Definition struct {
	Name string
	// Kind is one of graph.Kind*.
	Kind string
	// StartLine and EndLine are 1-indexed; EndLine is nil when the
	// grammar doesn't expose a meaningful closing span.
	StartLine int
	EndLine   *int
	// Decorators holds Python decorator names attached to this
	// definition, in source order. Empty for other languages.
	Decorators []string
}

// ImportKind distinguishes the shapes an import-like statement can take.
type ImportKind int

const (
	// ImportNamed covers `import { a, b } from 'x'`, bare `import x.y`,
	// and `from x import y`.
	ImportNamed ImportKind = iota
	// ImportDefault covers a default import binding.
	ImportDefault
	// ImportNamespace covers `import * as X from 'x'` (normalized to X).
	ImportNamespace
	// ImportReexport covers `export { a } from 'x'` / `export x.y`-style
	// re-export statements with a source clause.
	ImportReexport
	// ImportReexportWildcard covers `export * from 'x'`.
	ImportReexportWildcard
)

// Import records one import/re-export statement. A single source
// statement with multiple named bindings yields multiple Import records
// sharing the same Specifier/Line/TypeOnly/Kind.
type Import struct {
	// Specifier is the raw module/path string as written in source.
	Specifier string
	// Name is the local binding name this record refers to ("" for a
	// bare `import x.y` style statement with no destructured bindings).
	Name string
	Kind ImportKind
	// TypeOnly is true for `import type { ... }` statements.
	TypeOnly bool
	Line     int
}

// CallKind distinguishes the four recognized call-site shapes.
type CallKind int

const (
	CallDirect    CallKind = iota // foo(...)
	CallMember                    // obj.foo(...)
	CallDynamicFn                 // fn.call/apply/bind(...)
	CallComputed                  // obj["foo"](...)
)

// Call is a single call expression.
type Call struct {
	Name    string
	Line    int
	Kind    CallKind
	Dynamic bool
}

// HeritageKind distinguishes extends from implements.
type HeritageKind int

const (
	HeritageExtends HeritageKind = iota
	HeritageImplements
)

// Heritage is one class-heritage relation (one record per superclass or
// per implemented interface).
type Heritage struct {
	ClassName string
	TargetName string
	Kind       HeritageKind
	Line       int
}

// Export records a name exported by a file without a source clause
// (local declaration re-exported). Used to confirm barrel re-export
// targets actually define the requested name.
type Export struct {
	Name string
	Line int
}

// FileRecord is everything extracted from one source file.
type FileRecord struct {
	Path        string
	Definitions []Definition
	Exports     []Export
	Imports     []Import
	Calls       []Call
	Classes     []Heritage
}

// Extractor produces a FileRecord from parsed source. Each language
// package implements this independently; the Graph Builder only depends
// on this interface and FileRecord.
type Extractor interface {
	Extract(path string, source []byte) (*FileRecord, error)
}
