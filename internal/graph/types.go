// Package graph defines the node/edge types shared by every pipeline stage.
package graph

// Node represents a source-code artifact: a file, or a definition found in
// one (function, method, class, interface, type alias, or an HCL block).
type Node struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	FilePath  string `json:"file_path"`
	LineStart int    `json:"line_start"`
	// LineEnd is nil for nodes lacking a syntactic span (files always have
	// LineStart 0 and a nil LineEnd).
	LineEnd   *int   `json:"line_end,omitempty"`
	SymbolURI string `json:"symbol_uri"`
}

// Edge is a directed, typed, weighted link between two nodes. Multiple
// edges with identical (SourceID, TargetID, Relation) are allowed; readers
// deduplicate if they need to.
type Edge struct {
	SourceID   string  `json:"source_id"`
	TargetID   string  `json:"target_id"`
	Relation   string  `json:"relation"`
	Confidence float64 `json:"confidence"`
	Dynamic    bool    `json:"dynamic"`
}

// Edge kinds.
const (
	RelationImports     = "imports"
	RelationImportsType = "imports-type"
	RelationReexports   = "reexports"
	RelationCalls       = "calls"
	RelationExtends     = "extends"
	RelationImplements  = "implements"
)

// Node kinds for program languages (JS/TS-family, Python).
const (
	KindFile          = "file"
	KindFunction      = "function"
	KindMethod        = "method"
	KindClass         = "class"
	KindInterface     = "interface"
	KindType          = "type"
	KindArrowFunction = "arrow function"
)

// Node kinds unique to the HCL/Terraform dialect.
const (
	KindResource  = "resource"
	KindData      = "data"
	KindVariable  = "variable"
	KindModule    = "module"
	KindOutput    = "output"
	KindLocals    = "locals"
	KindTerraform = "terraform"
	KindProvider  = "provider"
)

// Confidence constants used by the call resolver. Non-calls edges are
// always 1.0; barrel-indirection import edges are 0.9.
const (
	ConfidenceSameFile       = 1.0
	ConfidenceBarrelIndirect = 0.9
	ConfidenceSameDir        = 0.7
	ConfidenceSameParentDir  = 0.5
	ConfidenceDefault        = 0.3
)
