// Package hcl implements the symbol extractor for the HCL/Terraform
// dialect. Unlike the other two language packages, this uses
// hashicorp/hcl/v2's native parser rather than
// tree-sitter: HCL's block/attribute structure is exactly what hclsyntax
// already models, and hclsyntax gives typed access to the "source"
// attribute's literal string value that a raw tree-sitter grammar would
// leave as an unevaluated expression node.
package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"codegraph/internal/extractor"
)

// blockNameKinds maps an HCL block type to the graph.Kind* constant it
// produces. Blocks not in this map (e.g. "provisioner") are ignored.
var blockNameKinds = map[string]string{
	"resource":  "resource",
	"data":      "data",
	"variable":  "variable",
	"module":    "module",
	"output":    "output",
	"locals":    "locals",
	"terraform": "terraform",
	"provider":  "provider",
}

// Extractor extracts HCL/Terraform symbols.
type Extractor struct{}

// New constructs an HCL Extractor.
func New() *Extractor { return &Extractor{} }

// Extract parses source with hclparse and walks top-level blocks: each
// block becomes one definition named by its block type and labels; a
// module block whose "source" attribute is a static string produces an
// import (only a relative one resolves to a workspace file). Source with
// parse errors yields an error and no record.
func (e *Extractor) Extract(path string, source []byte) (*extractor.FileRecord, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(source, path)
	if diags.HasErrors() || file == nil {
		return nil, fmt.Errorf("hcl: parse %s: %s", path, diags.Error())
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return &extractor.FileRecord{Path: path}, nil
	}

	rec := &extractor.FileRecord{Path: path}
	for _, block := range body.Blocks {
		extractBlock(rec, block)
	}
	return rec, nil
}

func extractBlock(rec *extractor.FileRecord, block *hclsyntax.Block) {
	kind, ok := blockNameKinds[block.Type]
	if !ok {
		return
	}

	name := blockName(block)
	startLine := block.DefRange().Start.Line
	end := block.Range().End.Line

	rec.Definitions = append(rec.Definitions, extractor.Definition{
		Name:      name,
		Kind:      kind,
		StartLine: startLine,
		EndLine:   &end,
	})

	if block.Type == "module" {
		if attr, ok := block.Body.Attributes["source"]; ok {
			if lit := literalStringValue(attr.Expr); lit != "" {
				rec.Imports = append(rec.Imports, extractor.Import{
					Specifier: lit,
					Kind:      extractor.ImportNamed,
					Line:      startLine,
				})
			}
		}
	}

	// Nested blocks (e.g. a "lifecycle" block inside a resource) don't
	// produce separate nodes; only the containing resource/data/etc.
	// block does.
}

// blockName encodes block type and labels into the node name, e.g.
// "resource.aws_instance.web" or "variable.region".
func blockName(block *hclsyntax.Block) string {
	name := block.Type
	for _, label := range block.Labels {
		name += "." + label
	}
	return name
}

// literalStringValue evaluates a module "source" expression with an empty
// context, returning its value only when it is a static string literal.
// Anything that depends on a variable or local is left unresolved.
func literalStringValue(expr hcl.Expression) string {
	val, diags := expr.Value(nil)
	if diags.HasErrors() || val.IsNull() || val.Type() != cty.String {
		return ""
	}
	return val.AsString()
}
