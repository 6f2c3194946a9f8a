package grammar

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parser wraps a single tree-sitter parser instance bound to one language.
// It is not safe for concurrent use; callers that parallelize extraction
// must acquire one Parser per worker.
type Parser struct {
	lang   Language
	parser *sitter.Parser
}

// NewParser constructs a Parser for a tree-sitter-backed language (JS, TSX,
// TS, Python). HCL is not constructible here; see internal/extractor/hcl,
// which parses with hashicorp/hcl/v2 instead.
func NewParser(lang Language) (*Parser, error) {
	sl := sitterLanguage(lang)
	if sl == nil {
		return nil, fmt.Errorf("grammar: no tree-sitter binding for language %q", lang)
	}
	p := sitter.NewParser()
	if err := p.SetLanguage(sl); err != nil {
		return nil, fmt.Errorf("grammar: set language %q: %w", lang, err)
	}
	return &Parser{lang: lang, parser: p}, nil
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}

// Parse parses source and returns the resulting tree. The caller owns the
// returned tree and must Close it.
func (p *Parser) Parse(source []byte) (*sitter.Tree, error) {
	tree := p.parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("grammar: parse produced no tree")
	}
	if tree.RootNode().HasError() {
		// Still usable: partial/error-recovered trees are common for
		// in-progress edits. Extraction best-efforts over what parsed.
		return tree, nil
	}
	return tree, nil
}
