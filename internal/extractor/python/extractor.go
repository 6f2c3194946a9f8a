// Package python implements the symbol extractor for Python source.
package python

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"codegraph/internal/extractor"
	"codegraph/internal/grammar"
)

// Extractor extracts Python symbols.
type Extractor struct {
	parser *grammar.Parser
}

// New constructs a Python Extractor.
func New() (*Extractor, error) {
	p, err := grammar.NewParser(grammar.LangPython)
	if err != nil {
		return nil, err
	}
	return &Extractor{parser: p}, nil
}

// Close releases the underlying tree-sitter parser.
func (e *Extractor) Close() { e.parser.Close() }

// Extract parses source and walks the resulting tree.
func (e *Extractor) Extract(path string, source []byte) (*extractor.FileRecord, error) {
	tree, err := e.parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("python: parse %s: %w", path, err)
	}
	defer tree.Close()

	w := &walker{src: source, rec: &extractor.FileRecord{Path: path}}
	w.walk(tree.RootNode(), "")
	return w.rec, nil
}

type walker struct {
	src []byte
	rec *extractor.FileRecord
}

func (w *walker) text(n *sitter.Node) string {
	return string(w.src[n.StartByte():n.EndByte()])
}

func line(n *sitter.Node) int     { return int(n.StartPosition().Row) + 1 }
func endLine(n *sitter.Node) *int { l := int(n.EndPosition().Row) + 1; return &l }

// walk visits n. enclosing is the current class name ("" at module level).
func (w *walker) walk(n *sitter.Node, enclosing string) {
	switch n.Kind() {
	case "decorated_definition":
		w.handleDecorated(n, enclosing)
		return
	case "function_definition":
		w.handleFunction(n, enclosing, nil)
		return // body walked inside handleFunction
	case "class_definition":
		w.handleClassWithDecorators(n, nil)
		return
	case "call":
		w.handleCall(n)
	case "import_statement":
		w.handleImport(n)
	case "import_from_statement":
		w.handleImportFrom(n)
	}

	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		if child := n.NamedChild(i); child != nil {
			w.walk(child, enclosing)
		}
	}
}

func (w *walker) handleDecorated(n *sitter.Node, enclosing string) {
	var decorators []string
	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "decorator":
			decorators = append(decorators, strings.TrimPrefix(w.text(c), "@"))
		case "function_definition":
			w.handleFunction(c, enclosing, decorators)
		case "class_definition":
			w.handleClassWithDecorators(c, decorators)
		}
	}
}

func (w *walker) handleFunction(n *sitter.Node, enclosing string, decorators []string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	kind := "function"
	if enclosing != "" {
		name = enclosing + "." + name
		kind = "method"
	}
	w.rec.Definitions = append(w.rec.Definitions, extractor.Definition{
		Name: name, Kind: kind, StartLine: line(n), EndLine: endLine(n), Decorators: decorators,
	})

	if body := n.ChildByFieldName("body"); body != nil {
		bc := body.NamedChildCount()
		for i := uint(0); i < bc; i++ {
			if child := body.NamedChild(i); child != nil {
				w.walk(child, enclosing)
			}
		}
	}
}

func (w *walker) handleClassWithDecorators(n *sitter.Node, decorators []string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	className := w.text(nameNode)
	w.rec.Definitions = append(w.rec.Definitions, extractor.Definition{
		Name: className, Kind: "class", StartLine: line(n), EndLine: endLine(n), Decorators: decorators,
	})

	if superclasses := n.ChildByFieldName("superclasses"); superclasses != nil {
		sc := superclasses.NamedChildCount()
		for i := uint(0); i < sc; i++ {
			arg := superclasses.NamedChild(i)
			if arg == nil {
				continue
			}
			if arg.Kind() != "identifier" && arg.Kind() != "attribute" {
				continue
			}
			w.rec.Classes = append(w.rec.Classes, extractor.Heritage{
				ClassName: className, TargetName: w.text(arg), Kind: extractor.HeritageExtends, Line: line(n),
			})
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	count := body.NamedChildCount()
	for i := uint(0); i < count; i++ {
		if child := body.NamedChild(i); child != nil {
			w.walk(child, className)
		}
	}
}

// handleCall uses the rightmost attribute name for `a.b.c()` forms.
func (w *walker) handleCall(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	ln := line(n)
	switch fn.Kind() {
	case "identifier":
		w.rec.Calls = append(w.rec.Calls, extractor.Call{Name: w.text(fn), Line: ln, Kind: extractor.CallDirect})
	case "attribute":
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			w.rec.Calls = append(w.rec.Calls, extractor.Call{Name: w.text(attr), Line: ln, Kind: extractor.CallMember})
		}
	}
}

func (w *walker) handleImport(n *sitter.Node) {
	ln := line(n)
	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "dotted_name":
			w.rec.Imports = append(w.rec.Imports, extractor.Import{Specifier: w.text(c), Line: ln, Kind: extractor.ImportNamed})
		case "aliased_import":
			moduleNode := c.ChildByFieldName("name")
			aliasNode := c.ChildByFieldName("alias")
			if moduleNode == nil {
				continue
			}
			name := w.text(moduleNode)
			if aliasNode != nil {
				name = w.text(aliasNode)
			}
			w.rec.Imports = append(w.rec.Imports, extractor.Import{
				Specifier: w.text(moduleNode), Name: name, Line: ln, Kind: extractor.ImportNamespace,
			})
		}
	}
}

func (w *walker) handleImportFrom(n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := w.text(moduleNode)
	ln := line(n)

	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		c := n.NamedChild(i)
		if c == nil {
			continue
		}
		if c.StartByte() == moduleNode.StartByte() && c.EndByte() == moduleNode.EndByte() {
			continue // this is module_name itself
		}
		switch c.Kind() {
		case "wildcard_import":
			w.rec.Imports = append(w.rec.Imports, extractor.Import{
				Specifier: module, Kind: extractor.ImportNamed, Line: ln,
			})
		case "dotted_name", "identifier":
			w.rec.Imports = append(w.rec.Imports, extractor.Import{
				Specifier: module, Name: w.text(c), Kind: extractor.ImportNamed, Line: ln,
			})
		case "aliased_import":
			nameNode := c.ChildByFieldName("name")
			aliasNode := c.ChildByFieldName("alias")
			if nameNode == nil {
				continue
			}
			name := w.text(nameNode)
			if aliasNode != nil {
				name = w.text(aliasNode)
			}
			w.rec.Imports = append(w.rec.Imports, extractor.Import{
				Specifier: module, Name: name, Kind: extractor.ImportNamed, Line: ln,
			})
		}
	}
}
