// Package jsts implements the symbol extractor for the JS/TS-family
// grammars (JS, JSX, TS, TSX).
package jsts

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"codegraph/internal/extractor"
	"codegraph/internal/grammar"
)

// dynamicDispatchMethods are the property names that make a member-call
// expression dynamic (fn.call(...), fn.apply(...), fn.bind(...)(...)).
var dynamicDispatchMethods = map[string]bool{
	"call":  true,
	"apply": true,
	"bind":  true,
}

// Extractor extracts JS/TS-family symbols using a parser bound to one of
// the language variants (JS, TSX, TS).
type Extractor struct {
	parser *grammar.Parser
}

// New constructs an Extractor for lang, which must be LangJS, LangTSX, or
// LangTS.
func New(lang grammar.Language) (*Extractor, error) {
	p, err := grammar.NewParser(lang)
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
		return nil, fmt.Errorf("jsts: parse %s: %w", path, err)
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

func line(n *sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func endLine(n *sitter.Node) *int {
	l := int(n.EndPosition().Row) + 1
	return &l
}

// walk visits n and its children, dispatching on node kind. enclosing is
// the current "Class" or "Interface" name for method/property-signature
// prefixing ("" at the top level).
func (w *walker) walk(n *sitter.Node, enclosing string) {
	switch n.Kind() {
	case "function_declaration", "generator_function_declaration":
		w.handleFunctionDeclaration(n)
	case "class_declaration":
		w.handleClass(n)
		return // children handled inside handleClass
	case "interface_declaration":
		w.handleInterface(n)
		return
	case "type_alias_declaration":
		w.handleTypeAlias(n)
	case "method_definition":
		w.handleMethod(n, enclosing)
	case "variable_declarator":
		w.handleVariableDeclarator(n)
	case "import_statement":
		w.handleImportStatement(n)
	case "export_statement":
		w.handleExportStatement(n)
	case "call_expression":
		w.handleCallExpression(n)
	}

	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		if child := n.NamedChild(i); child != nil {
			w.walk(child, enclosing)
		}
	}
}

func (w *walker) addDefinition(name, kind string, startLine int, end *int) {
	w.rec.Definitions = append(w.rec.Definitions, extractor.Definition{
		Name:      name,
		Kind:      kind,
		StartLine: startLine,
		EndLine:   end,
	})
}

func (w *walker) handleFunctionDeclaration(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	w.addDefinition(w.text(nameNode), "function", line(n), endLine(n))
}

func (w *walker) handleClass(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	className := w.text(nameNode)
	w.addDefinition(className, "class", line(n), endLine(n))

	// class_heritage is a plain child, not a field, in both grammars.
	if heritage := findChildKind(n, "class_heritage"); heritage != nil {
		w.handleHeritage(heritage, className)
	}

	body := n.ChildByFieldName("body")
	if body != nil {
		count := body.NamedChildCount()
		for i := uint(0); i < count; i++ {
			if child := body.NamedChild(i); child != nil {
				w.walk(child, className)
			}
		}
	}
}

// handleHeritage handles both grammar shapes: the TS grammar nests
// extends_clause/implements_clause under class_heritage, while the JS
// grammar's class_heritage is just `extends <expression>`.
func (w *walker) handleHeritage(heritage *sitter.Node, className string) {
	sawClause := false
	count := heritage.NamedChildCount()
	for i := uint(0); i < count; i++ {
		clause := heritage.NamedChild(i)
		if clause == nil {
			continue
		}
		switch clause.Kind() {
		case "extends_clause":
			sawClause = true
			sub := clause.NamedChildCount()
			for j := uint(0); j < sub; j++ {
				value := clause.NamedChild(j)
				if value == nil || value.Kind() == "type_arguments" {
					continue
				}
				w.rec.Classes = append(w.rec.Classes, extractor.Heritage{
					ClassName:  className,
					TargetName: w.text(value),
					Kind:       extractor.HeritageExtends,
					Line:       line(clause),
				})
			}
		case "implements_clause":
			sawClause = true
			sub := clause.NamedChildCount()
			for j := uint(0); j < sub; j++ {
				iface := clause.NamedChild(j)
				if iface == nil {
					continue
				}
				w.rec.Classes = append(w.rec.Classes, extractor.Heritage{
					ClassName:  className,
					TargetName: w.text(iface),
					Kind:       extractor.HeritageImplements,
					Line:       line(clause),
				})
			}
		}
	}

	if !sawClause {
		// JS grammar: the superclass expression is the only named child.
		for i := uint(0); i < count; i++ {
			expr := heritage.NamedChild(i)
			if expr == nil {
				continue
			}
			w.rec.Classes = append(w.rec.Classes, extractor.Heritage{
				ClassName:  className,
				TargetName: w.text(expr),
				Kind:       extractor.HeritageExtends,
				Line:       line(heritage),
			})
		}
	}
}

func (w *walker) handleInterface(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	ifaceName := w.text(nameNode)
	w.addDefinition(ifaceName, "interface", line(n), endLine(n))

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	count := body.NamedChildCount()
	for i := uint(0); i < count; i++ {
		member := body.NamedChild(i)
		if member == nil {
			continue
		}
		switch member.Kind() {
		case "method_signature", "property_signature":
			memberName := member.ChildByFieldName("name")
			if memberName == nil {
				continue
			}
			w.addDefinition(ifaceName+"."+w.text(memberName), "method", line(member), endLine(member))
		}
	}
}

func (w *walker) handleTypeAlias(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	w.addDefinition(w.text(nameNode), "type", line(n), endLine(n))
}

func (w *walker) handleMethod(n *sitter.Node, enclosing string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.text(nameNode)
	if enclosing != "" {
		name = enclosing + "." + name
	}
	w.addDefinition(name, "method", line(n), endLine(n))
}

// handleVariableDeclarator captures arrow/function expressions bound in a
// lexical variable declarator.
func (w *walker) handleVariableDeclarator(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	valueNode := n.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return
	}
	switch valueNode.Kind() {
	case "arrow_function":
		w.addDefinition(w.text(nameNode), "arrow function", line(n), endLine(valueNode))
	case "function_expression", "generator_function":
		w.addDefinition(w.text(nameNode), "function", line(n), endLine(valueNode))
	}
}

func (w *walker) handleImportStatement(n *sitter.Node) {
	sourceNode := n.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	spec := unquote(w.text(sourceNode))
	ln := line(n)
	typeOnly := hasTypeKeyword(n, w.src)

	clause := findChildKind(n, "import_clause")
	if clause == nil {
		// Side-effect-only import: `import './x'`.
		return
	}

	count := clause.NamedChildCount()
	for i := uint(0); i < count; i++ {
		part := clause.NamedChild(i)
		if part == nil {
			continue
		}
		switch part.Kind() {
		case "identifier":
			w.rec.Imports = append(w.rec.Imports, extractor.Import{
				Specifier: spec, Name: w.text(part), Kind: extractor.ImportDefault, TypeOnly: typeOnly, Line: ln,
			})
		case "namespace_import":
			name := ""
			if nm := findChildKind(part, "identifier"); nm != nil {
				name = w.text(nm)
			}
			w.rec.Imports = append(w.rec.Imports, extractor.Import{
				Specifier: spec, Name: name, Kind: extractor.ImportNamespace, TypeOnly: typeOnly, Line: ln,
			})
		case "named_imports":
			specCount := part.NamedChildCount()
			for j := uint(0); j < specCount; j++ {
				spNode := part.NamedChild(j)
				if spNode == nil || spNode.Kind() != "import_specifier" {
					continue
				}
				w.rec.Imports = append(w.rec.Imports, extractor.Import{
					Specifier: spec, Name: w.bindingName(spNode), Kind: extractor.ImportNamed, TypeOnly: typeOnly, Line: ln,
				})
			}
		}
	}
}

// bindingName returns the local binding name of an import/export
// specifier, preferring an "as" alias over the original name.
func (w *walker) bindingName(spec *sitter.Node) string {
	if alias := spec.ChildByFieldName("alias"); alias != nil {
		return w.text(alias)
	}
	if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
		return w.text(nameNode)
	}
	return w.text(spec)
}

func (w *walker) handleExportStatement(n *sitter.Node) {
	sourceNode := n.ChildByFieldName("source")
	ln := line(n)

	if sourceNode == nil {
		// Local export, no re-export; declarations are visited normally
		// by the walker's recursion (export function foo() {}, etc.), so
		// only record the Export entry here when it's a bare specifier
		// list (`export { a, b }`).
		if exportClause := findChildKind(n, "export_clause"); exportClause != nil {
			count := exportClause.NamedChildCount()
			for i := uint(0); i < count; i++ {
				spNode := exportClause.NamedChild(i)
				if spNode == nil || spNode.Kind() != "export_specifier" {
					continue
				}
				w.rec.Exports = append(w.rec.Exports, extractor.Export{Name: w.bindingName(spNode), Line: ln})
			}
		}
		return
	}

	spec := unquote(w.text(sourceNode))
	typeOnly := hasTypeKeyword(n, w.src)

	if isWildcardReexport(n) {
		w.rec.Imports = append(w.rec.Imports, extractor.Import{
			Specifier: spec, Kind: extractor.ImportReexportWildcard, TypeOnly: typeOnly, Line: ln,
		})
		return
	}

	exportClause := findChildKind(n, "export_clause")
	if exportClause == nil {
		return
	}
	count := exportClause.NamedChildCount()
	for i := uint(0); i < count; i++ {
		spNode := exportClause.NamedChild(i)
		if spNode == nil || spNode.Kind() != "export_specifier" {
			continue
		}
		w.rec.Imports = append(w.rec.Imports, extractor.Import{
			Specifier: spec, Name: w.bindingName(spNode), Kind: extractor.ImportReexport, TypeOnly: typeOnly, Line: ln,
		})
	}
}

func (w *walker) handleCallExpression(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	ln := line(n)

	switch fn.Kind() {
	case "identifier":
		w.rec.Calls = append(w.rec.Calls, extractor.Call{Name: w.text(fn), Line: ln, Kind: extractor.CallDirect})

	case "member_expression":
		object := fn.ChildByFieldName("object")
		property := fn.ChildByFieldName("property")
		if property == nil {
			return
		}
		propName := w.text(property)

		if dynamicDispatchMethods[propName] && object != nil {
			// fn.call/apply/bind(...): name is the inner callee. If the
			// object is itself a member expression, use its property;
			// otherwise use the object's own text.
			innerName := w.text(object)
			if object.Kind() == "member_expression" {
				if innerProp := object.ChildByFieldName("property"); innerProp != nil {
					innerName = w.text(innerProp)
				}
			}
			w.rec.Calls = append(w.rec.Calls, extractor.Call{
				Name: innerName, Line: ln, Kind: extractor.CallDynamicFn, Dynamic: true,
			})
			return
		}
		w.rec.Calls = append(w.rec.Calls, extractor.Call{Name: propName, Line: ln, Kind: extractor.CallMember})

	case "subscript_expression":
		object := fn.ChildByFieldName("object")
		index := fn.ChildByFieldName("index")
		if object == nil || index == nil {
			return
		}
		if index.Kind() == "string" {
			w.rec.Calls = append(w.rec.Calls, extractor.Call{
				Name: unquote(w.text(index)), Line: ln, Kind: extractor.CallComputed, Dynamic: true,
			})
		}
		// Non-literal computed member calls are not recorded.
	}
}

// Helpers

func findChildKind(n *sitter.Node, kind string) *sitter.Node {
	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		c := n.NamedChild(i)
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

// hasTypeKeyword reports whether an import/export statement carries the
// `type` keyword (`import type {...}` / `export type {...}`), by scanning
// its anonymous children for the literal token.
func hasTypeKeyword(n *sitter.Node, src []byte) bool {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && string(src[c.StartByte():c.EndByte()]) == "type" {
			return true
		}
	}
	return false
}

// isWildcardReexport reports whether an export_statement is `export * from
// '...'` (or `export * as ns from '...'`, treated the same way here since
// both are recorded as wildcard).
func isWildcardReexport(n *sitter.Node) bool {
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		c := n.Child(i)
		if c != nil && !c.IsNamed() && c.Kind() == "*" {
			return true
		}
		if c != nil && c.Kind() == "namespace_export" {
			return true
		}
	}
	return false
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}
