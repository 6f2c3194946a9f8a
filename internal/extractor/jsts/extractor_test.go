package jsts

import (
	"testing"

	"codegraph/internal/extractor"
	"codegraph/internal/grammar"
)

func extract(t *testing.T, lang grammar.Language, source string) *extractor.FileRecord {
	t.Helper()
	e, err := New(lang)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)

	rec, err := e.Extract("test.ts", []byte(source))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return rec
}

func findDefinition(rec *extractor.FileRecord, name string) *extractor.Definition {
	for i := range rec.Definitions {
		if rec.Definitions[i].Name == name {
			return &rec.Definitions[i]
		}
	}
	return nil
}

func findCall(rec *extractor.FileRecord, name string) *extractor.Call {
	for i := range rec.Calls {
		if rec.Calls[i].Name == name {
			return &rec.Calls[i]
		}
	}
	return nil
}

func TestExtractDefinitions(t *testing.T) {
	rec := extract(t, grammar.LangTS, `export function top() {
  return 1;
}

class Widget {
  render() {}
}

const arrow = () => 1;
const named = function () {};

interface Printable {
  print(): void;
}

type Alias = string;
`)

	cases := []struct {
		name, kind string
		line       int
	}{
		{"top", "function", 1},
		{"Widget", "class", 5},
		{"Widget.render", "method", 6},
		{"arrow", "arrow function", 9},
		{"named", "function", 10},
		{"Printable", "interface", 12},
		{"Printable.print", "method", 13},
		{"Alias", "type", 16},
	}
	for _, c := range cases {
		d := findDefinition(rec, c.name)
		if d == nil {
			t.Errorf("missing definition %q, have %+v", c.name, rec.Definitions)
			continue
		}
		if d.Kind != c.kind || d.StartLine != c.line {
			t.Errorf("%q: got (%s, line %d), want (%s, line %d)", c.name, d.Kind, d.StartLine, c.kind, c.line)
		}
	}

	top := findDefinition(rec, "top")
	if top.EndLine == nil || *top.EndLine != 3 {
		t.Errorf("expected top's end line to be 3, got %v", top.EndLine)
	}
}

func TestExtractImports(t *testing.T) {
	rec := extract(t, grammar.LangTS, `import { foo as f, bar } from './b.js';
import type { Opts } from './types';
import * as util from './util';
import dflt from './d';
`)

	type want struct {
		specifier string
		name      string
		kind      extractor.ImportKind
		typeOnly  bool
	}
	wants := []want{
		{"./b.js", "f", extractor.ImportNamed, false},
		{"./b.js", "bar", extractor.ImportNamed, false},
		{"./types", "Opts", extractor.ImportNamed, true},
		{"./util", "util", extractor.ImportNamespace, false},
		{"./d", "dflt", extractor.ImportDefault, false},
	}
	if len(rec.Imports) != len(wants) {
		t.Fatalf("got %d imports, want %d: %+v", len(rec.Imports), len(wants), rec.Imports)
	}
	for i, w := range wants {
		g := rec.Imports[i]
		if g.Specifier != w.specifier || g.Name != w.name || g.Kind != w.kind || g.TypeOnly != w.typeOnly {
			t.Errorf("import %d: got %+v, want %+v", i, g, w)
		}
	}
}

func TestExtractReexports(t *testing.T) {
	rec := extract(t, grammar.LangTS, `export { thing } from './impl';
export * from './wild';
export { local };
`)

	if len(rec.Imports) != 2 {
		t.Fatalf("got %d import records, want 2: %+v", len(rec.Imports), rec.Imports)
	}
	if rec.Imports[0].Kind != extractor.ImportReexport || rec.Imports[0].Name != "thing" {
		t.Errorf("expected named re-export of thing, got %+v", rec.Imports[0])
	}
	if rec.Imports[1].Kind != extractor.ImportReexportWildcard || rec.Imports[1].Specifier != "./wild" {
		t.Errorf("expected wildcard re-export of ./wild, got %+v", rec.Imports[1])
	}
	if len(rec.Exports) != 1 || rec.Exports[0].Name != "local" {
		t.Errorf("expected one local export record for 'local', got %+v", rec.Exports)
	}
}

func TestExtractCallShapes(t *testing.T) {
	rec := extract(t, grammar.LangTS, `foo();
obj.method();
fn.call(ctx, 1);
obj.inner.apply(null);
handlers["run"](x);
handlers[key](x);
`)

	foo := findCall(rec, "foo")
	if foo == nil || foo.Kind != extractor.CallDirect || foo.Dynamic {
		t.Errorf("foo: got %+v, want non-dynamic direct call", foo)
	}
	method := findCall(rec, "method")
	if method == nil || method.Kind != extractor.CallMember || method.Dynamic {
		t.Errorf("method: got %+v, want non-dynamic member call", method)
	}
	fn := findCall(rec, "fn")
	if fn == nil || fn.Kind != extractor.CallDynamicFn || !fn.Dynamic {
		t.Errorf("fn: got %+v, want dynamic .call dispatch", fn)
	}
	inner := findCall(rec, "inner")
	if inner == nil || !inner.Dynamic {
		t.Errorf("inner: got %+v, want the nested property as the dynamic callee", inner)
	}
	run := findCall(rec, "run")
	if run == nil || run.Kind != extractor.CallComputed || !run.Dynamic {
		t.Errorf("run: got %+v, want dynamic computed-literal call", run)
	}
	if findCall(rec, "key") != nil {
		t.Errorf("non-literal computed calls must not be recorded, got %+v", rec.Calls)
	}
}

func TestExtractHeritage(t *testing.T) {
	rec := extract(t, grammar.LangTS, `class Child extends Parent implements Printable, Serializable {
  render() {}
}
`)

	wants := []extractor.Heritage{
		{ClassName: "Child", TargetName: "Parent", Kind: extractor.HeritageExtends, Line: 1},
		{ClassName: "Child", TargetName: "Printable", Kind: extractor.HeritageImplements, Line: 1},
		{ClassName: "Child", TargetName: "Serializable", Kind: extractor.HeritageImplements, Line: 1},
	}
	if len(rec.Classes) != len(wants) {
		t.Fatalf("got %d heritage records, want %d: %+v", len(rec.Classes), len(wants), rec.Classes)
	}
	for i, w := range wants {
		if rec.Classes[i] != w {
			t.Errorf("heritage %d: got %+v, want %+v", i, rec.Classes[i], w)
		}
	}
}

func TestExtractHeritageJSGrammar(t *testing.T) {
	rec := extract(t, grammar.LangJS, `class Child extends Parent {
  render() {}
}
`)

	if len(rec.Classes) != 1 {
		t.Fatalf("got %d heritage records, want 1: %+v", len(rec.Classes), rec.Classes)
	}
	h := rec.Classes[0]
	if h.ClassName != "Child" || h.TargetName != "Parent" || h.Kind != extractor.HeritageExtends {
		t.Errorf("got %+v, want Child extends Parent", h)
	}
}

func TestMethodBodyCallsAreStillRecorded(t *testing.T) {
	rec := extract(t, grammar.LangTS, `class Widget {
  render() {
    this.draw();
  }
}
`)
	draw := findCall(rec, "draw")
	if draw == nil || draw.Line != 3 {
		t.Fatalf("expected the call inside render's body to be recorded at line 3, got %+v", rec.Calls)
	}
}
