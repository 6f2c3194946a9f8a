// Package grammar maps source files to parser bindings: a fixed
// extension-to-language mapping plus immutable capability discovery for
// the optional Python and HCL grammars.
package grammar

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tsjavascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tspython "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tstypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language identifies one of the grammars this package can dispatch to.
type Language string

const (
	LangTSX    Language = "tsx"
	LangTS     Language = "ts"
	LangJS     Language = "js"
	LangPython Language = "python"
	LangHCL    Language = "hcl"
)

// DispatchExtension maps a file extension (including the leading dot, e.g.
// ".tsx") to the grammar that handles it, using a fixed extension table.
func DispatchExtension(path string) (Language, bool) {
	base := filepath.Base(path)
	if strings.HasSuffix(base, ".d.ts") {
		return LangTS, true
	}
	switch filepath.Ext(base) {
	case ".tsx":
		return LangTSX, true
	case ".ts":
		return LangTS, true
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJS, true
	case ".py":
		return LangPython, true
	case ".tf", ".hcl":
		return LangHCL, true
	default:
		return "", false
	}
}

// sitterLanguage returns the underlying tree-sitter grammar for a language,
// or nil if unsupported (HCL is parsed with hashicorp/hcl/v2 instead of
// tree-sitter; see internal/extractor/hcl).
func sitterLanguage(lang Language) *sitter.Language {
	switch lang {
	case LangTSX:
		return sitter.NewLanguage(tstypescript.LanguageTSX())
	case LangTS:
		return sitter.NewLanguage(tstypescript.LanguageTypescript())
	case LangJS:
		return sitter.NewLanguage(tsjavascript.Language())
	case LangPython:
		return sitter.NewLanguage(tspython.Language())
	default:
		return nil
	}
}
