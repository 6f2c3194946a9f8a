package grammar

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclparse"
)

// Capabilities records, once per process, which optional grammars actually
// initialized. TS/TSX/JS are mandatory; a failure there is a fatal
// configuration error. Python and HCL are optional; when absent, files
// needing them are skipped with a single per-run warning rather than
// aborting the build.
type Capabilities struct {
	python  bool
	hcl     bool
	warning string
}

// Probe initializes the optional grammars once and freezes the result.
// Capabilities is immutable after Probe returns and is safe to share by
// reference across goroutines.
func Probe() (*Capabilities, error) {
	c := &Capabilities{}

	if sitterLanguage(LangTS) == nil || sitterLanguage(LangTSX) == nil || sitterLanguage(LangJS) == nil {
		return nil, fmt.Errorf("grammar: mandatory JS/TS grammars failed to initialize")
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				c.python = false
			}
		}()
		c.python = sitterLanguage(LangPython) != nil
	}()

	func() {
		defer func() {
			if r := recover(); r != nil {
				c.hcl = false
			}
		}()
		c.hcl = hclparse.NewParser() != nil
	}()

	var missing []string
	if !c.python {
		missing = append(missing, "python")
	}
	if !c.hcl {
		missing = append(missing, "hcl")
	}
	if len(missing) > 0 {
		c.warning = fmt.Sprintf("grammar: optional grammars unavailable, skipping matching files: %v", missing)
	}

	return c, nil
}

// HasPython reports whether the Python grammar is available.
func (c *Capabilities) HasPython() bool { return c.python }

// HasHCL reports whether the HCL grammar is available.
func (c *Capabilities) HasHCL() bool { return c.hcl }

// Warning returns the single per-run warning for absent optional grammars,
// or the empty string when every optional grammar loaded.
func (c *Capabilities) Warning() string { return c.warning }

// Supports reports whether a dispatched language can actually be parsed
// given the probed capabilities.
func (c *Capabilities) Supports(lang Language) bool {
	switch lang {
	case LangTS, LangTSX, LangJS:
		return true
	case LangPython:
		return c.python
	case LangHCL:
		return c.hcl
	default:
		return false
	}
}
