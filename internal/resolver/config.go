package resolver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the two fields the import & alias resolver consults: an
// absolute baseUrl and an alias-pattern-to-target-directory map, each
// target directory carrying a trailing "*".
type Config struct {
	BaseURL string
	Paths   map[string][]string
}

type tsconfigFile struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// loadConfig loads at most one project config file from root, preferring
// tsconfig.json and falling back to jsconfig.json. Returns nil (not an
// error) when neither file exists or parsing fails; a malformed config
// is a skippable error, not fatal.
func loadConfig(root string) *Config {
	for _, name := range []string{"tsconfig.json", "jsconfig.json"} {
		path := filepath.Join(root, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		stripped := stripJSONC(raw)
		var tf tsconfigFile
		if err := json.Unmarshal(stripped, &tf); err != nil {
			continue
		}

		cfg := &Config{}
		if tf.CompilerOptions.BaseURL != "" {
			cfg.BaseURL = filepath.Join(root, tf.CompilerOptions.BaseURL)
		} else {
			cfg.BaseURL = root
		}
		if len(tf.CompilerOptions.Paths) > 0 {
			cfg.Paths = make(map[string][]string, len(tf.CompilerOptions.Paths))
			for pattern, targets := range tf.CompilerOptions.Paths {
				abs := make([]string, 0, len(targets))
				for _, t := range targets {
					abs = append(abs, filepath.Join(cfg.BaseURL, t))
				}
				cfg.Paths[pattern] = abs
			}
		}
		return cfg
	}
	return nil
}

// stripJSONC removes // line comments, /* */ block comments, and trailing
// commas before a closing } or ] so a tsconfig/jsconfig file (which is
// JSONC, not strict JSON) decodes with encoding/json. It is string-literal
// aware so comment markers inside quoted strings are left alone.
func stripJSONC(src []byte) []byte {
	var out strings.Builder
	out.Grow(len(src))

	inString := false
	escaped := false
	i := 0
	for i < len(src) {
		c := src[i]

		if inString {
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			i++
			continue
		}

		if c == '"' {
			inString = true
			out.WriteByte(c)
			i++
			continue
		}

		if c == '/' && i+1 < len(src) && src[i+1] == '/' {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		}
		if c == '/' && i+1 < len(src) && src[i+1] == '*' {
			i += 2
			for i+1 < len(src) && !(src[i] == '*' && src[i+1] == '/') {
				i++
			}
			i += 2
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(src) && isJSONWhitespace(src[j]) {
				j++
			}
			if j < len(src) && (src[j] == '}' || src[j] == ']') {
				i++
				continue
			}
		}

		out.WriteByte(c)
		i++
	}

	return []byte(out.String())
}

func isJSONWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
