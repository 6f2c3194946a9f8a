package util

import (
	"path/filepath"
)

func PathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "file://" + path
	}
	return "file://" + convertToSlash(abs)
}

func convertToSlash(path string) string {
	// Windows support if needed, but for now standard filepath
	return filepath.ToSlash(path)
}
