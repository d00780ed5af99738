// Package util provides utility functions for cross-platform path handling.
package util

import (
	"path/filepath"
	"strings"
)

// IsRootPath reports whether a configured path names the project root.
// It handles "", ".", "./", ".\", "/" and variants with trailing slashes.
func IsRootPath(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	normalized = strings.TrimRight(normalized, "/")
	return normalized == "" || normalized == "."
}

// IsWithin reports whether child is parent itself or lies below it.
// Both paths are made absolute first; errors resolving them yield false.
func IsWithin(parent, child string) bool {
	p, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	c, err := filepath.Abs(child)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(p, c)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, "../"))
}
