// Package filex holds small filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureParentDir creates the directory that will hold path, readable only
// by the owner. SQLite URIs (file:...) and in-memory names are left alone.
func EnsureParentDir(path string) (string, error) {
	if path == "" || strings.HasPrefix(path, "file:") || strings.HasPrefix(path, ":memory:") {
		return "", nil
	}

	dir := filepath.Dir(path)
	if dir == "." {
		return dir, nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
