// Package filex holds small filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDirFor creates the directory that will hold the file at path,
// including parents. Paths in the working directory need nothing.
func EnsureDirFor(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
