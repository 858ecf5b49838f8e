// Package filex inspects local files picked for upload.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// Info describes a regular file on disk.
type Info struct {
	Path string
	Name string
	Size int64
}

// Stat resolves path and rejects anything that is not a regular file.
func Stat(path string) (Info, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Info{}, fmt.Errorf("abs %s: %w", path, err)
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return Info{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return Info{}, fmt.Errorf("%s is not a regular file", path)
	}

	return Info{Path: abs, Name: fi.Name(), Size: fi.Size()}, nil
}
