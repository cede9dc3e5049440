package storage

import "path/filepath"

// Local lists series files on the local filesystem.
type Local struct{}

// List returns the paths matching the glob pattern. An empty result is not
// an error; a series may simply own nothing yet.
func (Local) List(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}
