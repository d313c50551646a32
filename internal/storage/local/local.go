// Package local stores files in a directory on disk.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sakif/doc-insight/internal/storage"
)

// Store writes files under a single directory.
type Store struct {
	dir string
}

var _ storage.Store = (*Store)(nil)

// New creates dir if needed and returns a Store rooted there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("local: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes data to dir/name and returns the path. name must be a plain
// file name.
func (s *Store) Save(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("local: invalid file name %q", name)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("local: writing %s: %w", path, err)
	}
	return path, nil
}
