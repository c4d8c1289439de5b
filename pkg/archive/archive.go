package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store is a content-addressed archive of canonical text. Put writes the text
// under its digest exactly once; a pre-existing entry for the same digest is
// left untouched, since identical digests mean identical content.
type Store interface {
	Put(ctx context.Context, digest string, text string) error
}

// FSStore archives canonical text as <digest>.txt files in one directory.
type FSStore struct {
	dir string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates the archive directory if needed and returns a store
// writing into it.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Put writes text to <dir>/<digest>.txt unless that file already exists.
func (s *FSStore) Put(ctx context.Context, digest string, text string) error {
	if digest == "" {
		return fmt.Errorf("archive digest is empty")
	}
	path := filepath.Join(s.dir, digest+".txt")

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	return nil
}
