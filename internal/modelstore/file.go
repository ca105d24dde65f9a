package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBlobs stores each key as a file in one directory.
type FileBlobs struct {
	dir string
}

// NewFileBlobs creates a filesystem backend rooted at dir. The directory is
// created on first write.
func NewFileBlobs(dir string) *FileBlobs {
	return &FileBlobs{dir: dir}
}

var _ Blobs = (*FileBlobs)(nil)

// Put writes to a temp file in the same directory and renames it over the
// target.
func (f *FileBlobs) Put(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create models dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, filepath.Join(f.dir, key)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

func (f *FileBlobs) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, key)) // #nosec G304 -- key is built from a validated seller id
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}
