package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/GadCoder/BikeRoutes/internal/domain"
)

// File stores each key as a file in a directory. Writes go to a temporary
// file in the same directory which is then renamed over the target, so
// readers never observe a partially written value.
type File struct {
	dir string
}

// NewFile returns a File store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("store.NewFile: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store.NewFile: %w", err)
	}
	return &File{dir: dir}, nil
}

// Get reads the file for key.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("store.File.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store.File.Get: %w", err)
	}
	return data, nil
}

// Put writes value to a temp file, syncs it, and renames it into place.
func (f *File) Put(_ context.Context, key string, value []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store.File.Put: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("store.File.Put: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store.File.Put: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store.File.Put: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("store.File.Put: rename: %w", err)
	}
	return nil
}

// Delete removes the file for key.
func (f *File) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store.File.Delete: %w", err)
	}
	return nil
}

// Close is a no-op; File holds no open handles between calls.
func (f *File) Close() error { return nil }

// path maps key to a file inside dir. Keys must be plain file names.
func (f *File) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("store.File: %w: invalid key %q", domain.ErrValidation, key)
	}
	return filepath.Join(f.dir, key), nil
}
