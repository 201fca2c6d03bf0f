package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"

	"github.com/google/renameio/v2"
)

// FileStore keeps one JSON document per key under a directory.
// Writes go to a temp file that is renamed into place, so a reader never
// observes a half-written document.
type FileStore struct {
	dir   string
	locks keyLocks
}

// NewFileStore creates the directory if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store directory required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	logging.Store("file store opened at %s", dir)
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) pathFor(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapErr("get", key, err)
	}
	return f.read(key)
}

func (f *FileStore) read(key string) ([]byte, error) {
	data, err := os.ReadFile(f.pathFor(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get", key, err)
	}
	return data, nil
}

func (f *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return wrapErr("set", key, err)
	}
	unlock := f.locks.lock(key)
	defer unlock()
	return f.write(key, value)
}

func (f *FileStore) write(key string, value []byte) error {
	if err := renameio.WriteFile(f.pathFor(key), value, 0o644, renameio.WithTempDir(f.dir)); err != nil {
		return wrapErr("set", key, err)
	}
	return nil
}

func (f *FileStore) Merge(ctx context.Context, key string, fn MergeFunc) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapErr("merge", key, err)
	}
	unlock := f.locks.lock(key)
	defer unlock()

	cur, err := f.read(key)
	exists := true
	if errors.Is(err, ErrNotFound) {
		exists, err = false, nil
	}
	if err != nil {
		return nil, err
	}
	next, err := fn(cur, exists)
	if err != nil {
		return nil, err
	}
	if err := f.write(key, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (f *FileStore) Close() error {
	return nil
}
