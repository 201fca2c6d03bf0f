// Package store implements key/value persistence for the decision core.
//
// Every component owns one or more keys and reads/writes a single JSON
// document per key. Backends (memory, file, SQLite, Pebble, Redis) implement
// KV; Merge must be atomic per key so concurrent read-modify-write cycles from
// one process never lose an update.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("store: key not found")

// ErrCorrupt marks a persisted value that could not be decoded.
var ErrCorrupt = errors.New("store: corrupt value")

// MergeFunc receives the current value (nil, false when absent) and returns
// the value to write. Returning an error aborts the merge without writing.
type MergeFunc func(current []byte, exists bool) ([]byte, error)

// KV is the persistence contract shared by all backends.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Merge(ctx context.Context, key string, fn MergeFunc) ([]byte, error)
	Close() error
}

// StorageError wraps a backend failure with the operation and key involved.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrapErr(op, key string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Key: key, Err: err}
}

// GetJSON decodes the value at key into dst.
// Returns ErrNotFound for a missing key and an error wrapping ErrCorrupt when
// the stored bytes are not valid JSON for dst.
func GetJSON(ctx context.Context, kv KV, key string, dst any) error {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

// SetJSON encodes v and writes it at key.
func SetJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}

// MergeJSON atomically decodes the document at key, applies fn and writes it
// back. A missing or corrupt document starts from the zero value of T; a
// corrupt one is reported on the store log category and overwritten.
func MergeJSON[T any](ctx context.Context, kv KV, key string, fn func(doc *T) error) (T, error) {
	var out T
	_, err := kv.Merge(ctx, key, func(current []byte, exists bool) ([]byte, error) {
		var doc T
		if exists {
			if err := json.Unmarshal(current, &doc); err != nil {
				logging.StoreWarn("corrupt document at %s, reinitializing: %v", key, err)
				var zero T
				doc = zero
			}
		}
		if err := fn(&doc); err != nil {
			return nil, err
		}
		next, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", key, err)
		}
		out = doc
		return next, nil
	})
	return out, err
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
