package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is an embedded LSM-backed store. Merge is serialized per key
// in-process; Pebble itself provides durable single-key writes.
type PebbleStore struct {
	db    *pebble.DB
	dir   string
	locks keyLocks
}

// NewPebbleStore opens (or creates) a Pebble database in dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("pebble directory required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create dir %s: %w", dir, err)
	}

	cache := pebble.NewCache(8 << 20)
	defer cache.Unref()

	db, err := pebble.Open(dir, &pebble.Options{Cache: cache})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	logging.Store("pebble store opened at %s", dir)
	return &PebbleStore{db: db, dir: dir}, nil
}

func (p *PebbleStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapErr("get", key, err)
	}
	return p.read(key)
}

func (p *PebbleStore) read(key string) ([]byte, error) {
	val, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get", key, err)
	}
	out := cloneBytes(val)
	if err := closer.Close(); err != nil {
		logging.StoreDebug("pebble closer for %s: %v", key, err)
	}
	return out, nil
}

func (p *PebbleStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return wrapErr("set", key, err)
	}
	unlock := p.locks.lock(key)
	defer unlock()
	if err := p.db.Set([]byte(key), value, pebble.Sync); err != nil {
		return wrapErr("set", key, err)
	}
	return nil
}

func (p *PebbleStore) Merge(ctx context.Context, key string, fn MergeFunc) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapErr("merge", key, err)
	}
	unlock := p.locks.lock(key)
	defer unlock()

	cur, err := p.read(key)
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
	if err := p.db.Set([]byte(key), next, pebble.Sync); err != nil {
		return nil, wrapErr("merge", key, err)
	}
	return next, nil
}

func (p *PebbleStore) Close() error {
	return p.db.Close()
}
