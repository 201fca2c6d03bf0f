package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
	BackendRedis  = "redis"
)

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (KV, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(cfg.Path)
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case BackendPebble:
		return NewPebbleStore(cfg.Path)
	case BackendRedis:
		return DialRedis(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// OpenWithFallback opens the configured backend and falls back to an
// in-memory store when it cannot be opened. The returned bool reports
// whether the durable backend is in use.
func OpenWithFallback(ctx context.Context, cfg config.StoreConfig) (KV, bool) {
	kv, err := Open(ctx, cfg)
	if err != nil {
		logging.StoreWarn("store backend %s unavailable, falling back to memory: %v", cfg.Backend, err)
		return NewMemoryStore(), false
	}
	return kv, true
}
