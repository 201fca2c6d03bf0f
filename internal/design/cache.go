package design

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/store"

	"golang.org/x/sync/singleflight"
)

// SchemaVersion is folded into every cache key. Bump it whenever scoring or
// token derivation changes so stale entries are never served.
const SchemaVersion = 3

// CacheEntry is one memoized search result. Entries are written once.
type CacheEntry struct {
	SchemaVersion int         `json:"schema_version"`
	CacheKey      string      `json:"cache_key"`
	Args          Args        `json:"args"`
	Best          Candidate   `json:"best"`
	Tried         int         `json:"tried"`
	Top5          []Candidate `json:"top5"`
}

// Searcher memoizes searches in a KV store.
type Searcher struct {
	kv    store.KV
	cfg   config.DesignConfig
	group singleflight.Group
}

// NewSearcher creates a cached searcher.
func NewSearcher(kv store.KV, cfg config.DesignConfig) *Searcher {
	if cfg.CacheNamespace == "" {
		cfg.CacheNamespace = "token.search"
	}
	if cfg.PriorsKey == "" {
		cfg.PriorsKey = "taste.priors"
	}
	return &Searcher{kv: kv, cfg: cfg}
}

// CacheKey returns the store key for args: namespace/sha256 of the canonical
// sorted-key JSON of the normalized args plus SchemaVersion.
func CacheKey(namespace string, args Args) string {
	args = args.Normalize()
	canonical := map[string]any{
		"primary":        args.Primary,
		"dark":           args.Dark,
		"tone":           args.Tone,
		"goal":           args.Goal,
		"industry":       args.Industry,
		"schema_version": SchemaVersion,
	}
	// encoding/json writes map keys in sorted order
	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return namespace + "/" + hex.EncodeToString(sum[:])
}

// WideTokenSearch runs an uncached search with the searcher's configuration.
func (s *Searcher) WideTokenSearch(args Args, priors TastePriors) SearchResult {
	return Search(args, priors, s.cfg)
}

// SearchBestTokensCached returns the memoized result for args, computing and
// storing it on a miss. Concurrent misses for the same key run one search.
// The bool reports whether the entry came from the store.
func (s *Searcher) SearchBestTokensCached(ctx context.Context, args Args) (CacheEntry, bool) {
	key := CacheKey(s.cfg.CacheNamespace, args)
	if entry, ok := s.lookup(ctx, key); ok {
		return entry, true
	}

	v, _, shared := s.group.Do(key, func() (any, error) {
		if entry, ok := s.lookup(ctx, key); ok {
			return entry, nil
		}
		entry := s.compute(ctx, key, args)
		if err := store.SetJSON(ctx, s.kv, key, entry); err != nil {
			logging.DesignWarn("cache write %s failed: %v", key, err)
		}
		return entry, nil
	})
	if shared {
		logging.DesignDebug("joined in-flight search for %s", key)
	}
	return v.(CacheEntry), false
}

func (s *Searcher) compute(ctx context.Context, key string, args Args) CacheEntry {
	res := Search(args, s.LoadPriors(ctx), s.cfg)
	top5 := []Candidate{}
	if len(res.Top) > 1 {
		top5 = append(top5, res.Top[1:]...)
	}
	if len(top5) > 5 {
		top5 = top5[:5]
	}
	return CacheEntry{
		SchemaVersion: SchemaVersion,
		CacheKey:      key,
		Args:          args.Normalize(),
		Best:          res.Best,
		Tried:         res.Tried,
		Top5:          top5,
	}
}

func (s *Searcher) lookup(ctx context.Context, key string) (CacheEntry, bool) {
	var entry CacheEntry
	err := store.GetJSON(ctx, s.kv, key, &entry)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return CacheEntry{}, false
	default:
		logging.DesignWarn("cache read %s failed, recomputing: %v", key, err)
		return CacheEntry{}, false
	}
	if entry.SchemaVersion != SchemaVersion || entry.CacheKey != key {
		logging.DesignDebug("ignoring %s: schema %d, want %d", key, entry.SchemaVersion, SchemaVersion)
		return CacheEntry{}, false
	}
	if entry.Top5 == nil {
		entry.Top5 = []Candidate{}
	}
	return entry, true
}

// LoadPriors reads the taste priors. Missing or unreadable priors are empty.
func (s *Searcher) LoadPriors(ctx context.Context) TastePriors {
	var p TastePriors
	if err := store.GetJSON(ctx, s.kv, s.cfg.PriorsKey, &p); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.DesignWarn("taste priors unavailable: %v", err)
		}
		return TastePriors{}
	}
	return p
}
