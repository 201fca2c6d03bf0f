package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendFactory struct {
	name string
	open func(t *testing.T) KV
}

func backends(t *testing.T) []backendFactory {
	t.Helper()
	list := []backendFactory{
		{"memory", func(t *testing.T) KV { return NewMemoryStore() }},
		{"file", func(t *testing.T) KV {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "state"))
			require.NoError(t, err)
			return s
		}},
		{"sqlite", func(t *testing.T) KV {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
			require.NoError(t, err)
			return s
		}},
		{"pebble", func(t *testing.T) KV {
			s, err := NewPebbleStore(filepath.Join(t.TempDir(), "pebble"))
			require.NoError(t, err)
			return s
		}},
	}
	if addr := os.Getenv("YBUILT_TEST_REDIS_ADDR"); addr != "" {
		list = append(list, backendFactory{"redis", func(t *testing.T) KV {
			client := redis.NewClient(&redis.Options{Addr: addr})
			prefix := "ybuilt-test:" + t.Name() + ":"
			return NewRedisStore(client, prefix)
		}})
	}
	return list
}

// TestKVConformance runs the same contract against every backend.
func TestKVConformance(t *testing.T) {
	for _, b := range backends(t) {
		b := b
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("NotFound", func(t *testing.T) {
				kv := b.open(t)
				defer kv.Close()
				_, err := kv.Get(ctx, "missing")
				assert.True(t, errors.Is(err, ErrNotFound))
			})

			t.Run("SetGet", func(t *testing.T) {
				kv := b.open(t)
				defer kv.Close()
				require.NoError(t, kv.Set(ctx, "token.search/abc", []byte(`{"a":1}`)))
				got, err := kv.Get(ctx, "token.search/abc")
				require.NoError(t, err)
				assert.JSONEq(t, `{"a":1}`, string(got))

				require.NoError(t, kv.Set(ctx, "token.search/abc", []byte(`{"a":2}`)))
				got, err = kv.Get(ctx, "token.search/abc")
				require.NoError(t, err)
				assert.JSONEq(t, `{"a":2}`, string(got))
			})

			t.Run("MergeCreatesAndUpdates", func(t *testing.T) {
				kv := b.open(t)
				defer kv.Close()
				out, err := kv.Merge(ctx, "counter", func(cur []byte, exists bool) ([]byte, error) {
					assert.False(t, exists)
					return []byte("1"), nil
				})
				require.NoError(t, err)
				assert.Equal(t, "1", string(out))

				out, err = kv.Merge(ctx, "counter", func(cur []byte, exists bool) ([]byte, error) {
					assert.True(t, exists)
					n, _ := strconv.Atoi(string(cur))
					return []byte(strconv.Itoa(n + 1)), nil
				})
				require.NoError(t, err)
				assert.Equal(t, "2", string(out))
			})

			t.Run("MergeAbortDoesNotWrite", func(t *testing.T) {
				kv := b.open(t)
				defer kv.Close()
				abort := errors.New("abort")
				_, err := kv.Merge(ctx, "k", func([]byte, bool) ([]byte, error) { return nil, abort })
				assert.ErrorIs(t, err, abort)
				_, err = kv.Get(ctx, "k")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("ConcurrentMergesLoseNothing", func(t *testing.T) {
				kv := b.open(t)
				defer kv.Close()
				const workers, perWorker = 8, 25
				var wg sync.WaitGroup
				for w := 0; w < workers; w++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for i := 0; i < perWorker; i++ {
							_, err := MergeJSON(ctx, kv, "n", func(doc *map[string]int) error {
								if *doc == nil {
									*doc = map[string]int{}
								}
								(*doc)["n"]++
								return nil
							})
							assert.NoError(t, err)
						}
					}()
				}
				wg.Wait()

				var doc map[string]int
				require.NoError(t, GetJSON(ctx, kv, "n", &doc))
				assert.Equal(t, workers*perWorker, doc["n"])
			})
		})
	}
}

func TestFileStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "router.stats", []byte(`{}`)))

	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := s2.Get(ctx, "router.stats")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))

	// No temp files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "router.stats.json", entries[0].Name())
}

func TestFileStore_RepeatedWritesReplaceAtomically(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				assert.NoError(t, s.Set(ctx, "token.search/k", []byte(`{"w":`+strconv.Itoa(w)+`}`)))
				got, err := s.Get(ctx, "token.search/k")
				if assert.NoError(t, err) {
					assert.True(t, json.Valid(got), string(got))
				}
			}
		}(w)
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "token.search%2Fk.json", entries[0].Name())
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "sections.bandits", []byte(`{"x":1}`)))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get(ctx, "sections.bandits")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(got))
	assert.Equal(t, path, s2.Path())
}

func TestGetJSON_Corrupt(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	require.NoError(t, kv.Set(ctx, "router.stats", []byte("{not json")))

	var doc map[string]any
	err := GetJSON(ctx, kv, "router.stats", &doc)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestMergeJSON_CorruptStartsFresh(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	require.NoError(t, kv.Set(ctx, "k", []byte("garbage")))

	doc, err := MergeJSON(ctx, kv, "k", func(d *map[string]int) error {
		if *d == nil {
			*d = map[string]int{}
		}
		(*d)["x"] = 1
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, doc["x"])

	raw, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	var back map[string]int
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, map[string]int{"x": 1}, back)
}

func TestStorageError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := wrapErr("set", "k", inner)
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "set", se.Op)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), `"k"`)

	assert.Nil(t, wrapErr("get", "k", nil))
	assert.Equal(t, ErrNotFound, wrapErr("get", "k", ErrNotFound))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", buf))
	buf[0] = 'z'
	got, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 1, kv.Len())
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().Get(ctx, "k")
	var se *StorageError
	assert.True(t, errors.As(err, &se))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, backend := range []string{BackendMemory, BackendFile, BackendSQLite, BackendPebble} {
		path := filepath.Join(dir, backend)
		if backend == BackendSQLite {
			path = filepath.Join(dir, "state.db")
		}
		kv, err := Open(ctx, config.StoreConfig{Backend: backend, Path: path})
		require.NoError(t, err, backend)
		require.NoError(t, kv.Set(ctx, "k", []byte("v")), backend)
		require.NoError(t, kv.Close(), backend)
	}

	_, err := Open(ctx, config.StoreConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestOpenWithFallback(t *testing.T) {
	ctx := context.Background()
	kv, durable := OpenWithFallback(ctx, config.StoreConfig{Backend: BackendFile, Path: ""})
	assert.False(t, durable)
	_, isMem := kv.(*MemoryStore)
	assert.True(t, isMem)
}
