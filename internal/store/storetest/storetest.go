// Package storetest provides store.KV doubles for exercising the
// storage-failure paths of the decision components.
package storetest

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/store"
)

// ErrInjected is the failure every broken operation returns.
var ErrInjected = errors.New("injected storage failure")

// Faulty wraps a KV and fails selected operations on demand.
type Faulty struct {
	Inner store.KV

	failGet   atomic.Bool
	failWrite atomic.Bool
	calls     atomic.Int64
}

// NewFaulty wraps inner (a fresh MemoryStore when nil).
func NewFaulty(inner store.KV) *Faulty {
	if inner == nil {
		inner = store.NewMemoryStore()
	}
	return &Faulty{Inner: inner}
}

// Broken returns a store on which every operation fails.
func Broken() *Faulty {
	f := NewFaulty(nil)
	f.FailReads(true)
	f.FailWrites(true)
	return f
}

// FailReads toggles Get failures.
func (f *Faulty) FailReads(on bool) { f.failGet.Store(on) }

// FailWrites toggles Set and Merge failures.
func (f *Faulty) FailWrites(on bool) { f.failWrite.Store(on) }

// Calls reports how many operations reached the wrapper.
func (f *Faulty) Calls() int64 { return f.calls.Load() }

func (f *Faulty) Get(ctx context.Context, key string) ([]byte, error) {
	f.calls.Add(1)
	if f.failGet.Load() {
		return nil, &store.StorageError{Op: "get", Key: key, Err: ErrInjected}
	}
	return f.Inner.Get(ctx, key)
}

func (f *Faulty) Set(ctx context.Context, key string, value []byte) error {
	f.calls.Add(1)
	if f.failWrite.Load() {
		return &store.StorageError{Op: "set", Key: key, Err: ErrInjected}
	}
	return f.Inner.Set(ctx, key, value)
}

func (f *Faulty) Merge(ctx context.Context, key string, fn store.MergeFunc) ([]byte, error) {
	f.calls.Add(1)
	if f.failWrite.Load() {
		return nil, &store.StorageError{Op: "merge", Key: key, Err: ErrInjected}
	}
	return f.Inner.Merge(ctx, key, fn)
}

func (f *Faulty) Close() error {
	return f.Inner.Close()
}
