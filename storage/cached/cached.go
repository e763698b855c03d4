// Package cached wraps any storage.Backend with a bounded LRU read cache.
package cached

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jschaf/bibmgr/storage"
)

// Backend wraps an inner storage.Backend, caching Read results in a bounded
// LRU. Any write invalidates the whole cache, trading cache precision for
// simplicity.
type Backend struct {
	inner storage.Backend
	cache *lru.Cache[string, []byte]

	mu         sync.Mutex
	hits, miss int
}

var _ storage.Backend = (*Backend)(nil)

// New wraps inner with an LRU read cache of the given size.
func New(inner storage.Backend, size int) (*Backend, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Backend{inner: inner, cache: c}, nil
}

func (b *Backend) Initialize(ctx context.Context) error { return b.inner.Initialize(ctx) }

func (b *Backend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok := b.cache.Get(key); ok {
		b.mu.Lock()
		b.hits++
		b.mu.Unlock()
		return append([]byte(nil), v...), true, nil
	}
	b.mu.Lock()
	b.miss++
	b.mu.Unlock()
	data, ok, err := b.inner.Read(ctx, key)
	if err == nil && ok {
		b.cache.Add(key, append([]byte(nil), data...))
	}
	return data, ok, err
}

func (b *Backend) Write(ctx context.Context, key string, data []byte) error {
	if err := b.inner.Write(ctx, key, data); err != nil {
		return err
	}
	b.cache.Purge()
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) (bool, error) {
	ok, err := b.inner.Delete(ctx, key)
	if err == nil {
		b.cache.Purge()
	}
	return ok, err
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) { return b.inner.Exists(ctx, key) }
func (b *Backend) Keys(ctx context.Context) ([]string, error)          { return b.inner.Keys(ctx) }

func (b *Backend) Clear(ctx context.Context) error {
	if err := b.inner.Clear(ctx); err != nil {
		return err
	}
	b.cache.Purge()
	return nil
}

func (b *Backend) Close() error { return b.inner.Close() }

func (b *Backend) SupportsTransactions() bool { return b.inner.SupportsTransactions() }

func (b *Backend) BeginTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := b.inner.BeginTransaction(ctx, fn)
	b.cache.Purge()
	return err
}

// Stats reports the cache's hit/miss counts.
type Stats struct{ Hits, Misses int }

// CacheStats returns a snapshot of hit/miss counters.
func (b *Backend) CacheStats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Hits: b.hits, Misses: b.miss}
}
