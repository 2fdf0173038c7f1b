package redis

import (
	"context"
	"errors"
	"time"
)

// Backend implements store.Backend over a Cache.
type Backend struct {
	cache   *Cache
	timeout time.Duration
}

// NewBackend creates a Backend. A positive timeout bounds every call.
func NewBackend(cache *Cache, timeout time.Duration) *Backend {
	return &Backend{cache: cache, timeout: timeout}
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

// Get implements store.Backend.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	data, err := b.cache.GetBytes(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put implements store.Backend.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	return b.cache.SetBytes(ctx, key, value)
}

// Delete implements store.Backend.
func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	return b.cache.Delete(ctx, key)
}

// Close implements store.Backend.
func (b *Backend) Close() error {
	return b.cache.Close()
}
