// Package storetest provides backend doubles and a shared contract test for
// Durable Store backends.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
)

// ErrQuotaExceeded is the write error FlakyBackend reports.
var ErrQuotaExceeded = errors.New("storetest: quota exceeded")

// FlakyBackend wraps a MemoryBackend and can be told to fail writes.
type FlakyBackend struct {
	*store.MemoryBackend

	mu         sync.Mutex
	failWrites bool
	failKeys   map[string]bool
	puts       int
}

// NewFlakyBackend creates a working FlakyBackend.
func NewFlakyBackend() *FlakyBackend {
	return &FlakyBackend{
		MemoryBackend: store.NewMemoryBackend(),
		failKeys:      make(map[string]bool),
	}
}

// FailWrites toggles failure of every Put.
func (f *FlakyBackend) FailWrites(fail bool) {
	f.mu.Lock()
	f.failWrites = fail
	f.mu.Unlock()
}

// FailKey toggles failure of Put for one key.
func (f *FlakyBackend) FailKey(key string, fail bool) {
	f.mu.Lock()
	f.failKeys[key] = fail
	f.mu.Unlock()
}

// Puts returns the number of successful writes.
func (f *FlakyBackend) Puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

// Put implements store.Backend.
func (f *FlakyBackend) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failWrites || f.failKeys[key]
	f.mu.Unlock()
	if fail {
		return ErrQuotaExceeded
	}

	if err := f.MemoryBackend.Put(ctx, key, value); err != nil {
		return err
	}
	f.mu.Lock()
	f.puts++
	f.mu.Unlock()
	return nil
}

// RunBackendContract exercises the behavior every backend must share.
func RunBackendContract(t *testing.T, backend store.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		v, ok, err := backend.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, backend.Put(ctx, "k", []byte(`{"a":1}`)))
		v, ok, err := backend.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"a":1}`, string(v))
	})

	t.Run("put replaces", func(t *testing.T) {
		require.NoError(t, backend.Put(ctx, "k", []byte(`[1,2]`)))
		v, ok, err := backend.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `[1,2]`, string(v))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, backend.Delete(ctx, "k"))
		_, ok, err := backend.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, backend.Delete(ctx, "never-set"))
	})
}
