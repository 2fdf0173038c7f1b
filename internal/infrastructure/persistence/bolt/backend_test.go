package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store/storetest"
)

func TestBackendContract(t *testing.T) {
	b, err := Open(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	storetest.RunBackendContract(t, b)
}

func TestValuesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "hub.db")

	b, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, "grades", []byte(`[{"id":1}]`)))
	require.NoError(t, b.Close())

	b, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	v, ok, err := b.Get(ctx, "grades")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"id":1}]`, string(v))
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}
