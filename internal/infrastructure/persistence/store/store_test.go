package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store/storetest"
	"github.com/athlete-hub/athlete-hub/pkg/idgen"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, backend store.Backend) *store.Store {
	t.Helper()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return store.New(backend, testLogger(), store.WithIDs(idgen.NewMillisWithClock(func() time.Time { return clock })))
}

type note struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title"`
	PendingSync bool   `json:"pendingSync"`
}

func TestMemoryBackendContract(t *testing.T) {
	storetest.RunBackendContract(t, store.NewMemoryBackend())
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, store.NewMemoryBackend())

	var got map[string]string
	found, err := s.Get(ctx, "settings", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)

	require.NoError(t, s.Set(ctx, "settings", map[string]string{"theme": "dark"}))

	found, err = s.Get(ctx, "settings", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "dark", got["theme"])
}

func TestGetCorruptValue(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	require.NoError(t, backend.Put(ctx, "grades", []byte("{not json")))

	var got []int
	_, err := newStore(t, backend).Get(ctx, "grades", &got)
	require.Error(t, err)
	assert.True(t, shared.IsPersistence(err))
	assert.True(t, errors.Is(err, shared.ErrSerialization))
}

func TestSetUnserializable(t *testing.T) {
	err := newStore(t, store.NewMemoryBackend()).Set(context.Background(), "k", make(chan int))
	require.Error(t, err)

	var pErr *shared.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "k", pErr.Key)
	assert.True(t, errors.Is(err, shared.ErrSerialization))
}

func TestAppendAndTag(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, store.NewMemoryBackend())

	first, err := s.AppendAndTag(ctx, store.KeyNotes, note{Title: "one"})
	require.NoError(t, err)
	second, err := s.AppendAndTag(ctx, store.KeyNotes, note{Title: "two"})
	require.NoError(t, err)

	assert.True(t, first.PendingSync())
	assert.NotEmpty(t, first.ID())
	assert.NotEqual(t, first.ID(), second.ID())

	var notes []note
	found, err := s.Get(ctx, store.KeyNotes, &notes)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, notes, 2)
	assert.Equal(t, "one", notes[0].Title)
	assert.True(t, notes[0].PendingSync)
	assert.Less(t, notes[0].ID, notes[1].ID)
}

func TestAppendAndTagKeepsExistingID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, store.NewMemoryBackend())

	rec, err := s.AppendAndTag(ctx, store.KeyNotes, store.Record{"id": "custom", "title": "x"})
	require.NoError(t, err)
	assert.Equal(t, "custom", rec.ID())
}

func TestAppendAndTagIDsStayAboveLoaded(t *testing.T) {
	ctx := context.Background()
	backend := store.NewMemoryBackend()
	require.NoError(t, backend.Put(ctx, store.KeyNotes, []byte(`[{"id":99999999999999,"pendingSync":false}]`)))

	rec, err := newStore(t, backend).AppendAndTag(ctx, store.KeyNotes, note{Title: "new"})
	require.NoError(t, err)
	assert.Equal(t, "100000000000000", rec.ID())
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, store.NewMemoryBackend())

	a, err := s.AppendAndTag(ctx, store.KeyNotes, note{Title: "a"})
	require.NoError(t, err)
	_, err = s.AppendAndTag(ctx, store.KeyNotes, note{Title: "b"})
	require.NoError(t, err)

	removed, err := s.Remove(ctx, store.KeyNotes, a.ID())
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove(ctx, store.KeyNotes, "nope")
	require.NoError(t, err)
	assert.False(t, removed)

	records, err := s.List(ctx, store.KeyNotes)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0]["title"])
}

func TestMarkSyncedThenClearSynced(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, store.NewMemoryBackend())

	a, err := s.AppendAndTag(ctx, store.KeyActivities, note{Title: "a"})
	require.NoError(t, err)
	_, err = s.AppendAndTag(ctx, store.KeyActivities, note{Title: "b"})
	require.NoError(t, err)

	changed, err := s.MarkSynced(ctx, store.KeyActivities, []string{a.ID()})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	dropped, err := s.ClearSynced(ctx, store.KeyActivities)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)

	records, err := s.List(ctx, store.KeyActivities)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b", records[0]["title"])
	assert.True(t, records[0].PendingSync())
}

func TestWriteFailureIsReportedNotPanicked(t *testing.T) {
	ctx := context.Background()
	backend := storetest.NewFlakyBackend()
	s := newStore(t, backend)

	backend.FailWrites(true)
	_, err := s.AppendAndTag(ctx, store.KeyNotes, note{Title: "lost"})
	require.Error(t, err)
	assert.True(t, shared.IsPersistence(err))
	assert.ErrorIs(t, err, storetest.ErrQuotaExceeded)

	backend.FailWrites(false)
	records, err := s.List(ctx, store.KeyNotes)
	require.NoError(t, err)
	assert.Empty(t, records)
}
