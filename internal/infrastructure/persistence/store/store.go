// Package store implements the Durable Store: a JSON key/value facade over a
// pluggable synchronous backend. Every call performs at most one backend
// write and failures never panic; they are logged and returned as
// *shared.PersistenceError.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/pkg/idgen"
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS
// ══════════════════════════════════════════════════════════════════════════════

// Keys of the persisted layout. Each key has exactly one writer.
const (
	KeyTasks    = "academic_tasks"
	KeyGrades   = "grades"
	KeySessions = "trainingSessions"
	KeyEvents   = "calendarEvents"
	KeySettings = "academic_settings"
	KeyState    = "academic_state"

	KeyActivities = "activities"
	KeyNotes      = "notes"
)

// Record field names used by tagged collections.
const (
	FieldID          = "id"
	FieldPendingSync = "pendingSync"
)

// ══════════════════════════════════════════════════════════════════════════════
// BACKEND
// ══════════════════════════════════════════════════════════════════════════════

// Backend is raw synchronous key/value storage.
type Backend interface {
	// Get returns the stored bytes and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put replaces the value at key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Record is one item of a tagged collection.
type Record map[string]any

// ID returns the record id as a string.
func (r Record) ID() string {
	return idString(r[FieldID])
}

// PendingSync reports whether the record still waits for remote sync.
func (r Record) PendingSync() bool {
	v, _ := r[FieldPendingSync].(bool)
	return v
}

// Store is the Durable Store facade.
type Store struct {
	backend Backend
	logger  *slog.Logger
	ids     *idgen.Millis

	// guards read-modify-write of tagged collections
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithIDs sets the generator used for tagged record ids.
func WithIDs(ids *idgen.Millis) Option {
	return func(s *Store) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// New creates a Store over backend.
func New(backend Backend, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend: backend,
		logger:  logger.With("component", "store"),
		ids:     idgen.NewMillis(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Get decodes the value at key into dest. It returns false when the key is
// absent, leaving dest untouched.
func (s *Store) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, s.fail("get", key, err)
	}
	if !ok || len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, s.fail("get", key, fmt.Errorf("%w: %v", shared.ErrSerialization, err))
	}
	return true, nil
}

// Set encodes value as JSON and stores it at key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return s.fail("set", key, fmt.Errorf("%w: %v", shared.ErrSerialization, err))
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return s.fail("set", key, err)
	}
	return nil
}

// Delete removes key entirely.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil {
		return s.fail("delete", key, err)
	}
	return nil
}

// AppendAndTag assigns a time-derived numeric id (unless the item has one),
// flags the item pendingSync, appends it to the collection and persists the
// collection. The tagged item is returned.
func (s *Store) AppendAndTag(ctx context.Context, collectionKey string, item any) (Record, error) {
	rec, err := toRecord(item)
	if err != nil {
		return nil, s.fail("appendAndTag", collectionKey, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.list(ctx, collectionKey)
	if err != nil {
		return nil, err
	}

	if id := rec.ID(); id == "" || id == "0" {
		rec[FieldID] = s.ids.Next()
	}
	rec[FieldPendingSync] = true
	records = append(records, rec)

	if err := s.Set(ctx, collectionKey, records); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns every record of a tagged collection.
func (s *Store) List(ctx context.Context, collectionKey string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(ctx, collectionKey)
}

// Remove deletes the record with id from the collection. It reports whether
// a record was removed; nothing is written when none matched.
func (s *Store) Remove(ctx context.Context, collectionKey, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.list(ctx, collectionKey)
	if err != nil {
		return false, err
	}

	kept := records[:0]
	for _, r := range records {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return false, nil
	}
	return true, s.Set(ctx, collectionKey, kept)
}

// ClearSynced keeps only the records still flagged pendingSync. It returns
// how many records were dropped.
func (s *Store) ClearSynced(ctx context.Context, collectionKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.list(ctx, collectionKey)
	if err != nil {
		return 0, err
	}

	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if r.PendingSync() {
			kept = append(kept, r)
		}
	}
	dropped := len(records) - len(kept)
	if dropped == 0 {
		return 0, nil
	}
	return dropped, s.Set(ctx, collectionKey, kept)
}

// MarkSynced clears the pendingSync flag on the records with the given ids.
// It returns how many records changed.
func (s *Store) MarkSynced(ctx context.Context, collectionKey string, ids []string) (int, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.list(ctx, collectionKey)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, r := range records {
		if want[r.ID()] && r.PendingSync() {
			r[FieldPendingSync] = false
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, s.Set(ctx, collectionKey, records)
}

// list reads a collection. Callers hold s.mu.
func (s *Store) list(ctx context.Context, collectionKey string) ([]Record, error) {
	data, ok, err := s.backend.Get(ctx, collectionKey)
	if err != nil {
		return nil, s.fail("list", collectionKey, err)
	}
	if !ok || len(data) == 0 {
		return []Record{}, nil
	}

	var records []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, s.fail("list", collectionKey, fmt.Errorf("%w: %v", shared.ErrSerialization, err))
	}
	for _, r := range records {
		if n, ok := r[FieldID].(json.Number); ok {
			if id, err := n.Int64(); err == nil {
				s.ids.Observe(id)
			}
		}
	}
	return records, nil
}

// fail logs a persistence failure and wraps it.
func (s *Store) fail(op, key string, err error) error {
	s.logger.Error("store operation failed",
		"op", op,
		"key", key,
		"error", err,
	)
	return &shared.PersistenceError{Key: key, Op: op, Err: err}
}

func toRecord(item any) (Record, error) {
	if rec, ok := item.(Record); ok {
		out := make(Record, len(rec))
		for k, v := range rec {
			out[k] = v
		}
		return out, nil
	}

	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSerialization, err)
	}
	var rec Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: item is not an object: %v", shared.ErrSerialization, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: item is null", shared.ErrSerialization)
	}
	return rec, nil
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case int64:
		return strconv.FormatInt(id, 10)
	case int:
		return strconv.Itoa(id)
	case float64:
		if id == 0 {
			return ""
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
