// Package idgen issues time-derived identifiers for hub records.
package idgen

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewString returns a time-ordered UUIDv7 string. Falls back to a random
// UUIDv4 if the v7 generator cannot read randomness.
func NewString() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Millis issues strictly increasing millisecond timestamps, so two records
// created within the same millisecond still get distinct ids.
type Millis struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewMillis creates a generator reading the wall clock.
func NewMillis() *Millis {
	return &Millis{now: time.Now}
}

// NewMillisWithClock creates a generator reading the given clock.
func NewMillisWithClock(now func() time.Time) *Millis {
	return &Millis{now: now}
}

// Next returns the next id.
func (m *Millis) Next() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.now().UnixMilli()
	if id <= m.last {
		id = m.last + 1
	}
	m.last = id
	return id
}

// Observe raises the floor so ids issued later stay above a value that was
// loaded from storage.
func (m *Millis) Observe(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id > m.last {
		m.last = id
	}
}
