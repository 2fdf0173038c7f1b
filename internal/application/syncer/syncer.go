// Package syncer pushes locally tagged journal records to the remote system
// of record. Records stay pendingSync until a batch containing them has been
// accepted; synced records are then dropped from the local collection.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/athlete-hub/athlete-hub/internal/infrastructure/persistence/store"
	"github.com/athlete-hub/athlete-hub/pkg/circuitbreaker"
	"github.com/athlete-hub/athlete-hub/pkg/retry"
)

// Remote accepts pushed records.
type Remote interface {
	PushRecords(ctx context.Context, collection string, records []store.Record) error
}

// Source is the local side of the sync. Implemented by *store.Store.
type Source interface {
	List(ctx context.Context, collectionKey string) ([]store.Record, error)
	MarkSynced(ctx context.Context, collectionKey string, ids []string) (int, error)
	ClearSynced(ctx context.Context, collectionKey string) (int, error)
}

// Config holds sync settings.
type Config struct {
	// Collections to push, in order.
	Collections []string

	// Records per push.
	BatchSize int

	// Attempts per batch, including the first.
	MaxAttempts int

	// Drop synced records from the local collections after a push.
	ClearLocal bool

	// How long the breaker stays open after repeated failures.
	BreakerTimeout time.Duration

	// Reports whether a push error is worth retrying. Nil retries every error
	// except an open breaker and cancellation.
	IsTransient func(error) bool
}

// DefaultConfig returns settings for the journal collections.
func DefaultConfig() Config {
	return Config{
		Collections:    []string{store.KeyActivities, store.KeyNotes},
		BatchSize:      100,
		MaxAttempts:    3,
		ClearLocal:     true,
		BreakerTimeout: time.Minute,
	}
}

// CollectionResult is the outcome for one collection.
type CollectionResult struct {
	Pending int `json:"pending"`
	Pushed  int `json:"pushed"`
	Cleared int `json:"cleared"`
}

// Result is the outcome of one Sync call.
type Result struct {
	Collections map[string]CollectionResult `json:"collections"`
	Duration    time.Duration               `json:"duration"`
}

// Pushed returns the number of records pushed across collections.
func (r Result) Pushed() int {
	total := 0
	for _, c := range r.Collections {
		total += c.Pushed
	}
	return total
}

// Syncer pushes pending records.
type Syncer struct {
	source  Source
	remote  Remote
	config  Config
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithBreaker replaces the default breaker.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(s *Syncer) {
		if cb != nil {
			s.breaker = cb
		}
	}
}

// WithRetrier replaces the default retrier.
func WithRetrier(r *retry.Retrier) Option {
	return func(s *Syncer) {
		if r != nil {
			s.retrier = r
		}
	}
}

// New creates a Syncer.
func New(source Source, remote Remote, config Config, logger *slog.Logger, opts ...Option) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize < 1 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if len(config.Collections) == 0 {
		config.Collections = DefaultConfig().Collections
	}

	s := &Syncer{
		source: source,
		remote: remote,
		config: config,
		logger: logger.With("component", "syncer"),
	}

	s.breaker = circuitbreaker.RemoteSyncBreaker(config.BreakerTimeout, func(name string, from, to circuitbreaker.State) {
		s.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	})
	s.retrier = retry.New(
		retry.WithMaxAttempts(config.MaxAttempts),
		retry.WithInitialDelay(200*time.Millisecond),
		retry.WithMaxDelay(5*time.Second),
		retry.WithJitter(0.2),
		retry.WithRetryIf(s.retryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			s.logger.Warn("push failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		}),
	)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Syncer) retryable(err error) bool {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) ||
		errors.Is(err, circuitbreaker.ErrTooManyRequests) ||
		errors.Is(err, context.Canceled) {
		return false
	}
	if s.config.IsTransient != nil {
		return s.config.IsTransient(err)
	}
	return true
}

// Sync pushes every pending record. Collections are pushed concurrently;
// within a collection batches go out in order and stop at the first failure.
// The result reports what was done even when an error is returned.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	start := time.Now()
	results := make([]CollectionResult, len(s.config.Collections))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range s.config.Collections {
		g.Go(func() error {
			res, err := s.syncCollection(gctx, key)
			results[i] = res
			return err
		})
	}
	err := g.Wait()

	out := Result{
		Collections: make(map[string]CollectionResult, len(results)),
		Duration:    time.Since(start),
	}
	for i, key := range s.config.Collections {
		out.Collections[key] = results[i]
	}

	if err != nil {
		s.logger.Error("sync failed", "pushed", out.Pushed(), "error", err)
		return out, err
	}
	s.logger.Info("sync completed", "pushed", out.Pushed(), "duration", out.Duration)
	return out, nil
}

func (s *Syncer) syncCollection(ctx context.Context, key string) (CollectionResult, error) {
	var res CollectionResult

	records, err := s.source.List(ctx, key)
	if err != nil {
		return res, err
	}

	pending := make([]store.Record, 0, len(records))
	for _, r := range records {
		if r.PendingSync() {
			pending = append(pending, r)
		}
	}
	res.Pending = len(pending)

	for start := 0; start < len(pending); start += s.config.BatchSize {
		end := min(start+s.config.BatchSize, len(pending))
		batch := pending[start:end]

		err := s.retrier.Do(ctx, func(ctx context.Context) error {
			return s.breaker.Execute(ctx, func(ctx context.Context) error {
				return s.remote.PushRecords(ctx, key, batch)
			})
		})
		if err != nil {
			return res, fmt.Errorf("push %s: %w", key, err)
		}

		ids := make([]string, len(batch))
		for i, r := range batch {
			ids[i] = r.ID()
		}
		marked, err := s.source.MarkSynced(ctx, key, ids)
		if err != nil {
			return res, err
		}
		res.Pushed += marked
		s.logger.Debug("batch pushed", "collection", key, "records", len(batch))
	}

	if !s.config.ClearLocal {
		return res, nil
	}
	cleared, err := s.source.ClearSynced(ctx, key)
	res.Cleared = cleared
	return res, err
}

// BreakerState returns the remote breaker state.
func (s *Syncer) BreakerState() circuitbreaker.State {
	return s.breaker.State()
}
