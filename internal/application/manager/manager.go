// Package manager contains the entity managers. Each one owns a single
// collection and its Durable Store key, validates every write, persists
// write-through and publishes the new collection through the State Manager.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/validation"
	"github.com/athlete-hub/athlete-hub/pkg/idgen"
)

// Persister is the part of the Durable Store a manager writes through.
type Persister interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// StateSink receives collection changes. Implemented by state.Manager.
type StateSink interface {
	UpdateState(ctx context.Context, key string, value any) error
	Seed(key string, value any) error
	Notify(key string, value any)
}

// Deps are the collaborators every manager needs. Bus may be nil.
type Deps struct {
	Store     Persister
	State     StateSink
	Bus       shared.EventPublisher
	Validator *validation.Validator
	Logger    *slog.Logger
}

// Option configures a manager.
type Option func(*base)

// WithClock sets the clock used for timestamps and date rules.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDs sets the generator for string ids.
func WithIDs(newID func() string) Option {
	return func(b *base) {
		if newID != nil {
			b.newID = newID
		}
	}
}

// WithMillis sets the generator for numeric grade ids.
func WithMillis(m *idgen.Millis) Option {
	return func(b *base) {
		if m != nil {
			b.millis = m
		}
	}
}

// WithMaxOccurrences caps recurring session expansion.
func WithMaxOccurrences(n int) Option {
	return func(b *base) {
		if n > 0 {
			b.maxOccurrences = n
		}
	}
}

// base holds what the managers share.
type base struct {
	domain    string
	store     Persister
	state     StateSink
	bus       shared.EventPublisher
	validator *validation.Validator
	logger    *slog.Logger

	now            func() time.Time
	newID          func() string
	millis         *idgen.Millis
	maxOccurrences int
}

func newBase(domain string, deps Deps, opts []Option) base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	v := deps.Validator
	if v == nil {
		v = validation.Default()
	}

	b := base{
		domain:    domain,
		store:     deps.Store,
		state:     deps.State,
		bus:       deps.Bus,
		validator: v,
		logger:    logger.With("component", domain+"_manager"),
		now:       time.Now,
		newID:     idgen.NewString,
	}
	for _, opt := range opts {
		opt(&b)
	}
	if b.millis == nil {
		b.millis = idgen.NewMillisWithClock(b.now)
	}
	return b
}

// load reads key into dest. A read failure is logged and returned; the
// manager then starts from an empty collection.
func (b *base) load(ctx context.Context, key string, dest any) (bool, error) {
	found, err := b.store.Get(ctx, key, dest)
	if err != nil {
		b.logger.Error("load failed, starting empty", "key", key, "error", err)
		return false, err
	}
	return found, nil
}

// persist writes value at key. Failures are logged; the caller keeps its
// in-memory change.
func (b *base) persist(ctx context.Context, key string, value any) error {
	if err := b.store.Set(ctx, key, value); err != nil {
		b.logger.Error("persist failed, in-memory change kept", "key", key, "error", err)
		return err
	}
	return nil
}

func (b *base) seed(key string, value any) {
	if b.state == nil {
		return
	}
	if err := b.state.Seed(key, value); err != nil {
		b.logger.Warn("state seed failed", "key", key, "error", err)
	}
}

// update publishes a collection to the State Manager.
func (b *base) update(ctx context.Context, key string, value any) error {
	if b.state == nil {
		return nil
	}
	return b.state.UpdateState(ctx, key, value)
}

func (b *base) notify(key string, value any) {
	if b.state != nil {
		b.state.Notify(key, value)
	}
}

// announce publishes an entity change on the bus. Handler failures are
// logged by the bus and do not affect the operation.
func (b *base) announce(eventType shared.EventType, id, title, detail string) {
	if b.bus == nil {
		return
	}
	if err := b.bus.Publish(shared.NewEntityChangedEvent(eventType, id, title, detail)); err != nil {
		b.logger.Debug("entity change handlers failed", "event_type", eventType, "error", err)
	}
}

func (b *base) validationErr(op string, res validation.Result) error {
	if res.IsValid {
		return nil
	}
	b.logger.Debug("rejected invalid input", "op", op, "reasons", res.Errors)
	return res.Err(b.domain, op)
}

func (b *base) notFound(op, id string) error {
	return shared.NotFound(b.domain, op, id)
}

func (b *base) alreadyExists(op, id string) error {
	return shared.NewDomainError(b.domain, op, shared.ErrAlreadyExists, b.domain+" "+id+" already exists")
}

// outcome joins the persistence error of the owned key with the state
// publication error. Either may be nil.
func outcome(persistErr, stateErr error) error {
	if persistErr == nil {
		return stateErr
	}
	if stateErr == nil || errors.Is(stateErr, persistErr) {
		return persistErr
	}
	return errors.Join(persistErr, stateErr)
}
