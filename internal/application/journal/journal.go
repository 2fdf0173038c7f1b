// Package journal keeps the recent activity feed and free-form notes. Entity
// changes published on the bus are turned into activity entries; every entry
// is stored locally with pendingSync set until the remote sync confirms it.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/athlete-hub/athlete-hub/internal/application/state"
	"github.com/athlete-hub/athlete-hub/internal/domain/activity"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
	"github.com/athlete-hub/athlete-hub/internal/domain/validation"
)

// Notifier receives journal changes. Implemented by state.Manager.
type Notifier interface {
	Notify(key string, value any)
}

// Journal records activities and notes.
type Journal struct {
	repo      activity.Repository
	notifier  Notifier
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock sets the clock used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		if now != nil {
			j.now = now
		}
	}
}

// New creates a Journal. notifier may be nil.
func New(repo activity.Repository, notifier Notifier, validator *validation.Validator, logger *slog.Logger, opts ...Option) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.Default()
	}
	j := &Journal{
		repo:      repo,
		notifier:  notifier,
		validator: validator,
		logger:    logger.With("component", "journal"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Attach subscribes the journal to entity changes on the bus.
func (j *Journal) Attach(bus shared.EventSubscriber) (shared.Unsubscribe, error) {
	return bus.SubscribeAll(j.handle)
}

// handle turns a recognized entity change into an activity entry.
func (j *Journal) handle(e shared.Event) error {
	changed, ok := e.(shared.EntityChangedEvent)
	if !ok {
		return nil
	}
	t, desc, ok := describe(changed)
	if !ok {
		return nil
	}
	_, err := j.RecordActivity(context.Background(), t, changed.AggregateID(), desc)
	return err
}

// RecordActivity appends an activity entry.
func (j *Journal) RecordActivity(ctx context.Context, t activity.Type, subjectID, description string) (activity.Activity, error) {
	a, err := activity.NewActivity(t, subjectID, description, j.now())
	if err != nil {
		return activity.Activity{}, shared.WrapError("activity", "Record", shared.ErrInvalidInput, "invalid activity", err)
	}

	saved, err := j.repo.AppendActivity(ctx, a)
	if err != nil {
		j.logger.Error("activity not recorded", "type", t, "error", err)
		return activity.Activity{}, err
	}

	j.logger.Debug("activity recorded", "type", t, "subject_id", subjectID)
	j.notify(saved)
	return saved, nil
}

// AddNote validates and appends a note.
func (j *Journal) AddNote(ctx context.Context, n activity.Note) (activity.Note, error) {
	n.Normalize()
	if err := j.validator.Note(n).Err("note", "Add"); err != nil {
		return activity.Note{}, err
	}
	n.ID = 0
	n.CreatedAt = j.now()

	saved, err := j.repo.AppendNote(ctx, n)
	if err != nil {
		j.logger.Error("note not saved", "error", err)
		return activity.Note{}, err
	}
	j.notify(saved)
	return saved, nil
}

// DeleteNote removes the note with id.
func (j *Journal) DeleteNote(ctx context.Context, id int64) error {
	removed, err := j.repo.RemoveNote(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return shared.NotFound("note", "Delete", formatID(id))
	}
	j.notify(id)
	return nil
}

// Activities returns at most limit activities, newest first. A limit of zero
// or less returns all of them.
func (j *Journal) Activities(ctx context.Context, limit int) ([]activity.Activity, error) {
	all, err := j.repo.Activities(ctx)
	if err != nil {
		return nil, err
	}
	activity.SortNewestFirst(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Notes returns every note in creation order.
func (j *Journal) Notes(ctx context.Context) ([]activity.Note, error) {
	return j.repo.Notes(ctx)
}

// PendingCount returns how many entries wait for remote sync.
func (j *Journal) PendingCount(ctx context.Context) (int, error) {
	return j.repo.PendingCount(ctx)
}

// Streak returns the consecutive-day activity streak as of now.
func (j *Journal) Streak(ctx context.Context) (activity.Streak, error) {
	all, err := j.repo.Activities(ctx)
	if err != nil {
		return activity.Streak{}, err
	}
	return activity.ComputeStreak(all, j.now()), nil
}

// Today returns today's activity tally.
func (j *Journal) Today(ctx context.Context) (activity.DailyProgress, error) {
	all, err := j.repo.Activities(ctx)
	if err != nil {
		return activity.DailyProgress{}, err
	}
	return activity.ProgressOn(all, j.now()), nil
}

func (j *Journal) notify(value any) {
	if j.notifier != nil {
		j.notifier.Notify(state.KeyJournal, value)
	}
}
