package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/athlete-hub/athlete-hub/internal/domain/activity"
	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
)

// ActivityRepository implements activity.Repository over the tagged
// activities and notes collections.
type ActivityRepository struct {
	store *Store
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(s *Store) *ActivityRepository {
	return &ActivityRepository{store: s}
}

// Compile-time interface check.
var _ activity.Repository = (*ActivityRepository)(nil)

// AppendActivity implements activity.Repository.
func (r *ActivityRepository) AppendActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	rec, err := r.store.AppendAndTag(ctx, KeyActivities, a)
	if err != nil {
		return activity.Activity{}, err
	}
	var out activity.Activity
	return out, decode(KeyActivities, rec, &out)
}

// Activities implements activity.Repository.
func (r *ActivityRepository) Activities(ctx context.Context) ([]activity.Activity, error) {
	return decodeAll[activity.Activity](ctx, r.store, KeyActivities)
}

// AppendNote implements activity.Repository.
func (r *ActivityRepository) AppendNote(ctx context.Context, n activity.Note) (activity.Note, error) {
	rec, err := r.store.AppendAndTag(ctx, KeyNotes, n)
	if err != nil {
		return activity.Note{}, err
	}
	var out activity.Note
	return out, decode(KeyNotes, rec, &out)
}

// Notes implements activity.Repository.
func (r *ActivityRepository) Notes(ctx context.Context) ([]activity.Note, error) {
	return decodeAll[activity.Note](ctx, r.store, KeyNotes)
}

// RemoveNote implements activity.Repository.
func (r *ActivityRepository) RemoveNote(ctx context.Context, id int64) (bool, error) {
	return r.store.Remove(ctx, KeyNotes, strconv.FormatInt(id, 10))
}

// PendingCount implements activity.Repository.
func (r *ActivityRepository) PendingCount(ctx context.Context) (int, error) {
	total := 0
	for _, key := range []string{KeyActivities, KeyNotes} {
		records, err := r.store.List(ctx, key)
		if err != nil {
			return 0, err
		}
		for _, rec := range records {
			if rec.PendingSync() {
				total++
			}
		}
	}
	return total, nil
}

func decodeAll[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	records, err := s.List(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := decode(key, rec, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decode(key string, rec Record, dest any) error {
	data, err := json.Marshal(rec)
	if err == nil {
		err = json.Unmarshal(data, dest)
	}
	if err != nil {
		return &shared.PersistenceError{Key: key, Op: "decode", Err: fmt.Errorf("%w: %v", shared.ErrSerialization, err)}
	}
	return nil
}
