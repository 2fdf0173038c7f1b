package activity

import "context"

// Repository defines the interface for journal persistence.
// Entries are appended with pendingSync set until a remote sync confirms them.
type Repository interface {
	// AppendActivity stores a new activity and returns it with its id.
	AppendActivity(ctx context.Context, a Activity) (Activity, error)

	// Activities returns every stored activity.
	Activities(ctx context.Context) ([]Activity, error)

	// AppendNote stores a new note and returns it with its id.
	AppendNote(ctx context.Context, n Note) (Note, error)

	// Notes returns every stored note.
	Notes(ctx context.Context) ([]Note, error)

	// RemoveNote deletes a note. It reports whether one was removed.
	RemoveNote(ctx context.Context, id int64) (bool, error)

	// PendingCount returns how many entries still wait for remote sync.
	PendingCount(ctx context.Context) (int, error)
}
