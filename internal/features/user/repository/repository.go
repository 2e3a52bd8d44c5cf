package repository

import "context"

// Store is the remote realtime store boundary: keyed documents under
// per-user paths, point reads and field-level merges. Merge must be
// idempotent — replaying the same field set converges to the same remote
// state — which is what makes the writer's retries safe.
type Store interface {
	// Get returns the fields stored at path, or an empty map when the
	// path does not exist.
	Get(ctx context.Context, path string) (map[string]string, error)

	// Merge upserts the given fields at path, leaving all other fields
	// untouched. It can create the document but never delete a field.
	Merge(ctx context.Context, path string, fields map[string]string) error

	// IncrBy atomically adds delta to a numeric field at path.
	IncrBy(ctx context.Context, path, field string, delta int64) (int64, error)

	// IncrByFloat is IncrBy for fractional counters.
	IncrByFloat(ctx context.Context, path, field string, delta float64) (float64, error)
}

// UserPath is the per-user document path.
func UserPath(id string) string {
	return "users/" + id
}
