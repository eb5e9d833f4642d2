package store

import (
	"context"
	"strings"
)

// Snapshot is one document read from the store. Path is relative to the
// database root, e.g. "trips/abc123" or "chats/c1/messages/m1".
type Snapshot struct {
	Path string
	Data map[string]any
}

// ID returns the document ID, the last path segment.
func (s Snapshot) ID() string {
	if i := strings.LastIndex(s.Path, "/"); i >= 0 {
		return s.Path[i+1:]
	}
	return s.Path
}

// Where is a single filter on a collection query. Op is "==" or
// "array-contains".
type Where struct {
	Field string
	Op    string
	Value any
}

// Update mutates one field of a document. Value may be a plain value or one
// of the DeleteField / ArrayRemove sentinels.
type Update struct {
	FieldPath []string
	Value     any
}

type deleteField struct{}

type arrayRemove struct{ values []any }

// DeleteField removes the field entirely.
var DeleteField = deleteField{}

// ArrayRemove removes the given values from an array field.
func ArrayRemove(values ...any) any {
	return arrayRemove{values: values}
}

// ArrayRemoveValues reports whether v is an ArrayRemove sentinel and
// returns its values. For Batch implementations outside this package.
func ArrayRemoveValues(v any) ([]any, bool) {
	if ar, ok := v.(arrayRemove); ok {
		return ar.values, true
	}
	return nil, false
}

// IsDeleteField reports whether v is the DeleteField sentinel.
func IsDeleteField(v any) bool {
	_, ok := v.(deleteField)
	return ok
}

// Batch is the bulk-write session: mutations are queued and applied on
// Flush. Implementations reject a second queued operation for the same
// document, callers must deduplicate.
type Batch interface {
	Delete(path string) error
	Update(path string, updates []Update) error
	Flush(ctx context.Context) error
}

// Store is the document-store surface the wipe orchestrator consumes.
// A query with no filters lists the whole (sub)collection.
type Store interface {
	Query(ctx context.Context, collection string, wheres ...Where) ([]Snapshot, error)
	Batch(ctx context.Context) Batch
}

// Blobs is the object-store surface. Deleting a missing object or an empty
// prefix is not an error.
type Blobs interface {
	Delete(ctx context.Context, path string) error
	DeletePrefix(ctx context.Context, prefix string) error
}
