package wipe

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripzi/functions/store"
)

// fakeStore is an in-memory store.Store. Documents are keyed by full path;
// queries support the two filter ops the orchestrator uses. Its batch
// mirrors BulkWriter semantics: a second operation for the same document is
// an error, deleting a missing document is not.
type fakeStore struct {
	docs map[string]map[string]any
}

func newFakeStore(docs map[string]map[string]any) *fakeStore {
	if docs == nil {
		docs = map[string]map[string]any{}
	}
	return &fakeStore{docs: docs}
}

func (f *fakeStore) Query(_ context.Context, collection string, wheres ...store.Where) ([]store.Snapshot, error) {
	var snaps []store.Snapshot
	prefix := collection + "/"
	for path, data := range f.docs {
		id, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(id, "/") {
			continue
		}
		if !matchesAll(data, wheres) {
			continue
		}
		snaps = append(snaps, store.Snapshot{Path: path, Data: data})
	}
	return snaps, nil
}

func matchesAll(data map[string]any, wheres []store.Where) bool {
	for _, w := range wheres {
		switch w.Op {
		case "==":
			if data[w.Field] != w.Value {
				return false
			}
		case "array-contains":
			if !sliceContains(data[w.Field], w.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func sliceContains(field, value any) bool {
	switch s := field.(type) {
	case []any:
		for _, v := range s {
			if v == value {
				return true
			}
		}
	case []string:
		for _, v := range s {
			if v == value {
				return true
			}
		}
	}
	return false
}

func (f *fakeStore) Batch(_ context.Context) store.Batch {
	return &fakeBatch{store: f, queued: map[string]bool{}}
}

type fakeOp struct {
	path    string
	deleted bool
	updates []store.Update
}

type fakeBatch struct {
	store   *fakeStore
	queued  map[string]bool
	ops     []fakeOp
	flushed bool
}

func (b *fakeBatch) Delete(path string) error {
	if b.queued[path] {
		return fmt.Errorf("duplicate operation for %s", path)
	}
	b.queued[path] = true
	b.ops = append(b.ops, fakeOp{path: path, deleted: true})
	return nil
}

func (b *fakeBatch) Update(path string, updates []store.Update) error {
	if b.queued[path] {
		return fmt.Errorf("duplicate operation for %s", path)
	}
	b.queued[path] = true
	b.ops = append(b.ops, fakeOp{path: path, updates: updates})
	return nil
}

func (b *fakeBatch) Flush(_ context.Context) error {
	if b.flushed {
		return fmt.Errorf("batch flushed twice")
	}
	b.flushed = true
	for _, op := range b.ops {
		if op.deleted {
			delete(b.store.docs, op.path)
			continue
		}
		data, ok := b.store.docs[op.path]
		if !ok {
			// updating a vanished document, tolerated like NotFound
			continue
		}
		for _, u := range op.updates {
			applyUpdate(data, u)
		}
	}
	return nil
}

func applyUpdate(data map[string]any, u store.Update) {
	m := data
	for _, key := range u.FieldPath[:len(u.FieldPath)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	last := u.FieldPath[len(u.FieldPath)-1]

	if store.IsDeleteField(u.Value) {
		delete(m, last)
		return
	}
	if removed, ok := store.ArrayRemoveValues(u.Value); ok {
		var kept []any
		for _, v := range asSlice(m[last]) {
			drop := false
			for _, r := range removed {
				if v == r {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, v)
			}
		}
		m[last] = kept
		return
	}
	m[last] = u.Value
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	}
	return nil
}

// fakeBlobs is an in-memory store.Blobs with per-path fault injection.
type fakeBlobs struct {
	objects  map[string]bool
	failures map[string]bool
}

func newFakeBlobs(paths ...string) *fakeBlobs {
	objects := map[string]bool{}
	for _, p := range paths {
		objects[p] = true
	}
	return &fakeBlobs{objects: objects, failures: map[string]bool{}}
}

func (f *fakeBlobs) Delete(_ context.Context, path string) error {
	if f.failures[path] {
		return fmt.Errorf("injected failure for %s", path)
	}
	delete(f.objects, path)
	return nil
}

func (f *fakeBlobs) DeletePrefix(_ context.Context, prefix string) error {
	if f.failures[prefix] {
		return fmt.Errorf("injected failure for prefix %s", prefix)
	}
	for path := range f.objects {
		if strings.HasPrefix(path, prefix) {
			delete(f.objects, path)
		}
	}
	return nil
}
