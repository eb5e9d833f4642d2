package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore implements Store over a Firestore client.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects to the project's default Firestore database,
// resolving the project ID from the metadata server.
func NewFirestore(ctx context.Context) (*Firestore, error) {
	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving project ID: %w", err)
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Firestore{client: client}, nil
}

// NewFirestoreWithClient wraps an existing client, used by the admin CLI
// which authenticates with a credentials file instead of the metadata server.
func NewFirestoreWithClient(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) Query(ctx context.Context, collection string, wheres ...Where) ([]Snapshot, error) {
	q := f.client.Collection(collection).Query
	for _, w := range wheres {
		q = q.Where(w.Field, w.Op, w.Value)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var snaps []Snapshot
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", collection, err)
		}
		snaps = append(snaps, Snapshot{
			Path: collection + "/" + doc.Ref.ID,
			Data: doc.Data(),
		})
	}
	return snaps, nil
}

func (f *Firestore) Batch(ctx context.Context) Batch {
	return &bulkWriter{
		client: f.client,
		bw:     f.client.BulkWriter(ctx),
	}
}

// bulkWriter adapts firestore.BulkWriter to the Batch interface. Per-write
// results are collected and checked on Flush; NotFound results count as
// success so a retried wipe converges.
type bulkWriter struct {
	client *firestore.Client
	bw     *firestore.BulkWriter
	jobs   []*firestore.BulkWriterJob
}

func (b *bulkWriter) Delete(path string) error {
	job, err := b.bw.Delete(b.client.Doc(path))
	if err != nil {
		return err
	}
	b.jobs = append(b.jobs, job)
	return nil
}

func (b *bulkWriter) Update(path string, updates []Update) error {
	fsUpdates := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		fsUpdates = append(fsUpdates, firestore.Update{
			FieldPath: firestore.FieldPath(u.FieldPath),
			Value:     firestoreValue(u.Value),
		})
	}
	job, err := b.bw.Update(b.client.Doc(path), fsUpdates)
	if err != nil {
		return err
	}
	b.jobs = append(b.jobs, job)
	return nil
}

func (b *bulkWriter) Flush(ctx context.Context) error {
	b.bw.End()
	for _, job := range b.jobs {
		if _, err := job.Results(); err != nil && !IsNotFound(err) {
			return err
		}
	}
	return nil
}

func firestoreValue(v any) any {
	switch s := v.(type) {
	case deleteField:
		return firestore.Delete
	case arrayRemove:
		return firestore.ArrayRemove(s.values...)
	default:
		return v
	}
}

// IsNotFound reports whether err means the document or object is already
// gone, which every delete path here treats as success.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return true
	}
	return status.Code(err) == codes.NotFound
}
