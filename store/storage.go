package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
)

var storageBucket = os.Getenv("STORAGE_BUCKET")

// Bucket implements Blobs over a Cloud Storage bucket.
type Bucket struct {
	bucket *storage.BucketHandle
}

// NewBucket opens STORAGE_BUCKET if set, otherwise the app's default
// Firebase storage bucket.
func NewBucket(ctx context.Context) (*Bucket, error) {
	if storageBucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		return &Bucket{bucket: client.Bucket(storageBucket)}, nil
	}

	app, err := firebase.NewApp(ctx, nil)
	if err != nil {
		return nil, err
	}
	sc, err := app.Storage(ctx)
	if err != nil {
		return nil, err
	}
	bucket, err := sc.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("resolving default bucket: %w", err)
	}
	return &Bucket{bucket: bucket}, nil
}

// NewBucketWithHandle wraps an existing bucket handle, used by the admin CLI.
func NewBucketWithHandle(bucket *storage.BucketHandle) *Bucket {
	return &Bucket{bucket: bucket}
}

func (b *Bucket) Delete(ctx context.Context, path string) error {
	err := b.bucket.Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (b *Bucket) DeletePrefix(ctx context.Context, prefix string) error {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("listing %s: %w", prefix, err)
		}
		if err := b.Delete(ctx, attrs.Name); err != nil {
			return err
		}
	}
	return nil
}
