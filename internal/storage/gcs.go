package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// GCSStore keeps snapshots in a Cloud Storage bucket under an optional prefix.
// It assumes Application Default Credentials are configured.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a storage client for bucket. Call Close when done.
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("NewGCSStore: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(objectPath(s.prefix, name))
}

// Put uploads data as the named snapshot.
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.object(name).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("GCSStore.Put: copy to %s: %w", s.URI(name), err)
	}
	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCSStore.Put: finalize %s: %w", s.URI(name), err)
	}
	return nil
}

// Get downloads the named snapshot.
func (s *GCSStore) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := s.object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("GCSStore.Get: %s: %w", s.URI(name), ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Get: open %s: %w", s.URI(name), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Get: read %s: %w", s.URI(name), err)
	}
	return data, nil
}

// Exists reports whether the named snapshot is present.
func (s *GCSStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("GCSStore.Exists: %s: %w", s.URI(name), err)
	}
	return true, nil
}

// List returns the names of the snapshots under the prefix, newest first.
// Names are relative to the prefix, as Get expects them.
func (s *GCSStore) List(ctx context.Context) ([]string, error) {
	q := &storage.Query{}
	if p := strings.Trim(s.prefix, "/"); p != "" {
		q.Prefix = p + "/"
	}

	var names []string
	it := s.client.Bucket(s.bucket).Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GCSStore.List: %w", err)
		}
		if name, ok := snapshotName(s.prefix, attrs.Name); ok {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// URI returns the gs:// URI of the named snapshot.
func (s *GCSStore) URI(name string) string {
	return "gs://" + s.bucket + "/" + objectPath(s.prefix, name)
}
