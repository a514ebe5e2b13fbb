// Package storage persists ledger snapshots by object name.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrSnapshotNotFound is returned by Get when no snapshot has the name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store reads and writes whole snapshot objects. Put overwrites.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Exists(ctx context.Context, name string) (bool, error)
	// URI identifies the object for logs and the run audit.
	URI(name string) string
}

// Lister is implemented by stores that can enumerate their snapshots.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// objectPath joins prefix and name with exactly one slash.
func objectPath(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	name = strings.TrimLeft(name, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// snapshotName is the inverse of objectPath. ok is false when object does
// not live under prefix.
func snapshotName(prefix, object string) (string, bool) {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return object, true
	}
	if !strings.HasPrefix(object, prefix+"/") {
		return "", false
	}
	return strings.TrimPrefix(object, prefix+"/"), true
}
