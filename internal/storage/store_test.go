package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, prefix string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(":memory:", prefix)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "ledgers")

	ok, err := s.Exists(ctx, "2020-06-07.csv")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.Get(ctx, "2020-06-07.csv")
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	require.NoError(t, s.Put(ctx, "2020-06-07.csv", []byte("a,b\n")))
	require.NoError(t, s.Put(ctx, "2020-06-14.csv", []byte("c\n")))

	ok, err = s.Exists(ctx, "2020-06-07.csv")
	require.NoError(t, err)
	require.True(t, ok)

	data, err := s.Get(ctx, "2020-06-07.csv")
	require.NoError(t, err)
	require.Equal(t, "a,b\n", string(data))

	// overwrite
	require.NoError(t, s.Put(ctx, "2020-06-07.csv", []byte("x\n")))
	data, err = s.Get(ctx, "2020-06-07.csv")
	require.NoError(t, err)
	require.Equal(t, "x\n", string(data))

	names, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2020-06-14.csv", "2020-06-07.csv"}, names)

	// listed names feed straight back into Get
	for _, name := range names {
		_, err := s.Get(ctx, name)
		require.NoError(t, err)
	}

	require.Equal(t, "sqlite://:memory:#ledgers/2020-06-07.csv", s.URI("2020-06-07.csv"))
}

func TestSQLiteStore_ListScopedToPrefix(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLiteStore(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Put(ctx, "2020-06-07.csv", []byte("root\n")))
	require.NoError(t, s.Put(ctx, "weekly/2020-06-14.csv", []byte("weekly\n")))

	weekly := &SQLiteStore{db: s.db, dsn: s.dsn, prefix: "weekly"}
	names, err := weekly.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"2020-06-14.csv"}, names)

	data, err := weekly.Get(ctx, names[0])
	require.NoError(t, err)
	require.Equal(t, "weekly\n", string(data))
}

func TestSnapshotName(t *testing.T) {
	tests := []struct {
		prefix, object, want string
		ok                   bool
	}{
		{"", "2020-06-07.csv", "2020-06-07.csv", true},
		{"ledgers", "ledgers/2020-06-07.csv", "2020-06-07.csv", true},
		{"/ledgers/", "ledgers/2020-06-07.csv", "2020-06-07.csv", true},
		{"ledgers", "ledgers-old/2020-06-07.csv", "", false},
		{"a/b", "a/b/c.csv", "c.csv", true},
	}
	for _, tt := range tests {
		got, ok := snapshotName(tt.prefix, tt.object)
		require.Equal(t, tt.ok, ok, tt.object)
		require.Equal(t, tt.want, got)
		if ok {
			require.Equal(t, tt.object, objectPath(tt.prefix, got))
		}
	}
}

func TestObjectPath(t *testing.T) {
	tests := []struct {
		prefix, name, want string
	}{
		{"", "2020-06-07.csv", "2020-06-07.csv"},
		{"ledgers", "2020-06-07.csv", "ledgers/2020-06-07.csv"},
		{"/ledgers/", "/2020-06-07.csv", "ledgers/2020-06-07.csv"},
		{"a/b", "c.csv", "a/b/c.csv"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, objectPath(tt.prefix, tt.name))
	}
}

func TestGCSStore_URI(t *testing.T) {
	s := &GCSStore{bucket: "farm-ledgers", prefix: "weekly"}
	require.Equal(t, "gs://farm-ledgers/weekly/2020-06-07.csv", s.URI("2020-06-07.csv"))
}

var (
	_ Store  = (*GCSStore)(nil)
	_ Store  = (*SQLiteStore)(nil)
	_ Lister = (*GCSStore)(nil)
	_ Lister = (*SQLiteStore)(nil)
)
