package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps snapshots as blobs in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dsn    string
	prefix string
}

// OpenSQLiteStore opens (or creates) the database at dsn and ensures the
// snapshots table exists. Pass ":memory:" for an in-memory store.
func OpenSQLiteStore(dsn, prefix string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("OpenSQLiteStore: open db: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenSQLiteStore: set wal mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("OpenSQLiteStore: create tables: %w", err)
	}
	return &SQLiteStore{db: db, dsn: dsn, prefix: prefix}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Put inserts or replaces the named snapshot.
func (s *SQLiteStore) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		objectPath(s.prefix, name), data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("SQLiteStore.Put: %s: %w", name, err)
	}
	return nil
}

// Get returns the named snapshot.
func (s *SQLiteStore) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE name = ?`, objectPath(s.prefix, name)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("SQLiteStore.Get: %s: %w", name, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("SQLiteStore.Get: %s: %w", name, err)
	}
	return data, nil
}

// Exists reports whether the named snapshot is present.
func (s *SQLiteStore) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE name = ?`, objectPath(s.prefix, name)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("SQLiteStore.Exists: %s: %w", name, err)
	}
	return n > 0, nil
}

// List returns the names of the snapshots under the prefix, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM snapshots ORDER BY name DESC`)
	if err != nil {
		return nil, fmt.Errorf("SQLiteStore.List: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("SQLiteStore.List: scan: %w", err)
		}
		if n, ok := snapshotName(s.prefix, name); ok {
			names = append(names, n)
		}
	}
	return names, rows.Err()
}

func (s *SQLiteStore) URI(name string) string {
	return "sqlite://" + s.dsn + "#" + objectPath(s.prefix, name)
}
