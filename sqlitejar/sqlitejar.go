// Package sqlitejar persists derived Legendre coefficient tables in a
// single SQLite file, one row per degree. It suits deployments where many
// processes on one host share a warm cache: WAL journaling plus a busy
// timeout lets concurrent readers and writers share the file, and because
// tables are deterministic, racing writers of one degree upsert the same
// bytes.
package sqlitejar

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/equigo/harmonics/legendre"
)

const schema = `
CREATE TABLE IF NOT EXISTS legendre_tables (
	degree     INTEGER PRIMARY KEY,
	table_gob  BLOB NOT NULL,
	created_at INTEGER NOT NULL
);`

// Store is a legendre.Store backed by one SQLite database file.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlitejar: database path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitejar: open: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitejar: ping: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlitejar: create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get implements legendre.Store. A row whose payload no longer decodes is
// reported as a miss so the caller rederives and overwrites it.
func (s *Store) Get(l int) (*legendre.Table, bool, error) {
	if s == nil || s.sqlDB == nil {
		return nil, false, fmt.Errorf("sqlitejar: store is not open")
	}

	var blob []byte
	err := s.sqlDB.QueryRow(
		`SELECT table_gob FROM legendre_tables WHERE degree = ?`, l,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlitejar: get degree %d: %w", l, err)
	}

	var t legendre.Table
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&t); err != nil {
		return nil, false, nil
	}
	if t.L != l || len(t.Orders) != l+1 {
		return nil, false, nil
	}
	return &t, true, nil
}

// Put implements legendre.Store. Tables for a degree are deterministic, so
// the upsert makes racing writers idempotent while still letting a rederive
// repair a row whose payload stopped decoding.
func (s *Store) Put(l int, t *legendre.Table) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("sqlitejar: store is not open")
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t); err != nil {
		return fmt.Errorf("sqlitejar: encode degree %d: %w", l, err)
	}
	_, err := s.sqlDB.Exec(
		`INSERT INTO legendre_tables (degree, table_gob, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(degree) DO UPDATE SET
		   table_gob  = excluded.table_gob,
		   created_at = excluded.created_at`,
		l, buf.Bytes(), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlitejar: put degree %d: %w", l, err)
	}
	return nil
}

var _ legendre.Store = (*Store)(nil)
