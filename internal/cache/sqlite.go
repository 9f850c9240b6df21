package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/portfolio-labs/extraction-pipeline/internal/common"
)

// SQLiteStore is the default embedded L2 store. It also keeps one row per
// pipeline run for downstream quality gating.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at);

CREATE TABLE IF NOT EXISTS pipeline_runs (
  id          TEXT PRIMARY KEY,
  filename    TEXT NOT NULL,
  chunks      INTEGER NOT NULL,
  items       INTEGER NOT NULL,
  confidence  REAL NOT NULL,
  elapsed_ms  INTEGER NOT NULL,
  notes       TEXT NOT NULL,
  created_at  INTEGER NOT NULL
);
`

// NewSQLiteStore opens (or creates) the store at dsn. Use "file::memory:"
// plus a shared cache for tests.
func NewSQLiteStore(dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite cache: %v", common.ErrCacheUnavailable, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: init sqlite cache schema: %v", common.ErrCacheUnavailable, err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	var value []byte
	var expiresUnix int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &expiresUnix)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, ErrMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("sqlite cache get: %w", err)
	}
	expiresAt := time.Unix(expiresUnix, 0)
	if !time.Now().Before(expiresAt) {
		// Lazy expiry: drop the row and report a miss.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		return nil, time.Time{}, ErrMiss
	}
	return value, expiresAt, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache_entries(key, value, expires_at) VALUES(?, ?, ?)`,
		key, value, expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite cache set: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RunRecord summarizes one pipeline run.
type RunRecord struct {
	ID         string
	Filename   string
	Chunks     int
	Items      int
	Confidence float64
	Elapsed    time.Duration
	NotesJSON  string
}

// RecordRun persists a run summary. Failures are the caller's to log;
// recording is advisory and never blocks a pipeline result.
func (s *SQLiteStore) RecordRun(ctx context.Context, rec RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pipeline_runs(id, filename, chunks, items, confidence, elapsed_ms, notes, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.Chunks, rec.Items, rec.Confidence,
		rec.Elapsed.Milliseconds(), rec.NotesJSON, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
