// Package journal persists write outcomes to a local SQLite database.
// It is an audit trail: scribe never resumes or replays from it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"scribe/internal/domain"
)

// Store implements domain.Journal using SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the journal database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create journal directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open journal database: %w", err)
	}

	// Single connection: SQLite writes are serialized anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS writes (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id       TEXT,
		message_id   TEXT NOT NULL,
		channel_id   TEXT NOT NULL,
		channel_name TEXT,
		author_id    TEXT,
		status       INTEGER NOT NULL DEFAULT 0,
		error        TEXT NOT NULL DEFAULT '',
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_writes_time ON writes(created_at);
	CREATE INDEX IF NOT EXISTS idx_writes_run ON writes(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one write outcome.
func (s *Store) Record(ctx context.Context, rec domain.WriteRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO writes (run_id, message_id, channel_id, channel_name, author_id, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.MessageID, rec.ChannelID, rec.ChannelName, rec.AuthorID, rec.Status, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("journal record: %w", err)
	}
	return nil
}

// FailureCount returns how many journaled writes were rejected or never delivered.
func (s *Store) FailureCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM writes WHERE error != '' OR status < 200 OR status >= 300`,
	).Scan(&n)
	return n, err
}

// TotalCount returns how many writes have been journaled.
func (s *Store) TotalCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM writes`).Scan(&n)
	return n, err
}

// RecentFailures returns the most recent failed writes, newest first.
func (s *Store) RecentFailures(ctx context.Context, limit int) ([]domain.WriteRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, message_id, channel_id, channel_name, author_id, status, error, created_at
		 FROM writes
		 WHERE error != '' OR status < 200 OR status >= 300
		 ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.WriteRecord
	for rows.Next() {
		var r domain.WriteRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.MessageID, &r.ChannelID, &r.ChannelName,
			&r.AuthorID, &r.Status, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
