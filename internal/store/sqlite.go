// Package store persists normalized records in the SQLite activity log.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/naka-gawa/labpulse/internal/domain"
)

// Table is the append-only activity log.
const Table = "lab_activity"

// No primary key: overlapping windows append duplicate rows.
const createTableSQL = `
	CREATE TABLE IF NOT EXISTS lab_activity (
		id        TEXT,
		author    TEXT,
		timestamp TEXT,
		message   TEXT,
		url       TEXT
	)`

const insertSQL = `INSERT INTO lab_activity (id, author, timestamp, message, url) VALUES (?, ?, ?, ?, ?)`

// SQLiteStore owns no connection between calls: every operation opens the database,
// uses it, and closes it before returning.
type SQLiteStore struct {
	path   string
	logger zerolog.Logger
}

// NewSQLiteStore creates a store backed by the database file at path.
func NewSQLiteStore(path string, logger zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{
		path:   path,
		logger: logger.With().Str("component", "loader").Str("db", path).Logger(),
	}
}

// Load appends records in a single transaction: either every row lands or none does.
// An empty batch touches nothing and reports zero.
func (s *SQLiteStore) Load(ctx context.Context, records []domain.NormalizedRecord) (int, error) {
	if len(records) == 0 {
		s.logger.Info().Msg("No new commits to load.")
		return 0, nil
	}

	db, err := s.open(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreWriteFailure, err)
	}
	defer db.Close()

	written, err := appendRecords(ctx, db, records)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreWriteFailure, err)
	}
	s.logger.Info().Int("written", written).Msgf("Successfully loaded %d commits.", written)
	return written, nil
}

func appendRecords(ctx context.Context, db *sql.DB, records []domain.NormalizedRecord) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, r.Author, r.Timestamp, r.Message, r.URL); err != nil {
			return 0, fmt.Errorf("failed to insert record %s: %w", r.ID, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return written, nil
}

// Count returns the number of rows in the activity log.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	db, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lab_activity`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: failed to count rows: %w", err)
	}
	return n, nil
}

// List returns every row in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.NormalizedRecord, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, author, timestamp, message, url FROM lab_activity ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query rows: %w", err)
	}
	defer rows.Close()

	records := make([]domain.NormalizedRecord, 0)
	for rows.Next() {
		var r domain.NormalizedRecord
		if err := rows.Scan(&r.ID, &r.Author, &r.Timestamp, &r.Message, &r.URL); err != nil {
			return nil, fmt.Errorf("store: failed to scan row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: failed to iterate rows: %w", err)
	}
	return records, nil
}

// open connects to the database file, creating it and the table if needed.
func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", s.path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to connect: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize schema: %w", err)
	}
	return db, nil
}
