// Package store handles session and settings persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/studyfocus/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// isoLayout is fixed width so stored dates sort lexically.
const isoLayout = "2006-01-02T15:04:05.000Z"

// SessionStore is the persistence capability the core depends on. Session
// dates are stored in UTC with millisecond precision on every path.
type SessionStore interface {
	PutSession(ctx context.Context, rec model.SessionRecord) error
	AllSessions(ctx context.Context) ([]model.SessionRecord, error)
	SessionsByRange(ctx context.Context, start, end time.Time) ([]model.SessionRecord, error)
	SessionsByHour(ctx context.Context, hour int) ([]model.SessionRecord, error)
	GetSetting(ctx context.Context, key string, dst any) (bool, error)
	PutSetting(ctx context.Context, key string, value any) error
	Clear(ctx context.Context) error
	Close() error
}

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			date TEXT PRIMARY KEY,
			duration_seconds REAL NOT NULL,
			focus_rate INTEGER NOT NULL,
			time_of_day INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			metadata TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_time_of_day ON sessions(time_of_day);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// PutSession stores a session keyed by its date. A session with the same
// date replaces the previous one.
func (s *Store) PutSession(ctx context.Context, rec model.SessionRecord) error {
	var meta any
	if rec.Metadata != nil {
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		meta = string(raw)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (date, duration_seconds, focus_rate, time_of_day, completed, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		formatDate(rec.Date),
		rec.DurationSeconds,
		rec.FocusRate,
		rec.TimeOfDayHour,
		rec.CompletedSuccessfully,
		meta,
	)
	return err
}

// AllSessions returns every session ordered by date.
func (s *Store) AllSessions(ctx context.Context) ([]model.SessionRecord, error) {
	return s.querySessions(ctx, `SELECT date, duration_seconds, focus_rate, time_of_day, completed, metadata
		FROM sessions ORDER BY date ASC`)
}

// SessionsByRange returns sessions with start <= date <= end.
func (s *Store) SessionsByRange(ctx context.Context, start, end time.Time) ([]model.SessionRecord, error) {
	return s.querySessions(ctx, `SELECT date, duration_seconds, focus_rate, time_of_day, completed, metadata
		FROM sessions WHERE date >= ? AND date <= ? ORDER BY date ASC`,
		formatDate(start), formatDate(end))
}

// SessionsByHour returns sessions recorded at the given hour of day.
func (s *Store) SessionsByHour(ctx context.Context, hour int) ([]model.SessionRecord, error) {
	return s.querySessions(ctx, `SELECT date, duration_seconds, focus_rate, time_of_day, completed, metadata
		FROM sessions WHERE time_of_day = ? ORDER BY date ASC`, hour)
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]model.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var date string
		var meta sql.NullString
		if err := rows.Scan(&date, &rec.DurationSeconds, &rec.FocusRate, &rec.TimeOfDayHour, &rec.CompletedSuccessfully, &meta); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(isoLayout, date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse session date %q: %w", date, err)
		}
		rec.Date = parsed
		if meta.Valid && meta.String != "" {
			var md model.SessionMetadata
			if err := json.Unmarshal([]byte(meta.String), &md); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for %q: %w", date, err)
			}
			rec.Metadata = &md
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSetting decodes the JSON value stored under key into dst. It reports
// false when the key is missing.
func (s *Store) GetSetting(ctx context.Context, key string, dst any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, &MalformedError{Key: key, Err: err}
	}
	return true, nil
}

// PutSetting stores value as JSON under key.
func (s *Store) PutSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, string(raw))
	return err
}

// Clear removes all sessions and settings.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range []string{`DELETE FROM sessions`, `DELETE FROM settings`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
			return err
		}
	}
	return tx.Commit()
}

// MalformedError reports a stored value that could not be decoded.
type MalformedError struct {
	Key string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed value for %q: %v", e.Key, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

func formatDate(t time.Time) string {
	return normalizeDate(t).Format(isoLayout)
}

func normalizeDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
