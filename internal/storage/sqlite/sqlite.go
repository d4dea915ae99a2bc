// Package sqlite provides a local file journal with the same schema as the
// postgres one, for single-machine play and development.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AaronLay10/Choreo/internal/storage"
)

// Store journals events to a SQLite file, scoped to one level id.
type Store struct {
	sqlDB   *sql.DB
	levelID string
}

var _ storage.Journal = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (creating if needed) the journal at path.
func Open(path, levelID string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &Store{sqlDB: sqlDB, levelID: levelID}
	if err := s.createTable(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create events table: %w", err)
	}
	return s, nil
}

func (s *Store) createTable() error {
	_, err := s.sqlDB.Exec(`
		CREATE TABLE IF NOT EXISTS level_events (
			event_id   INTEGER PRIMARY KEY AUTOINCREMENT,
			ts         INTEGER NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     TEXT,
			level_id   TEXT NOT NULL,
			attempt_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_level_events_level_ts ON level_events(level_id, ts DESC);
	`)
	return err
}

// Append inserts an event.
func (s *Store) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, attemptID string) error {
	var fieldsJSON sql.NullString
	if fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("marshal fields: %w", err)
		}
		fieldsJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.sqlDB.Exec(
		`INSERT INTO level_events (ts, level, event, msg, fields, level_id, attempt_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		toMillis(ts), level, event, nullString(msg), fieldsJSON, s.levelID, nullString(attemptID),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Query returns the last N events for the level, newest first.
func (s *Store) Query(limit int) ([]storage.EventRow, error) {
	limit = storage.ClampLimit(limit)
	rows, err := s.sqlDB.Query(
		`SELECT event_id, ts, level, event, msg, fields, level_id, attempt_id
		 FROM level_events
		 WHERE level_id = ?
		 ORDER BY ts DESC, event_id DESC
		 LIMIT ?`,
		s.levelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []storage.EventRow
	for rows.Next() {
		var (
			e                      storage.EventRow
			ts                     int64
			msg, fields, attemptID sql.NullString
		)
		if err := rows.Scan(&e.EventID, &ts, &e.Level, &e.Event, &msg, &fields, &e.LevelID, &attemptID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Timestamp = fromMillis(ts)
		if msg.Valid {
			e.Message = &msg.String
		}
		if attemptID.Valid {
			e.AttemptID = &attemptID.String
		}
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal fields: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
