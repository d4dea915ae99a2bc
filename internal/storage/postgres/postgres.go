package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/AaronLay10/Choreo/internal/storage"
)

// Config holds connection settings.
type Config struct {
	Host     string
	Port     string
	User     string
	Database string
	Password string
	SSLMode  string
}

// ConnString renders a lib/pq connection string.
func (c Config) ConnString() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	if c.Password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, sslmode)
}

// Client journals events to Postgres, scoped to one level id.
type Client struct {
	db      *sql.DB
	levelID string
}

var _ storage.Journal = (*Client)(nil)

// New connects and ensures the events table exists.
func New(cfg Config, levelID string) (*Client, error) {
	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:      db,
		levelID: levelID,
	}

	if err := client.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	return client, nil
}

func (c *Client) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS level_events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			level_id   TEXT NOT NULL,
			attempt_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_level_events_ts ON level_events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_level_events_level_id ON level_events(level_id);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts an event.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, attemptID string) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	query := `
		INSERT INTO level_events (ts, level, event, msg, fields, level_id, attempt_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = c.db.Exec(query, ts, level, event, nullable(msg), fieldsJSON, c.levelID, nullable(attemptID))
	return err
}

// Query returns the last N events for the level, newest first.
func (c *Client) Query(limit int) ([]storage.EventRow, error) {
	limit = storage.ClampLimit(limit)

	query := `
		SELECT event_id, ts, level, event, msg, fields, level_id, attempt_id
		FROM level_events
		WHERE level_id = $1
		ORDER BY ts DESC, event_id DESC
		LIMIT $2
	`
	rows, err := c.db.Query(query, c.levelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []storage.EventRow
	for rows.Next() {
		var e storage.EventRow
		var fieldsJSON []byte
		var msg, attemptID sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.LevelID, &attemptID); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if attemptID.Valid {
			e.AttemptID = &attemptID.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
