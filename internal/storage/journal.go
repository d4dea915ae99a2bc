// Package storage defines the journal sink that lifecycle events are
// appended to. Drivers live in the postgres and sqlite subpackages.
package storage

import "time"

// EventRow represents a journaled event.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	LevelID   string                 `json:"level_id"`
	AttemptID *string                `json:"attempt_id,omitempty"`
}

// Journal is an append-only event sink.
type Journal interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, attemptID string) error
	// Query returns the last limit events, newest first.
	Query(limit int) ([]EventRow, error)
	Close() error
}
