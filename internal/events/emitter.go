package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AaronLay10/Choreo/internal/storage"
)

const historySize = 256

var buffer = newHistory(historySize)

var (
	journal       storage.Journal
	attemptID     string
	journalMu     sync.RWMutex
	journalFailed bool
)

// SetJournal sets the sink events are persisted to. Passing nil disables
// persistence.
func SetJournal(j storage.Journal) {
	journalMu.Lock()
	journal = j
	journalFailed = false
	journalMu.Unlock()
}

// GetJournal returns the current sink (for API queries).
func GetJournal() storage.Journal {
	journalMu.RLock()
	defer journalMu.RUnlock()
	return journal
}

// SetAttempt tags subsequently journaled events with a level attempt id.
func SetAttempt(id string) {
	journalMu.Lock()
	attemptID = id
	journalMu.Unlock()
}

// JournalHealthy reports whether the last append succeeded (true when no
// journal is configured).
func JournalHealthy() bool {
	journalMu.RLock()
	defer journalMu.RUnlock()
	return !journalFailed
}

// Event is one lifecycle record. Seq orders events within a process.
type Event struct {
	Seq       uint64                 `json:"seq"`
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	e = buffer.record(e)
	broadcast(e)

	journalMu.RLock()
	sink := journal
	attempt := attemptID
	failed := journalFailed
	journalMu.RUnlock()

	if sink != nil {
		err := sink.Append(ts, level, name, msg, fields, attempt)
		switch {
		case err != nil && !failed:
			journalMu.Lock()
			journalFailed = true
			journalMu.Unlock()
			// Straight into the buffer: going through Emit would recurse while
			// the sink keeps failing.
			buffer.record(Event{
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
				Level:     "error",
				Name:      "system.error",
				Message:   "journal append failed",
				Fields: map[string]interface{}{
					"error": err.Error(),
				},
			})
		case err == nil && failed:
			journalMu.Lock()
			journalFailed = false
			journalMu.Unlock()
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return b, nil
}

// Snapshot returns the buffered events, oldest first.
func Snapshot() []Event {
	return buffer.snapshot()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.clear()
}

// TotalCount returns the number of events emitted since startup.
func TotalCount() uint64 {
	return buffer.total()
}
