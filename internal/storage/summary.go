package storage

import "time"

// DefaultQueryLimit is used when a caller passes a non-positive limit.
const DefaultQueryLimit = 200

// MaxQueryLimit caps a single query.
const MaxQueryLimit = 10000

// ClampLimit normalizes a query limit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}

// Attempt summarizes one play-through of a level, from level.started to
// level.finished or the next level.started.
type Attempt struct {
	AttemptID string        `json:"attempt_id,omitempty"`
	LevelID   string        `json:"level_id"`
	Started   time.Time     `json:"started"`
	Ended     time.Time     `json:"ended,omitempty"`
	Phases    []string      `json:"phases"`
	Resets    int           `json:"resets"`
	Fires     int           `json:"fires"`
	Finished  bool          `json:"finished"`
	Duration  time.Duration `json:"duration"`
}

// LastPhase returns the furthest phase reached, or "".
func (a *Attempt) LastPhase() string {
	if len(a.Phases) == 0 {
		return ""
	}
	return a.Phases[len(a.Phases)-1]
}

// Summarize replays journal rows (as returned by Query, newest first) into
// per-attempt summaries in chronological order. Rows before the first
// level.started are ignored.
func Summarize(rows []EventRow) []Attempt {
	// Query returns DESC; replay in chronological order.
	ordered := make([]EventRow, len(rows))
	for i, row := range rows {
		ordered[len(rows)-1-i] = row
	}

	var attempts []Attempt
	var cur *Attempt
	closeCurrent := func(end time.Time) {
		if cur == nil {
			return
		}
		cur.Ended = end
		cur.Duration = end.Sub(cur.Started)
		attempts = append(attempts, *cur)
		cur = nil
	}

	for _, row := range ordered {
		switch row.Event {
		case "level.started":
			closeCurrent(row.Timestamp)
			cur = &Attempt{LevelID: row.LevelID, Started: row.Timestamp}
			if row.AttemptID != nil {
				cur.AttemptID = *row.AttemptID
			}

		case "phase.started":
			if cur == nil {
				continue
			}
			if name, ok := row.Fields["phase"].(string); ok && name != cur.LastPhase() {
				cur.Phases = append(cur.Phases, name)
			}

		case "level.reset":
			if cur != nil {
				cur.Resets++
			}

		case "trigger.fired":
			if cur != nil {
				cur.Fires++
			}

		case "level.finished":
			if cur != nil {
				cur.Finished = true
				closeCurrent(row.Timestamp)
			}
		}
	}

	if cur != nil {
		attempts = append(attempts, *cur)
	}
	return attempts
}
