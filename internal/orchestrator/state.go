package orchestrator

import "time"

// PhaseState represents the lifecycle state of a phase.
type PhaseState string

const (
	PhaseIdle      PhaseState = "idle"
	PhaseActive    PhaseState = "active"
	PhaseCompleted PhaseState = "completed"
)

// Stats is a point-in-time summary of a director. Read it on the tick
// goroutine (or through Do).
type Stats struct {
	LevelID     string        `json:"level_id"`
	Phase       string        `json:"phase"`
	PhaseState  PhaseState    `json:"phase_state"`
	Transitions int           `json:"transitions"`
	Resets      int           `json:"resets"`
	Fires       int           `json:"fires"`
	Pending     int           `json:"pending_tasks"`
	Clock       time.Duration `json:"clock"`
	Started     bool          `json:"started"`
	Finished    bool          `json:"finished"`
}
