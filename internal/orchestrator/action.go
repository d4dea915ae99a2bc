package orchestrator

import (
	"github.com/AaronLay10/Choreo/internal/state"
)

// Action is a unit of side-effecting work run on the tick goroutine when a
// binding fires or a phase starts. Outcomes are reported by writing keys.
type Action func(d *Director)

// Set writes a value.
func Set(key state.Key, v state.Value) Action {
	return func(d *Director) { d.Store().Set(key, v) }
}

// Inform sends a signal on key without storing it.
func Inform(key state.Key) Action {
	return func(d *Director) { d.Store().Inform(key) }
}

// InformValue sends v on key without storing it.
func InformValue(key state.Key, v state.Value) Action {
	return func(d *Director) { d.Store().InformValue(key, v) }
}

// Add increments an int key.
func Add(key state.Key, delta int) Action {
	return func(d *Director) { d.Store().Add(key, delta) }
}

// Message sets the HUD text.
func Message(text string) Action {
	return Set(state.KeyMessage, state.Payload{Data: text})
}

// GainExperience adds n experience to the player's progress.
func GainExperience(n int) Action {
	return func(d *Director) {
		d.Store().UpdateProgress(func(p *state.Progress) { p.Experience += n })
	}
}

// Advance finishes the current phase and starts the next.
func Advance() Action {
	return func(d *Director) { d.Advance() }
}

// Reset rolls the current phase back to its starting state.
func Reset() Action {
	return func(d *Director) { d.Reset() }
}

// Log writes an info line through the director's logger.
func Log(msg string, keyvals ...interface{}) Action {
	return func(d *Director) { d.Logger().Info(msg, keyvals...) }
}

// Do composes actions, running them in order.
func Do(actions ...Action) Action {
	return func(d *Director) {
		for _, a := range actions {
			a(d)
		}
	}
}
