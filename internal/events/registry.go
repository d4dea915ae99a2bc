package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// level
	"level.loaded":   {},
	"level.started":  {},
	"level.finished": {},
	"level.reset":    {},
	"level.reloaded": {},

	// phase
	"phase.started":   {},
	"phase.completed": {},
	"phase.reset":     {},
	"phase.skipped":   {},
	"phase.stalled":   {},

	// trigger
	"trigger.armed":     {},
	"trigger.fired":     {},
	"trigger.cancelled": {},
	"trigger.stopped":   {},

	// operator
	"operator.reset":   {},
	"operator.advance": {},
	"operator.inform":  {},

	// collaborator
	"collaborator.input":        {},
	"collaborator.error":        {},
	"collaborator.registered":   {},
	"collaborator.rejected":     {},
	"collaborator.disconnected": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
