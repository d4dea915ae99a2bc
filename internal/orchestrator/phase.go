package orchestrator

import "github.com/AaronLay10/Choreo/internal/state"

// Phase is one gameplay beat: actions run on start plus trigger bindings
// armed on start. Phases are chained through SetNextPhase.
type Phase struct {
	name     string
	d        *Director
	onStart  []Action
	bindings []*binding
	finished []Action
	next     *Phase
	snapshot *state.Snapshot
	state    PhaseState
	runs     int
	linked   bool
}

// Execute registers actions run, in order, every time the phase starts.
func (p *Phase) Execute(actions ...Action) *Phase {
	p.onStart = append(p.onStart, actions...)
	return p
}

// When registers a trigger armed when the phase starts.
func (p *Phase) When(t Trigger) *WhenStage {
	b := newBinding(p.d, p.name, t)
	p.bindings = append(p.bindings, b)
	return &WhenStage{b: b}
}

// OnFinished registers actions run when the director advances past the
// phase.
func (p *Phase) OnFinished(actions ...Action) *Phase {
	p.finished = append(p.finished, actions...)
	return p
}

// SetNextPhase links the successor.
func (p *Phase) SetNextPhase(next *Phase) {
	p.next = next
}

// Next returns the successor, or nil.
func (p *Phase) Next() *Phase { return p.next }

// Name returns the phase name.
func (p *Phase) Name() string { return p.name }

// State returns the lifecycle state.
func (p *Phase) State() PhaseState { return p.state }

// Start runs the start actions, then arms every binding, tracking stop
// conditions first. A start action that moves the director elsewhere
// (advance, reset) leaves the bindings of this run unarmed.
func (p *Phase) Start() {
	p.runs++
	run := p.runs
	p.state = PhaseActive
	p.d.emit("phase.started", map[string]interface{}{"phase": p.name, "run": run})
	p.d.logger.Info("phase started", "phase", p.name)

	for _, a := range p.onStart {
		a(p.d)
	}
	for _, b := range p.bindings {
		if p.runs != run || p.state != PhaseActive {
			return
		}
		b.start()
	}
}

// Reset restores the store to the snapshot taken just before this phase
// last became current, then starts it again. It is a no-op without a
// snapshot or when the phase is not the director's current phase.
func (p *Phase) Reset() {
	if p.snapshot == nil {
		return
	}
	if p != p.d.current {
		p.d.logger.Warn("ignoring reset of phase that is not current", "phase", p.name)
		return
	}
	p.cancel()
	p.d.store.Restore(p.snapshot)
	p.d.resubscribeAdHoc()
	p.d.emit("phase.reset", map[string]interface{}{"phase": p.name})
	p.Start()
}

func (p *Phase) cancel() {
	for _, b := range p.bindings {
		b.cancel()
	}
}

func (p *Phase) finish() {
	p.state = PhaseCompleted
	p.cancel()
	p.d.emit("phase.completed", map[string]interface{}{"phase": p.name})
	for _, a := range p.finished {
		a(p.d)
	}
}
