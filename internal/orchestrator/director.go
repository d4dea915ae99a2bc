package orchestrator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AaronLay10/Choreo/internal/events"
	"github.com/AaronLay10/Choreo/internal/state"
	"github.com/AaronLay10/Choreo/internal/taskq"
)

const (
	countdownPhaseName = "countdown"
	finishPhaseName    = "finish"

	// DefaultFinishScene is the scene the finish phase transitions to.
	DefaultFinishScene = "menu"
)

// Director owns the store for one level attempt and sequences its phases.
// All methods except Post and Do must be called on the tick goroutine.
type Director struct {
	store  *state.Store
	clock  *taskq.Queue
	inbox  taskq.Inbox[func(*Director)]
	logger *log.Logger

	levelID     string
	finishScene string
	resetHooks  []func()

	phases   []*Phase
	sequence []*Phase
	adhoc    []*binding
	current  *Phase
	prePhase *state.Snapshot

	started     bool
	finished    bool
	transitions int
	resets      int
	fires       int
}

// Option configures a Director.
type Option func(*Director)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Director) { d.logger = l }
}

// WithClock replaces the task queue timers are scheduled on.
func WithClock(q *taskq.Queue) Option {
	return func(d *Director) { d.clock = q }
}

// WithFinishScene sets the scene the finish phase transitions to.
func WithFinishScene(scene string) Option {
	return func(d *Director) { d.finishScene = scene }
}

// WithLevelID tags journal events.
func WithLevelID(id string) Option {
	return func(d *Director) { d.levelID = id }
}

// WithResetHook registers a function run on Reset before the store is
// restored, for clearing collaborators owned by the host.
func WithResetHook(fn func()) Option {
	return func(d *Director) { d.resetHooks = append(d.resetHooks, fn) }
}

// New creates a director around store.
func New(store *state.Store, opts ...Option) *Director {
	d := &Director{
		store:       store,
		clock:       taskq.New(),
		logger:      log.Default().WithPrefix("director"),
		finishScene: DefaultFinishScene,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewPhase creates a phase owned by this director.
func (d *Director) NewPhase(name string) *Phase {
	p := d.newPhase(name)
	d.phases = append(d.phases, p)
	return p
}

func (d *Director) newPhase(name string) *Phase {
	return &Phase{name: name, d: d, state: PhaseIdle}
}

// SetPhaseSequence links phases into a chain in the given order. Later
// calls extend the chain. A phase already linked into the chain is skipped
// so the chain cannot loop.
func (d *Director) SetPhaseSequence(phases ...*Phase) {
	for _, p := range phases {
		if p == nil {
			continue
		}
		if p.linked {
			d.logger.Warn("phase already in sequence, skipping", "phase", p.name)
			d.emit("phase.skipped", map[string]interface{}{"phase": p.name, "reason": "duplicate"})
			continue
		}
		p.linked = true
		if n := len(d.sequence); n > 0 {
			d.sequence[n-1].SetNextPhase(p)
		}
		d.sequence = append(d.sequence, p)
	}
}

// Start begins the level. With a positive lead-in a countdown phase runs
// first, ticking the countdown key once per second. A finish phase that
// hands off to the finish scene is always appended. Starting twice is a
// no-op.
func (d *Director) Start(leadIn time.Duration) {
	if d.started {
		return
	}
	d.started = true

	seq := d.sequence
	if len(seq) == 0 {
		d.SetPhaseSequence(d.phases...)
		seq = d.sequence
	}
	if leadIn > 0 {
		cd := d.countdownPhase(leadIn)
		if len(seq) > 0 {
			cd.SetNextPhase(seq[0])
		}
		seq = append([]*Phase{cd}, seq...)
	}
	fin := d.finishPhase()
	if n := len(seq); n > 0 {
		seq[n-1].SetNextPhase(fin)
	}
	seq = append(seq, fin)

	d.emit("level.started", map[string]interface{}{"phases": len(seq), "lead_in": leadIn.Seconds()})
	d.logger.Info("level started", "level", d.levelID, "phases", len(seq))

	first := seq[0]
	d.SetNextPhase(first)
	first.Start()
}

func (d *Director) countdownPhase(leadIn time.Duration) *Phase {
	secs := int(math.Ceil(leadIn.Seconds()))
	p := d.newPhase(countdownPhaseName)
	p.Execute(
		Set(state.KeyCountdown, state.Int(secs)),
		Message(fmt.Sprint(secs)),
	)
	p.When(After(time.Second)).
		Execute(Add(state.KeyCountdown, -1), countdownMessage).
		Until(Predicate(func(s *state.Store) bool { return s.Int(state.KeyCountdown, 0) <= 0 })).
		ThenAdvance()
	return p
}

func countdownMessage(d *Director) {
	if n := d.store.Int(state.KeyCountdown, 0); n > 0 {
		d.store.Set(state.KeyMessage, state.Payload{Data: fmt.Sprint(n)})
		return
	}
	d.store.Set(state.KeyMessage, state.Payload{Data: "GO"})
}

func (d *Director) finishPhase() *Phase {
	p := d.newPhase(finishPhaseName)
	p.Execute(
		Set(state.KeyLevelComplete, state.Bool(true)),
		Set(state.KeySceneTransition, state.Payload{Data: d.finishScene}),
		func(d *Director) {
			d.finished = true
			d.emit("level.finished", map[string]interface{}{"scene": d.finishScene})
			d.logger.Info("level finished", "level", d.levelID, "scene", d.finishScene)
		},
	)
	return p
}

// SetNextPhase makes p current and snapshots the store as p's pre-phase
// state, used by later resets.
func (d *Director) SetNextPhase(p *Phase) {
	d.store.Set(state.KeyPhase, state.Payload{Data: p.name})
	snap := d.store.Snapshot()
	p.snapshot = snap
	d.prePhase = snap
	d.current = p
	d.transitions++
}

// Advance finishes the current phase and starts its successor. It is a
// no-op when the current phase is not active.
func (d *Director) Advance() {
	cur := d.current
	if cur == nil || cur.state != PhaseActive {
		return
	}
	cur.finish()
	next := cur.next
	if next == nil {
		d.logger.Warn("phase has no successor", "phase", cur.name)
		return
	}
	d.SetNextPhase(next)
	next.Start()
}

// Reset rolls the current phase back to its pre-phase snapshot, carrying
// player experience forward, and starts it again. Collaborators are told
// through the level_reset key and reset hooks before the rollback. Ad hoc
// bindings survive.
func (d *Director) Reset() {
	if d.current == nil || d.prePhase == nil {
		return
	}
	d.resets++
	d.store.Inform(state.KeyLevelReset)
	for _, fn := range d.resetHooks {
		fn()
	}
	d.current.cancel()
	d.store.Restore(d.prePhase)
	d.resubscribeAdHoc()
	d.emit("level.reset", map[string]interface{}{"phase": d.current.name, "resets": d.resets})
	d.logger.Info("level reset", "phase", d.current.name, "resets", d.resets)
	d.current.Start()
}

// When registers an ad hoc binding outside the phase sequence and arms it
// immediately. Ad hoc bindings survive resets and phase transitions.
func (d *Director) When(t Trigger) *WhenStage {
	b := newBinding(d, "adhoc", t)
	d.adhoc = append(d.adhoc, b)
	b.start()
	return &WhenStage{b: b}
}

func (d *Director) resubscribeAdHoc() {
	for _, b := range d.adhoc {
		b.resubscribe()
	}
}

// Tick runs queued commands, then advances the clock by dt.
func (d *Director) Tick(dt time.Duration) {
	for _, cmd := range d.inbox.Drain() {
		cmd(d)
	}
	d.clock.Advance(dt)
}

// Post queues cmd to run on the next Tick. Safe from any goroutine.
func (d *Director) Post(cmd func(*Director)) {
	d.inbox.Post(cmd)
}

// Do posts fn and waits until it has run on the tick goroutine. If ctx ends
// first, fn may still run later.
func (d *Director) Do(ctx context.Context, fn func(*Director)) error {
	done := make(chan struct{})
	d.Post(func(d *Director) {
		fn(d)
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Director) Store() *state.Store { return d.store }
func (d *Director) Clock() *taskq.Queue { return d.clock }
func (d *Director) Logger() *log.Logger { return d.logger }
func (d *Director) Current() *Phase { return d.current }
func (d *Director) LevelID() string { return d.levelID }
func (d *Director) Phases() []*Phase { return d.phases }
func (d *Director) PendingCommands() int { return d.inbox.Len() }

// Stats summarizes the director.
func (d *Director) Stats() Stats {
	st := Stats{
		LevelID:     d.levelID,
		Transitions: d.transitions,
		Resets:      d.resets,
		Fires:       d.fires,
		Pending:     d.clock.Pending(),
		Clock:       d.clock.Now(),
		Started:     d.started,
		Finished:    d.finished,
	}
	if d.current != nil {
		st.Phase = d.current.name
		st.PhaseState = d.current.state
	}
	return st
}

func (d *Director) emit(name string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	if d.levelID != "" {
		fields["level_id"] = d.levelID
	}
	if _, err := events.Emit("info", name, "", fields); err != nil {
		d.logger.Error("emit failed", "event", name, "err", err)
	}
}
