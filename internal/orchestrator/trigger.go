package orchestrator

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AaronLay10/Choreo/internal/state"
	"github.com/AaronLay10/Choreo/internal/taskq"
)

// Trigger waits for a condition and then calls fire. Each arming fires at
// most once; repetition is done by arming again. Cancelling an unarmed or
// already fired trigger is a no-op.
//
// A trigger instance belongs to a single binding.
type Trigger interface {
	Arm(d *Director, fire func())
	Cancel()
}

// resubscriber is implemented by triggers that hold store subscriptions and
// must re-establish them after the listener map is restored.
type resubscriber interface {
	resubscribe(s *state.Store)
}

// TimerTrigger fires once a fixed delay of simulated time has elapsed.
type TimerTrigger struct {
	delay time.Duration
	task  *taskq.Task
}

// After returns a timer trigger.
func After(d time.Duration) *TimerTrigger {
	return &TimerTrigger{delay: d}
}

func (t *TimerTrigger) Arm(d *Director, fire func()) {
	t.task.Cancel()
	var task *taskq.Task
	task = d.Clock().After(t.delay, func() {
		task.Cancel()
		if t.task == task {
			t.task = nil
		}
		fire()
	})
	t.task = task
}

func (t *TimerTrigger) Cancel() {
	t.task.Cancel()
	t.task = nil
}

func (t *TimerTrigger) String() string {
	return fmt.Sprintf("after(%s)", t.delay)
}

// KeyTrigger fires on the first notification of its key, received while
// armed, that passes its condition. It stays subscribed for the lifetime of
// the store and ignores notifications while disarmed.
type KeyTrigger struct {
	key   state.Key
	cond  func(state.Value) bool
	desc  string
	fire  func()
	armed bool
}

// OnKey fires on any notification of key.
func OnKey(key state.Key) *KeyTrigger {
	return &KeyTrigger{key: key, desc: fmt.Sprintf("on(%s)", key)}
}

// OnKeyWhere fires on a notification of key whose value satisfies pred.
func OnKeyWhere(key state.Key, pred func(state.Value) bool) *KeyTrigger {
	return &KeyTrigger{key: key, cond: pred, desc: fmt.Sprintf("on(%s, where)", key)}
}

// OnKeyAtLeast fires once the key's numeric value reaches n.
func OnKeyAtLeast(key state.Key, n float64) *KeyTrigger {
	return &KeyTrigger{
		key:  key,
		desc: fmt.Sprintf("on(%s >= %g)", key, n),
		cond: func(v state.Value) bool {
			switch x := v.(type) {
			case state.Int:
				return float64(x) >= n
			case state.Float:
				return float64(x) >= n
			}
			return false
		},
	}
}

// OnKeyExpr fires on a notification of key for which the tengo expression
// is truthy. The notified value is bound as `value`. An expression that does
// not compile never fires.
func OnKeyExpr(key state.Key, expr string) *KeyTrigger {
	t := &KeyTrigger{key: key, desc: fmt.Sprintf("on(%s, %q)", key, expr)}
	prog, err := compileExpr(expr, []string{"value"})
	if err != nil {
		log.Error("key trigger expression rejected", "key", key, "err", err)
		t.cond = func(state.Value) bool { return false }
		return t
	}
	t.cond = func(v state.Value) bool {
		ok, err := prog.eval(map[string]any{"value": state.Export(v)})
		if err != nil {
			log.Warn("key trigger expression failed", "key", key, "err", err)
			return false
		}
		return ok
	}
	return t
}

func (t *KeyTrigger) Arm(d *Director, fire func()) {
	t.fire = fire
	t.armed = true
	t.resubscribe(d.Store())
}

func (t *KeyTrigger) resubscribe(s *state.Store) {
	if !s.Subscribed(t, t.key) {
		s.Subscribe(t, t.key)
	}
}

func (t *KeyTrigger) Receive(key state.Key, v state.Value) {
	if !t.armed || key != t.key {
		return
	}
	if t.cond != nil && !t.cond(v) {
		return
	}
	t.armed = false
	t.fire()
}

func (t *KeyTrigger) Cancel() {
	t.armed = false
}

func (t *KeyTrigger) String() string { return t.desc }

// SequenceTrigger arms its steps one after another and fires when the last
// one fires. An empty sequence fires as soon as it is armed.
type SequenceTrigger struct {
	steps []Trigger
	idx   int
	armed bool
	gen   int
}

// Sequence returns a composite trigger: Sequence(A, B) is "when A, then when B".
func Sequence(steps ...Trigger) *SequenceTrigger {
	return &SequenceTrigger{steps: steps}
}

func (s *SequenceTrigger) Arm(d *Director, fire func()) {
	s.Cancel()
	s.armed = true
	s.gen++
	s.armStep(d, 0, fire, s.gen)
}

func (s *SequenceTrigger) armStep(d *Director, i int, fire func(), gen int) {
	if !s.armed || gen != s.gen {
		return
	}
	if i >= len(s.steps) {
		s.armed = false
		fire()
		return
	}
	s.idx = i
	s.steps[i].Arm(d, func() { s.armStep(d, i+1, fire, gen) })
}

func (s *SequenceTrigger) resubscribe(st *state.Store) {
	if !s.armed || s.idx >= len(s.steps) {
		return
	}
	if r, ok := s.steps[s.idx].(resubscriber); ok {
		r.resubscribe(st)
	}
}

func (s *SequenceTrigger) Cancel() {
	if s.armed && s.idx < len(s.steps) {
		s.steps[s.idx].Cancel()
	}
	s.armed = false
}

func (s *SequenceTrigger) String() string {
	return fmt.Sprintf("sequence(%d)", len(s.steps))
}

func describe(t Trigger) string {
	if s, ok := t.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", t)
}
