package orchestrator

import (
	"github.com/charmbracelet/log"

	"github.com/AaronLay10/Choreo/internal/state"
)

// StopCondition bounds how often a repeating binding fires. StartTracking
// captures a baseline when the binding starts; Satisfied must be pure.
type StopCondition interface {
	StartTracking(s *state.Store)
	Satisfied(s *state.Store) bool
}

// CountStop is satisfied once an int key has grown by threshold since
// tracking started.
//
// A key that was never set reads as 0 at tracking time, so the threshold is
// then counted from zero rather than from whatever value arrives first.
type CountStop struct {
	key       state.Key
	threshold int
	baseline  int
}

// CountReached returns a counter stop condition.
func CountReached(key state.Key, threshold int) *CountStop {
	return &CountStop{key: key, threshold: threshold}
}

func (c *CountStop) StartTracking(s *state.Store) {
	c.baseline = s.Int(c.key, 0)
}

func (c *CountStop) Satisfied(s *state.Store) bool {
	return s.Int(c.key, 0)-c.baseline >= c.threshold
}

// Baseline returns the value captured by the last StartTracking.
func (c *CountStop) Baseline() int { return c.baseline }

type predicateStop func(*state.Store) bool

func (predicateStop) StartTracking(*state.Store) {}

func (p predicateStop) Satisfied(s *state.Store) bool { return p(s) }

// Predicate returns a stop condition backed by a pure function of the store.
func Predicate(fn func(*state.Store) bool) StopCondition {
	return predicateStop(fn)
}

// Never is never satisfied: the binding re-arms after every firing.
func Never() StopCondition {
	return predicateStop(func(*state.Store) bool { return false })
}

// ExprStop evaluates a tengo expression over the store. Each set key is
// bound by wire name, and its value at tracking time as base_<name>.
type ExprStop struct {
	src      string
	prog     *program
	baseline map[string]any
}

// Expr returns an expression stop condition. An expression that does not
// compile is never satisfied.
func Expr(expr string) *ExprStop {
	prog, err := compileExpr(expr, storeVarNames())
	if err != nil {
		log.Error("stop expression rejected", "expr", expr, "err", err)
	}
	return &ExprStop{src: expr, prog: prog}
}

func (e *ExprStop) StartTracking(s *state.Store) {
	e.baseline = exportStore(s)
}

func (e *ExprStop) Satisfied(s *state.Store) bool {
	if e.prog == nil {
		return false
	}
	vars := make(map[string]any, 2*len(state.Keys()))
	current := exportStore(s)
	for _, k := range state.Keys() {
		name := k.String()
		vars[name] = current[name]
		vars["base_"+name] = e.baseline[name]
	}
	ok, err := e.prog.eval(vars)
	if err != nil {
		log.Warn("stop expression failed", "expr", e.src, "err", err)
		return false
	}
	return ok
}

func exportStore(s *state.Store) map[string]any {
	out := make(map[string]any)
	for _, k := range state.Keys() {
		if v, ok := s.Get(k); ok {
			out[k.String()] = state.Export(v)
		}
	}
	return out
}
