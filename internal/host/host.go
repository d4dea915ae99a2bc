// Package host drives a Director from wall-clock time.
package host

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AaronLay10/Choreo/internal/orchestrator"
)

// DefaultTickRate is used when Run is given a non-positive rate.
const DefaultTickRate = 50 * time.Millisecond

// ErrNoDirector is returned by Do before a director has been set.
var ErrNoDirector = errors.New("no director running")

// Runner owns the tick goroutine. The director it drives can be swapped
// while running, which is how level hot reload works.
type Runner struct {
	mu       sync.RWMutex
	director *orchestrator.Director
	tickRate time.Duration
	logger   *log.Logger
	now      func() time.Time
}

// NewRunner creates a runner for d.
func NewRunner(d *orchestrator.Director, tickRate time.Duration) *Runner {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	return &Runner{
		director: d,
		tickRate: tickRate,
		logger:   log.Default().WithPrefix("host"),
		now:      time.Now,
	}
}

// Director returns the director currently being driven.
func (r *Runner) Director() *orchestrator.Director {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.director
}

// Replace swaps in d. Commands already posted to the old director are
// dropped.
func (r *Runner) Replace(d *orchestrator.Director) {
	r.mu.Lock()
	old := r.director
	r.director = d
	r.mu.Unlock()
	if old != nil && old.PendingCommands() > 0 {
		r.logger.Warn("dropping queued commands on replace", "count", old.PendingCommands())
	}
}

// Post queues cmd on the current director. Without a director the command
// is dropped.
func (r *Runner) Post(cmd func(*orchestrator.Director)) {
	d := r.Director()
	if d == nil {
		r.logger.Debug("no director, dropping command")
		return
	}
	d.Post(cmd)
}

// Do runs fn on the tick goroutine and waits for it.
func (r *Runner) Do(ctx context.Context, fn func(*orchestrator.Director)) error {
	d := r.Director()
	if d == nil {
		return ErrNoDirector
	}
	return d.Do(ctx, fn)
}

// Run ticks the director every tick interval until ctx ends. Each tick
// advances the clock by the measured wall time since the previous one, so
// a slow tick does not stretch level time.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tickRate)
	defer ticker.Stop()

	r.logger.Info("tick loop started", "rate", r.tickRate)
	last := r.now()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("tick loop stopped")
			return ctx.Err()
		case <-ticker.C:
			now := r.now()
			dt := now.Sub(last)
			last = now
			if dt < 0 {
				dt = 0
			}
			if d := r.Director(); d != nil {
				d.Tick(dt)
			}
		}
	}
}

// Run drives d at tickRate until ctx ends.
func Run(ctx context.Context, d *orchestrator.Director, tickRate time.Duration) error {
	return NewRunner(d, tickRate).Run(ctx)
}
