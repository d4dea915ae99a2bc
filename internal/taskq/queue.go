// Package taskq provides the simulated clock that drives timer triggers and
// the inbox that moves work from network goroutines onto the tick goroutine.
package taskq

import (
	"container/heap"
	"time"
)

// Task is a scheduled callback.
type Task struct {
	due       time.Duration
	seq       uint64
	fn        func()
	index     int
	cancelled bool
	done      bool
	deferred  bool
}

// Cancel prevents the task from running. Cancelling twice, or after the
// task ran, is a no-op. It reports whether this call cancelled a pending task.
func (t *Task) Cancel() bool {
	if t == nil || t.cancelled || t.done {
		return false
	}
	t.cancelled = true
	return true
}

// Due returns the clock time the task is scheduled for.
func (t *Task) Due() time.Duration { return t.due }

// Pending reports whether the task is still waiting to run.
func (t *Task) Pending() bool { return t != nil && !t.cancelled && !t.done }

// Queue is a simulated clock with a task queue. It is advanced explicitly by
// the host once per frame and is not safe for concurrent use.
type Queue struct {
	now       time.Duration
	seq       uint64
	tasks     taskHeap
	advancing bool
}

// New creates a queue whose clock starts at zero.
func New() *Queue {
	return &Queue{}
}

// Now returns the current simulated time.
func (q *Queue) Now() time.Duration { return q.now }

// After schedules fn to run once the clock has advanced by d.
// Non-positive durations run on the next Advance. That holds for tasks
// scheduled by a running task too, so a task that keeps rescheduling itself
// with no delay runs once per Advance.
func (q *Queue) After(d time.Duration, fn func()) *Task {
	if d < 0 {
		d = 0
	}
	q.seq++
	t := &Task{due: q.now + d, seq: q.seq, fn: fn, deferred: d == 0 && q.advancing}
	heap.Push(&q.tasks, t)
	return t
}

// Advance moves the clock forward by dt and runs every task that falls due,
// ordered by due time then scheduling order. While a task runs the clock
// reads its due time, so tasks it schedules are relative to that instant and
// run in this call if they fall inside the window.
func (q *Queue) Advance(dt time.Duration) int {
	if dt < 0 {
		dt = 0
	}
	target := q.now + dt
	ran := 0
	var held []*Task
	q.advancing = true
	for q.tasks.Len() > 0 {
		next := q.tasks[0]
		if next.due > target {
			break
		}
		heap.Pop(&q.tasks)
		if next.cancelled {
			continue
		}
		if next.deferred {
			held = append(held, next)
			continue
		}
		if next.due > q.now {
			q.now = next.due
		}
		next.done = true
		next.fn()
		ran++
	}
	q.advancing = false
	for _, t := range held {
		t.deferred = false
		heap.Push(&q.tasks, t)
	}
	q.now = target
	return ran
}

// Pending returns the number of scheduled tasks that have not been cancelled.
func (q *Queue) Pending() int {
	n := 0
	for _, t := range q.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*Task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
