package taskq

import (
	"sync"
	"testing"
	"time"
)

func TestAdvanceRunsDueTasksInOrder(t *testing.T) {
	q := New()
	var order []string
	q.After(2*time.Second, func() { order = append(order, "b") })
	q.After(1*time.Second, func() { order = append(order, "a") })
	q.After(2*time.Second, func() { order = append(order, "c") })
	q.After(5*time.Second, func() { order = append(order, "late") })

	ran := q.Advance(2 * time.Second)

	if ran != 3 {
		t.Errorf("expected 3 tasks to run, got %d", ran)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
	if q.Now() != 2*time.Second {
		t.Errorf("expected clock at 2s, got %v", q.Now())
	}
	if q.Pending() != 1 {
		t.Errorf("expected 1 pending task, got %d", q.Pending())
	}
}

func TestTaskSeesItsDueTime(t *testing.T) {
	q := New()
	var seen time.Duration
	q.After(3*time.Second, func() { seen = q.Now() })

	q.Advance(10 * time.Second)

	if seen != 3*time.Second {
		t.Errorf("expected task to observe 3s, got %v", seen)
	}
}

func TestTasksScheduledDuringAdvanceRunInWindow(t *testing.T) {
	q := New()
	var fired []time.Duration
	q.After(3*time.Second, func() {
		q.After(3*time.Second, func() { fired = append(fired, q.Now()) })
	})

	q.Advance(5999 * time.Millisecond)
	if len(fired) != 0 {
		t.Fatalf("expected nothing before 6s, got %v", fired)
	}

	q.Advance(time.Millisecond)
	if len(fired) != 1 || fired[0] != 6*time.Second {
		t.Errorf("expected one firing at 6s, got %v", fired)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	q := New()
	ran := false
	task := q.After(time.Second, func() { ran = true })

	if !task.Cancel() {
		t.Error("expected first cancel to report true")
	}
	if task.Cancel() {
		t.Error("expected second cancel to report false")
	}
	q.Advance(2 * time.Second)
	if ran {
		t.Error("expected cancelled task not to run")
	}
}

func TestCancelAfterRunIsNoop(t *testing.T) {
	q := New()
	task := q.After(0, func() {})
	q.Advance(0)
	if task.Pending() {
		t.Error("expected task to be done")
	}
	if task.Cancel() {
		t.Error("expected cancel after run to report false")
	}
	var nilTask *Task
	if nilTask.Cancel() {
		t.Error("expected nil cancel to be a no-op")
	}
}

func TestInboxDrainPreservesOrder(t *testing.T) {
	var in Inbox[int]
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			in.Post(n)
		}(i)
	}
	wg.Wait()

	if in.Len() != 4 {
		t.Fatalf("expected 4 items, got %d", in.Len())
	}
	items := in.Drain()
	if len(items) != 4 {
		t.Errorf("expected 4 drained items, got %d", len(items))
	}
	if in.Drain() != nil {
		t.Error("expected empty inbox after drain")
	}

	in.Post(1)
	in.Post(2)
	got := in.Drain()
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("expected FIFO order, got %v", got)
	}
}

func TestZeroDelayRescheduleWaitsForNextAdvance(t *testing.T) {
	q := New()
	runs := 0
	var again func()
	again = func() {
		runs++
		q.After(0, again)
	}
	q.After(0, again)

	if ran := q.Advance(time.Millisecond); ran != 1 {
		t.Fatalf("expected 1 task in first advance, got %d", ran)
	}
	if ran := q.Advance(time.Millisecond); ran != 1 {
		t.Fatalf("expected 1 task in second advance, got %d", ran)
	}
	if runs != 2 || q.Pending() != 1 {
		t.Errorf("expected 2 runs and 1 pending, got %d and %d", runs, q.Pending())
	}
}

func TestPositiveDelayRescheduleStillRunsInWindow(t *testing.T) {
	q := New()
	runs := 0
	var again func()
	again = func() {
		runs++
		q.After(time.Millisecond, again)
	}
	q.After(0, again)

	q.Advance(10 * time.Millisecond)
	if runs != 11 {
		t.Errorf("expected 11 runs at 0..10ms, got %d", runs)
	}
}
