package events

import "testing"

func TestRecentEvents(t *testing.T) {
	Clear()
	for i := 0; i < 10; i++ {
		Emit("info", "phase.started", "", map[string]interface{}{"i": i})
	}

	recent := RecentEvents(5)
	if len(recent) != 5 {
		t.Fatalf("expected 5 recent events, got %d", len(recent))
	}
	if recent[0].Fields["i"] != 5 {
		t.Errorf("expected first recent event i=5, got %v", recent[0].Fields["i"])
	}
	if len(RecentEvents(100)) != 10 || len(RecentEvents(0)) != 10 {
		t.Error("expected all 10 events for oversized or zero n")
	}
}

func TestHistoryWrapsAndKeepsOrder(t *testing.T) {
	h := newHistory(3)
	for i := 0; i < 5; i++ {
		h.record(Event{Name: "trigger.fired"})
	}

	got := h.snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 buffered events, got %d", len(got))
	}
	for i, want := range []uint64{3, 4, 5} {
		if got[i].Seq != want {
			t.Errorf("event %d: expected seq %d, got %d", i, want, got[i].Seq)
		}
	}
	if h.total() != 5 {
		t.Errorf("expected total 5, got %d", h.total())
	}
}

func TestHistorySince(t *testing.T) {
	h := newHistory(3)
	for i := 0; i < 5; i++ {
		h.record(Event{Name: "trigger.fired"})
	}

	tests := []struct {
		name         string
		seq          uint64
		wantLen      int
		wantComplete bool
	}{
		{"caught up", 5, 0, true},
		{"one behind", 4, 1, true},
		{"oldest buffered", 2, 3, true},
		{"evicted", 1, 3, false},
		{"ahead", 9, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, complete := h.since(tt.seq)
			if len(got) != tt.wantLen || complete != tt.wantComplete {
				t.Errorf("since(%d) = %d events, complete=%v; want %d, %v", tt.seq, len(got), complete, tt.wantLen, tt.wantComplete)
			}
		})
	}

	h.clear()
	if got, complete := h.since(4); len(got) != 0 || complete {
		t.Errorf("expected cleared history to report a gap, got %d events complete=%v", len(got), complete)
	}
	if e := h.record(Event{}); e.Seq != 6 {
		t.Errorf("expected sequence to continue at 6, got %d", e.Seq)
	}
}
