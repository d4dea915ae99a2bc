package events

import "sync"

// history keeps the most recent events in emission order. Each recorded
// event gets the next sequence number so stream clients can resume after a
// reconnect.
type history struct {
	mu     sync.RWMutex
	events []Event
	next   int
	count  int
	seq    uint64
}

func newHistory(size int) *history {
	return &history{events: make([]Event, size)}
}

// record stamps e with a sequence number, stores it and returns the
// stamped copy.
func (h *history) record(e Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	e.Seq = h.seq
	h.events[h.next] = e
	h.next = (h.next + 1) % len(h.events)
	if h.count < len(h.events) {
		h.count++
	}
	return e
}

// ordered returns the buffered events oldest first. Callers hold mu.
func (h *history) ordered() []Event {
	out := make([]Event, 0, h.count)
	start := (h.next - h.count + len(h.events)) % len(h.events)
	for i := 0; i < h.count; i++ {
		out = append(out, h.events[(start+i)%len(h.events)])
	}
	return out
}

func (h *history) snapshot() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ordered()
}

func (h *history) last(n int) []Event {
	all := h.snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// since returns the buffered events recorded after seq. complete is false
// when some of them were already evicted or cleared.
func (h *history) since(seq uint64) (out []Event, complete bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	all := h.ordered()
	switch {
	case len(all) > 0:
		complete = all[0].Seq <= seq+1
	default:
		complete = h.seq <= seq
	}
	for _, e := range all {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out, complete
}

// clear drops buffered events. Sequence numbers keep counting.
func (h *history) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = make([]Event, len(h.events))
	h.next = 0
	h.count = 0
}

func (h *history) total() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}
