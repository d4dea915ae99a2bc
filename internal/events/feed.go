package events

import (
	"strings"
	"sync"
	"sync/atomic"
)

const subscriptionBuffer = 64

// Subscription is a live feed of events, optionally narrowed to event-name
// prefixes. Events that arrive while C is full are dropped and counted
// rather than blocking Emit on the tick goroutine.
type Subscription struct {
	C        chan Event
	prefixes []string
	dropped  atomic.Uint64
}

// Wants reports whether an event called name passes the prefix filter. A
// subscription without prefixes wants everything.
func (s *Subscription) Wants(name string) bool {
	if len(s.prefixes) == 0 {
		return true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Dropped returns how many wanted events this subscription missed.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

type feed struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	dropped atomic.Uint64
}

var live = &feed{subs: make(map[*Subscription]struct{})}

// Subscribe opens a live feed. Blank prefixes are ignored.
func Subscribe(prefixes ...string) *Subscription {
	s := &Subscription{C: make(chan Event, subscriptionBuffer)}
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			s.prefixes = append(s.prefixes, p)
		}
	}
	live.mu.Lock()
	live.subs[s] = struct{}{}
	live.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. It is a no-op for a
// subscription already closed by CloseAllSubscribers.
func Unsubscribe(s *Subscription) {
	live.mu.Lock()
	defer live.mu.Unlock()
	if _, ok := live.subs[s]; !ok {
		return
	}
	delete(live.subs, s)
	close(s.C)
}

// CloseAllSubscribers closes every feed so stream writers return on
// shutdown.
func CloseAllSubscribers() {
	live.mu.Lock()
	defer live.mu.Unlock()
	for s := range live.subs {
		delete(live.subs, s)
		close(s.C)
	}
}

func broadcast(e Event) {
	live.mu.RLock()
	defer live.mu.RUnlock()

	for s := range live.subs {
		if !s.Wants(e.Name) {
			continue
		}
		select {
		case s.C <- e:
		default:
			s.dropped.Add(1)
			live.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of open feeds.
func SubscriberCount() int {
	live.mu.RLock()
	defer live.mu.RUnlock()
	return len(live.subs)
}

// DroppedCount returns the number of events dropped across all feeds since
// startup.
func DroppedCount() uint64 { return live.dropped.Load() }

// RecentEvents returns the last n buffered events, or all of them when n is
// not positive or exceeds what is buffered.
func RecentEvents(n int) []Event {
	return buffer.last(n)
}

// Since returns buffered events with a sequence number above seq. complete
// is false when events after seq are no longer buffered.
func Since(seq uint64) (evts []Event, complete bool) {
	return buffer.since(seq)
}
