// Package state provides the reactive keyed store shared by a level attempt.
//
// A Store is not safe for concurrent use. Every read, write and notification
// happens on the host's tick goroutine; work arriving from other goroutines
// goes through taskq.Inbox first.
package state

import "time"

// Listener receives notifications for the keys it subscribed to.
type Listener interface {
	Receive(key Key, v Value)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(key Key, v Value)

func (f ListenerFunc) Receive(key Key, v Value) { f(key, v) }

// Store maps keys to values and fans out every write to the key's listeners
// in subscription order.
type Store struct {
	values    map[Key]Value
	listeners map[Key][]Listener
}

// New creates an empty store.
func New() *Store {
	return &Store{
		values:    make(map[Key]Value),
		listeners: make(map[Key][]Listener),
	}
}

// Set stores v under key and notifies the key's listeners before returning.
// Listeners are notified even when v equals the previous value.
func (s *Store) Set(key Key, v Value) {
	s.values[key] = v
	s.notify(key, v)
}

// Inform notifies listeners that something happened without storing anything.
func (s *Store) Inform(key Key) {
	s.notify(key, Bool(true))
}

// InformValue notifies listeners with v without storing it.
func (s *Store) InformValue(key Key, v Value) {
	s.notify(key, v)
}

func (s *Store) notify(key Key, v Value) {
	// Iterate the slice as it was at call time; listeners subscribing during
	// the fan-out see the next write, not this one.
	for _, l := range s.listeners[key] {
		l.Receive(key, v)
	}
}

// Subscribe appends l to key's listeners. Subscribing twice yields two
// notifications per write.
func (s *Store) Subscribe(l Listener, key Key) {
	s.listeners[key] = append(s.listeners[key], l)
}

// Subscribed reports whether l is currently in key's listener list.
// l must be of a comparable type.
func (s *Store) Subscribed(l Listener, key Key) bool {
	for _, existing := range s.listeners[key] {
		if existing == l {
			return true
		}
	}
	return false
}

// ListenerCount returns the number of subscriptions on key.
func (s *Store) ListenerCount(key Key) int {
	return len(s.listeners[key])
}

// Get returns the raw value stored under key.
func (s *Store) Get(key Key) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Int returns the int stored under key, or def if absent or of another kind.
func (s *Store) Int(key Key, def int) int {
	if v, ok := s.values[key].(Int); ok {
		return int(v)
	}
	return def
}

// Float returns the float stored under key, or def.
func (s *Store) Float(key Key, def float64) float64 {
	if v, ok := s.values[key].(Float); ok {
		return float64(v)
	}
	return def
}

// Bool returns the bool stored under key, or def.
func (s *Store) Bool(key Key, def bool) bool {
	if v, ok := s.values[key].(Bool); ok {
		return bool(v)
	}
	return def
}

// Point returns the point stored under key, or def.
func (s *Store) Point(key Key, def Point) Point {
	if v, ok := s.values[key].(Point); ok {
		return v
	}
	return def
}

// Duration returns the duration stored under key, or def.
func (s *Store) Duration(key Key, def time.Duration) time.Duration {
	if v, ok := s.values[key].(Duration); ok {
		return time.Duration(v)
	}
	return def
}

// Progress returns the progress stored under key, or def.
// The returned pointer is the live value.
func (s *Store) Progress(key Key, def *Progress) *Progress {
	if v, ok := s.values[key].(*Progress); ok && v != nil {
		return v
	}
	return def
}

// Payload returns the payload data stored under key, or def.
func (s *Store) Payload(key Key, def any) any {
	if v, ok := s.values[key].(Payload); ok {
		return v.Data
	}
	return def
}

// Add increments the int under key by delta (absent or mistyped reads as 0)
// and writes the result through Set. It returns the new value.
func (s *Store) Add(key Key, delta int) int {
	n := s.Int(key, 0) + delta
	s.Set(key, Int(n))
	return n
}

// UpdateProgress mutates the player's progress in place, creating it when
// absent, and notifies ProgressKey listeners.
func (s *Store) UpdateProgress(fn func(p *Progress)) {
	p := s.Progress(ProgressKey, nil)
	if p == nil {
		p = &Progress{}
	}
	fn(p)
	s.Set(ProgressKey, p)
}

// Values returns a copy of the value map. Progress is cloned so callers can
// hand the result to another goroutine.
func (s *Store) Values() map[Key]Value {
	out := make(map[Key]Value, len(s.values))
	for k, v := range s.values {
		if p, ok := v.(*Progress); ok {
			out[k] = p.Clone()
			continue
		}
		out[k] = v
	}
	return out
}
