package state

// Snapshot is a point-in-time copy of a store's values and subscriptions,
// taken when a phase transition commits and used to roll a phase back.
type Snapshot struct {
	values    map[Key]Value
	listeners map[Key][]Listener
}

// Snapshot copies the value and listener maps. Values and listeners are
// shared by reference except the progress value, which is cloned.
func (s *Store) Snapshot() *Snapshot {
	return &Snapshot{
		values:    copyValues(s.values),
		listeners: copyListeners(s.listeners),
	}
}

// Restore replaces the live values and listeners with the snapshot's, then
// carries the live player experience forward onto the restored progress.
// Everything else, including abilities, returns to the snapshot baseline.
// Listeners are not notified. Restoring nil is a no-op.
func (s *Store) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}

	live := s.Progress(ProgressKey, nil)

	s.values = copyValues(snap.values)
	s.listeners = copyListeners(snap.listeners)

	if live == nil {
		return
	}
	restored := s.Progress(ProgressKey, nil)
	if restored == nil {
		restored = &Progress{}
		s.values[ProgressKey] = restored
	}
	restored.Experience = live.Experience
}

// Value returns the value captured for key.
func (snap *Snapshot) Value(key Key) (Value, bool) {
	if snap == nil {
		return nil, false
	}
	v, ok := snap.values[key]
	return v, ok
}

func copyValues(src map[Key]Value) map[Key]Value {
	dst := make(map[Key]Value, len(src))
	for k, v := range src {
		if p, ok := v.(*Progress); ok {
			dst[k] = p.Clone()
			continue
		}
		dst[k] = v
	}
	return dst
}

func copyListeners(src map[Key][]Listener) map[Key][]Listener {
	dst := make(map[Key][]Listener, len(src))
	for k, ls := range src {
		dst[k] = append([]Listener(nil), ls...)
	}
	return dst
}
