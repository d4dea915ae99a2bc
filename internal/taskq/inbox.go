package taskq

import "sync"

// Inbox is a goroutine-safe FIFO. Producers on any goroutine Post; the tick
// goroutine Drains once per frame.
type Inbox[T any] struct {
	mu    sync.Mutex
	items []T
}

// Post appends an item.
func (b *Inbox[T]) Post(item T) {
	b.mu.Lock()
	b.items = append(b.items, item)
	b.mu.Unlock()
}

// Drain returns all queued items in arrival order and empties the inbox.
func (b *Inbox[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return nil
	}
	out := b.items
	b.items = nil
	return out
}

// Len returns the number of queued items.
func (b *Inbox[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
