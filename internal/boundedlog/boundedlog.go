// Package boundedlog implements a fixed-capacity, newest-first log.
package boundedlog

// Log keeps at most Cap entries, most recent first. It is not safe for
// concurrent use; the owner serializes access.
type Log[T any] struct {
	entries  []T
	capacity int
}

// New returns an empty log. A capacity below one is treated as one.
func New[T any](capacity int) *Log[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Log[T]{
		entries:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push makes entry index 0 and drops the oldest entries past capacity
func (l *Log[T]) Push(entry T) {
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, entry)
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = entry
}

// Items returns a copy of the entries, newest first
func (l *Log[T]) Items() []T {
	out := make([]T, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len is min(pushes, Cap)
func (l *Log[T]) Len() int { return len(l.entries) }

// Cap is the fixed capacity
func (l *Log[T]) Cap() int { return l.capacity }
