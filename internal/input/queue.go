package input

import "github.com/starford/microslate/internal/apperr"

// DefaultQueueSize matches the firmware's event ring.
const DefaultQueueSize = 64

// Queue is a bounded FIFO of key events. Insertion order is delivery order and
// duplicates are allowed. It has one producer and one consumer per tick, both
// on the device loop, so it is not locked.
type Queue struct {
	ring       []KeyEvent
	head, size int
}

// NewQueue returns an empty queue holding at most capacity events.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &Queue{ring: make([]KeyEvent, capacity)}
}

// Push appends ev, or returns apperr.ErrQueueFull and drops it.
func (q *Queue) Push(ev KeyEvent) error {
	if q.size == len(q.ring) {
		return apperr.ErrQueueFull
	}
	q.ring[(q.head+q.size)%len(q.ring)] = ev
	q.size++
	return nil
}

// Tap appends a key-down immediately followed by the matching key-up. The pair
// is enqueued whole or not at all.
func (q *Queue) Tap(code, mods uint8) error {
	if len(q.ring)-q.size < 2 {
		return apperr.ErrQueueFull
	}
	_ = q.Push(KeyEvent{Code: code, Modifiers: mods, Pressed: true})
	_ = q.Push(KeyEvent{Code: code, Modifiers: mods, Pressed: false})
	return nil
}

// Pop removes the oldest event.
func (q *Queue) Pop() (KeyEvent, bool) {
	if q.size == 0 {
		return KeyEvent{}, false
	}
	ev := q.ring[q.head]
	q.head = (q.head + 1) % len(q.ring)
	q.size--
	return ev, true
}

func (q *Queue) Len() int { return q.size }
func (q *Queue) Cap() int { return len(q.ring) }
