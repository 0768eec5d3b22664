package session

import (
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Queue is an unbounded FIFO safe for many producers and one consumer.
// Push never blocks. Ready is signalled whenever items may be pending and
// Drain hands them all over at once.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}

	size    func(T) int
	pending int
	warnAt  int
	warned  bool
	name    string
	log     zerolog.Logger
}

// NewQueue returns an empty queue. When size and warnAt are set, a warning is
// logged each time the pending byte total rises above warnAt.
func NewQueue[T any](name string, size func(T) int, warnAt int, logger zerolog.Logger) *Queue[T] {
	return &Queue[T]{
		ready:  make(chan struct{}, 1),
		size:   size,
		warnAt: warnAt,
		name:   name,
		log:    logger,
	}
}

// Push appends v and signals Ready.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	if q.size != nil {
		q.pending += q.size(v)
		if q.warnAt > 0 && q.pending > q.warnAt && !q.warned {
			q.warned = true
			q.log.Warn().
				Str("queue", q.name).
				Str("pending", humanize.IBytes(uint64(q.pending))).
				Int("items", len(q.items)).
				Msg("queue above high-water mark, consumer is falling behind")
		}
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready returns a channel that receives after Push. A receive may find the
// queue already drained.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Drain removes and returns every pending item in push order. It never
// blocks and returns nil when the queue is empty.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	q.pending = 0
	q.warned = false
	return items
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns the byte total of pending items as measured by size.
func (q *Queue[T]) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}
