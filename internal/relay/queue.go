// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"sync"

	"github.com/ferrywire/ferrywire/internal/domain"
	"github.com/ferrywire/ferrywire/internal/metrics"
)

// Queue is the bounded FIFO buffer between the event source adapter and the
// callback dispatcher. Enqueue never blocks: when the buffer is full it
// returns domain.ErrQueueFull and the producer decides what to shed.
// Intended for single-producer single-consumer use.
type Queue struct {
	mu     sync.Mutex
	ch     chan domain.Event
	closed bool
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Queue{ch: make(chan domain.Event, capacity)}
}

func (q *Queue) Enqueue(ev domain.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.ErrQueueClosed
	}

	select {
	case q.ch <- ev:
		metrics.SetQueueDepth(len(q.ch))
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// DropOldest removes the event at the head of the queue, if any. It is also
// used during shutdown to collect events that missed the drain grace period.
func (q *Queue) DropOldest() (domain.Event, bool) {
	select {
	case ev, ok := <-q.ch:
		if !ok {
			return domain.Event{}, false
		}
		metrics.SetQueueDepth(len(q.ch))
		return ev, true
	default:
		return domain.Event{}, false
	}
}

// Dequeue blocks until an event is available, the context is canceled, or
// the queue is closed and drained (domain.ErrQueueClosed).
func (q *Queue) Dequeue(ctx context.Context) (domain.Event, error) {
	// Cancellation wins over a ready event so an expired drain grace
	// period stops consuming immediately.
	select {
	case <-ctx.Done():
		return domain.Event{}, ctx.Err()
	default:
	}

	select {
	case ev, ok := <-q.ch:
		if !ok {
			return domain.Event{}, domain.ErrQueueClosed
		}
		metrics.SetQueueDepth(len(q.ch))
		return ev, nil
	case <-ctx.Done():
		return domain.Event{}, ctx.Err()
	}
}

// Close stops accepting new events. Buffered events remain dequeuable until
// the queue is drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) Cap() int {
	return cap(q.ch)
}
