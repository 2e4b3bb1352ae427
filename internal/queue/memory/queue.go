// Package memory provides the in-process crawl frontier.
package memory

import (
	"container/heap"
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
)

// Queue is a priority queue with context-aware operations. Higher priorities
// are dequeued first and equal priorities keep insertion order. The queue
// tracks work in flight and closes itself once every enqueued item has been
// acknowledged with Done.
type Queue struct {
	mu       sync.Mutex
	items    itemHeap
	seq      uint64
	capacity int
	pending  int
	closed   bool
	ready    chan struct{}
	done     chan struct{}
}

// NewQueue constructs a queue holding at most capacity waiting items.
// A capacity <= 0 means unbounded.
func NewQueue(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Enqueue adds an item. It never blocks.
func (q *Queue) Enqueue(ctx context.Context, item crawler.QueueItem) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enqueue canceled: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return crawler.ErrQueueClosed
	}
	if q.capacity > 0 && len(q.items) >= q.capacity {
		return crawler.ErrQueueFull
	}
	q.seq++
	heap.Push(&q.items, entry{item: item, seq: q.seq})
	q.pending++
	q.signal()
	return nil
}

// Dequeue pops the highest priority item, waiting until one is available,
// the queue closes, or ctx ends.
func (q *Queue) Dequeue(ctx context.Context) (crawler.QueueItem, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := heap.Pop(&q.items).(entry)
			if len(q.items) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return e.item, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return crawler.QueueItem{}, crawler.ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return crawler.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.done:
		case <-q.ready:
		}
	}
}

// Done acknowledges one dequeued item. When nothing is waiting or in flight
// the queue closes.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending > 0 {
		q.pending--
	}
	if q.pending == 0 {
		q.closeLocked()
	}
}

// Len reports the number of waiting items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending reports waiting plus in-flight items.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Closed is closed once the queue stops accepting work.
func (q *Queue) Closed() <-chan struct{} {
	return q.done
}

// Close stops the queue. Waiting items are still dequeued. Closing twice is
// safe.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeLocked()
}

func (q *Queue) closeLocked() {
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

type entry struct {
	item crawler.QueueItem
	seq  uint64
}

type itemHeap []entry

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].item.Priority != h[j].item.Priority {
		return h[i].item.Priority > h[j].item.Priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
