package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dvsvc-crawler/internal/clock/system"
	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
	"github.com/JakeFAU/dvsvc-crawler/internal/queue/memory"
	"github.com/JakeFAU/dvsvc-crawler/internal/worker"
)

// TestDispatcherRunDrainsQueue ensures Run returns once every seed is acknowledged.
func TestDispatcherRunDrainsQueue(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(0)
	var handled atomic.Int32
	runners := []Runner{drainer{q: q, n: &handled}, drainer{q: q, n: &handled}}
	d := New(q, runners)

	n, err := d.Seed(context.Background(),
		[]string{"https://a.org", "https://b.org", "https://a.org"},
		worker.NewBudget(0), system.Fixed(time.Unix(1, 0)))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not return after the queue drained")
	}
	require.Equal(t, int32(2), handled.Load())
}

// TestDispatcherSeedNothingClosesQueue keeps Run from blocking on an empty crawl.
func TestDispatcherSeedNothingClosesQueue(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(0)
	d := New(q, nil)
	n, err := d.Seed(context.Background(), nil, worker.NewBudget(0), system.Clock{})
	require.NoError(t, err)
	require.Zero(t, n)

	select {
	case <-q.Closed():
	default:
		t.Fatal("queue left open")
	}
}

// TestDispatcherRunStopsOnCancel verifies workers exit on context cancel.
func TestDispatcherRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(0)
	require.NoError(t, q.Enqueue(context.Background(), crawler.QueueItem{URL: "https://x.org"}))
	var handled atomic.Int32
	d := New(q, []Runner{drainer{q: q, n: &handled, hold: true}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancel")
	}
}

// TestDispatcherEnqueueForwardsErrors verifies queue errors are wrapped for callers.
func TestDispatcherEnqueueForwardsErrors(t *testing.T) {
	t.Parallel()

	d := New(errorQueue{err: errors.New("boom")}, nil)
	err := d.Enqueue(context.Background(), crawler.QueueItem{URL: "https://x.org"})
	if err == nil || err.Error() != "queue enqueue: boom" {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

// drainer acknowledges items without fetching. With hold set it never calls
// Done so only ctx can end it.
type drainer struct {
	q    *memory.Queue
	n    *atomic.Int32
	hold bool
}

func (d drainer) Run(ctx context.Context) {
	for {
		if _, err := d.q.Dequeue(ctx); err != nil {
			return
		}
		d.n.Add(1)
		if !d.hold {
			d.q.Done()
		}
	}
}

type errorQueue struct {
	err error
}

func (q errorQueue) Enqueue(context.Context, crawler.QueueItem) error { return q.err }

func (q errorQueue) Dequeue(context.Context) (crawler.QueueItem, error) {
	return crawler.QueueItem{}, q.err
}

func (errorQueue) Done()  {}
func (errorQueue) Close() {}
