package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	result := make(chan crawler.QueueItem, 1)
	errCh := make(chan error, 1)

	go func() {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- item
	}()

	time.Sleep(10 * time.Millisecond) // allow goroutine to start
	if err := q.Enqueue(context.Background(), crawler.QueueItem{URL: "https://a.example"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	select {
	case err := <-errCh:
		t.Fatalf("Dequeue() error = %v", err)
	case got := <-result:
		if got.URL != "https://a.example" {
			t.Fatalf("expected a.example, got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return item")
	}
}

func TestQueuePriorityOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue(0)
	ctx := context.Background()
	for _, it := range []crawler.QueueItem{
		{URL: "low", Priority: -3},
		{URL: "high-1", Priority: 7},
		{URL: "zero", Priority: 0},
		{URL: "high-2", Priority: 7},
		{URL: "mid", Priority: 2},
	} {
		require.NoError(t, q.Enqueue(ctx, it))
	}

	var got []string
	for q.Len() > 0 {
		it, err := q.Dequeue(ctx)
		require.NoError(t, err)
		got = append(got, it.URL)
	}
	require.Equal(t, []string{"high-1", "high-2", "mid", "zero", "low"}, got)
}

func TestQueueClosesWhenDrained(t *testing.T) {
	t.Parallel()

	q := NewQueue(0)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, crawler.QueueItem{URL: "seed"}))

	_, err := q.Dequeue(ctx)
	require.NoError(t, err)
	// The seed produced one child before being acknowledged.
	require.NoError(t, q.Enqueue(ctx, crawler.QueueItem{URL: "child"}))
	q.Done()
	require.Equal(t, 1, q.Pending())

	_, err = q.Dequeue(ctx)
	require.NoError(t, err)
	q.Done()

	select {
	case <-q.Closed():
	case <-time.After(time.Second):
		t.Fatal("queue did not close after the last acknowledgement")
	}
	if _, err := q.Dequeue(ctx); !errors.Is(err, crawler.ErrQueueClosed) {
		t.Fatalf("expected queue closed error, got %v", err)
	}
	require.ErrorIs(t, q.Enqueue(ctx, crawler.QueueItem{URL: "late"}), crawler.ErrQueueClosed)
}

func TestQueueCapacity(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), crawler.QueueItem{URL: "one"}))
	require.ErrorIs(t, q.Enqueue(context.Background(), crawler.QueueItem{URL: "two"}), crawler.ErrQueueFull)
}

func TestQueueCancelationErrors(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Dequeue(ctx); err == nil ||
		err.Error() != "dequeue canceled: context canceled" {
		t.Fatalf("expected dequeue cancel error, got %v", err)
	}
	if err := q.Enqueue(ctx, crawler.QueueItem{}); err == nil ||
		err.Error() != "enqueue canceled: context canceled" {
		t.Fatalf("expected enqueue cancel error, got %v", err)
	}
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, crawler.ErrQueueClosed) {
		t.Fatalf("expected queue closed error, got %v", err)
	}
	// Closing twice should be safe.
	q.Close()
}

func TestQueueWakesEveryWaiterOnClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(0)
	errs := make(chan error, 3)
	for range 3 {
		go func() {
			_, err := q.Dequeue(context.Background())
			errs <- err
		}()
	}
	time.Sleep(10 * time.Millisecond)
	q.Close()
	for range 3 {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, crawler.ErrQueueClosed)
		case <-time.After(time.Second):
			t.Fatal("waiter not released")
		}
	}
}
