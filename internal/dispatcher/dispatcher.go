// Package dispatcher runs a pool of workers over the crawl frontier.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
	"github.com/JakeFAU/dvsvc-crawler/internal/worker"
)

// Runner is one unit of the pool.
type Runner interface {
	Run(ctx context.Context)
}

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   crawler.Queue
	workers []Runner
}

// New creates a Dispatcher.
func New(queue crawler.Queue, workers []Runner) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Seed enqueues the start URLs at priority zero. Duplicates are skipped
// through budget. When nothing could be seeded the queue is closed so Run
// returns at once.
func (d *Dispatcher) Seed(ctx context.Context, urls []string, budget *worker.Budget, clock crawler.Clock) (int, error) {
	seeded := 0
	for _, u := range urls {
		if budget != nil && !budget.MarkIfNew(u) {
			continue
		}
		if err := d.Enqueue(ctx, crawler.QueueItem{URL: u, TimeQueued: clock.Now()}); err != nil {
			if seeded == 0 {
				d.queue.Close()
			}
			return seeded, err
		}
		seeded++
	}
	if seeded == 0 {
		d.queue.Close()
	}
	return seeded, nil
}

// Run starts all workers and blocks until every worker has returned, which
// happens when the frontier drains or ctx ends.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk Runner) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, item crawler.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
