package worker

import (
	"sync"
	"sync/atomic"
)

// Budget is shared by every worker of a run. It admits each URL once and caps
// the number of fetches.
type Budget struct {
	seen    sync.Map
	fetched atomic.Int64
	max     int64
}

// NewBudget allows maxPages fetches; zero or less means unbounded.
func NewBudget(maxPages int) *Budget {
	return &Budget{max: int64(maxPages)}
}

// MarkIfNew stores the URL if it has not been seen before and returns true.
func (b *Budget) MarkIfNew(url string) bool {
	if url == "" {
		return false
	}
	_, loaded := b.seen.LoadOrStore(url, struct{}{})
	return !loaded
}

// Exhausted reports whether no further fetch may start.
func (b *Budget) Exhausted() bool {
	return b.max > 0 && b.fetched.Load() >= b.max
}

// TakePage claims one fetch and reports whether it was within budget.
func (b *Budget) TakePage() bool {
	n := b.fetched.Add(1)
	if b.max > 0 && n > b.max {
		b.fetched.Add(-1)
		return false
	}
	return true
}

// ReturnPage gives back a claim whose fetch never started.
func (b *Budget) ReturnPage() {
	b.fetched.Add(-1)
}

// Fetched reports the number of claimed fetches.
func (b *Budget) Fetched() int64 {
	return b.fetched.Load()
}
