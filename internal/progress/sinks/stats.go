package sinks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/dvsvc-crawler/internal/progress"
)

// RunState is the lifecycle of a crawl run as seen by the sink.
type RunState string

// Run states reported by StatsSink.
const (
	RunPending RunState = "pending"
	RunActive  RunState = "running"
	RunDone    RunState = "done"
	RunFailed  RunState = "failed"
)

// RunStats summarises a crawl run.
type RunStats struct {
	RunID        string                         `json:"run_id,omitempty"`
	State        RunState                       `json:"state"`
	StartedAt    *time.Time                     `json:"started_at,omitempty"`
	FinishedAt   *time.Time                     `json:"finished_at,omitempty"`
	Fetched      map[progress.StatusClass]int64 `json:"fetched"`
	Failed       int64                          `json:"failed"`
	Rejected     int64                          `json:"rejected"`
	Bytes        int64                          `json:"bytes"`
	Itemized     int64                          `json:"itemized"`
	Batches      int64                          `json:"batches"`
	BatchedItems int64                          `json:"batched_items"`
	Blacklisted  []string                       `json:"blacklisted"`
	Error        string                         `json:"error,omitempty"`
}

// StatsSink folds events into a RunStats snapshot for the ops API.
type StatsSink struct {
	mu          sync.RWMutex
	stats       RunStats
	blacklisted map[string]struct{}
}

// NewStatsSink returns an empty StatsSink.
func NewStatsSink() *StatsSink {
	return &StatsSink{
		stats:       RunStats{State: RunPending, Fetched: map[progress.StatusClass]int64{}},
		blacklisted: map[string]struct{}{},
	}
}

// Consume applies a batch of events.
func (s *StatsSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		s.apply(evt)
	}
	return nil
}

func (s *StatsSink) apply(evt progress.Event) {
	ts := evt.TS
	switch evt.Stage {
	case progress.StageRunStart:
		s.stats.RunID = evt.RunUUID().String()
		s.stats.State = RunActive
		s.stats.StartedAt = &ts
	case progress.StageRunDone:
		s.stats.State = RunDone
		s.stats.FinishedAt = &ts
	case progress.StageRunError:
		s.stats.State = RunFailed
		s.stats.FinishedAt = &ts
		s.stats.Error = evt.Note
	case progress.StageFetchDone:
		s.stats.Fetched[evt.StatusClass]++
		s.stats.Bytes += evt.Bytes
	case progress.StageFetchFailed:
		s.stats.Failed++
	case progress.StageRejected:
		s.stats.Rejected++
	case progress.StageItemized:
		s.stats.Itemized++
	case progress.StageBatchFlushed:
		s.stats.Batches++
		s.stats.BatchedItems += int64(evt.Items)
	case progress.StageBlacklisted:
		s.blacklisted[evt.Domain] = struct{}{}
	}
}

// Snapshot returns a copy of the current stats.
func (s *StatsSink) Snapshot() RunStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.stats
	out.Fetched = make(map[progress.StatusClass]int64, len(s.stats.Fetched))
	for k, v := range s.stats.Fetched {
		out.Fetched[k] = v
	}
	out.Blacklisted = make([]string, 0, len(s.blacklisted))
	for d := range s.blacklisted {
		out.Blacklisted = append(out.Blacklisted, d)
	}
	sort.Strings(out.Blacklisted)
	return out
}

// Close implements the Sink interface; it performs no action.
func (s *StatsSink) Close(context.Context) error {
	return nil
}
