package progress

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config tunes a Hub. Zero values take the defaults below.
type Config struct {
	// Buffer is the number of events held between Emit and delivery.
	Buffer int
	// BatchSize delivers as soon as this many events are pending.
	BatchSize int
	// FlushEvery delivers whatever is pending on this interval.
	FlushEvery time.Duration
	// SinkTimeout bounds a single Consume call.
	SinkTimeout time.Duration
	// Now stamps events that arrive without a timestamp.
	Now    func() time.Time
	Logger *zap.Logger
}

const (
	defaultBuffer      = 4096
	defaultBatchSize   = 256
	defaultFlushEvery  = 500 * time.Millisecond
	defaultSinkTimeout = 10 * time.Second
	dropLogInterval    = 5 * time.Second
)

// Tally counts the events of one stage.
type Tally struct {
	Emitted int64 `json:"emitted"`
	Dropped int64 `json:"dropped"`
}

type stageCounter struct {
	emitted atomic.Int64
	dropped atomic.Int64
}

// Hub carries the events of one crawl run to its subscribers.
//
// Fetch traffic dwarfs everything else, so only per-request stages are shed
// when the buffer is full. Milestones go to an overflow list and are always
// delivered, possibly after events emitted later.
type Hub struct {
	cfg      Config
	runID    [16]byte
	subs     []Subscription
	counters map[Stage]*stageCounter
	events   chan Event
	logger   *zap.Logger
	dropLog  rate.Sometimes

	overflowMu sync.Mutex
	overflow   []Event

	closed    atomic.Bool
	closeOnce sync.Once
	stop      chan context.Context
	done      chan struct{}
}

// NewHub starts a hub for runID. Events emitted without a run ID or
// timestamp are stamped by the hub.
func NewHub(runID uuid.UUID, cfg Config, subs ...Subscription) *Hub {
	h := newHub(runID, cfg, subs...)
	go h.run()
	return h
}

func newHub(runID uuid.UUID, cfg Config, subs ...Subscription) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushEvery
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	counters := make(map[Stage]*stageCounter, len(Stages()))
	for _, s := range Stages() {
		counters[s] = &stageCounter{}
	}
	kept := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.Sink != nil {
			kept = append(kept, sub)
		}
	}
	return &Hub{
		cfg:      cfg,
		runID:    UUIDToBytes(runID),
		subs:     kept,
		counters: counters,
		events:   make(chan Event, cfg.Buffer),
		logger:   logger,
		dropLog:  rate.Sometimes{Interval: dropLogInterval},
		stop:     make(chan context.Context, 1),
		done:     make(chan struct{}),
	}
}

// Emit queues evt without blocking. Invalid events and events emitted after
// Close are discarded.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if evt.RunID == [16]byte{} {
		evt.RunID = h.runID
	}
	if evt.TS.IsZero() {
		evt.TS = h.cfg.Now()
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid crawl event", zap.String("stage", string(evt.Stage)), zap.Error(err))
		return
	}
	counter := h.counters[evt.Stage]
	counter.emitted.Add(1)

	select {
	case h.events <- evt:
		return
	default:
	}
	if evt.Stage.Milestone() {
		h.overflowMu.Lock()
		h.overflow = append(h.overflow, evt)
		h.overflowMu.Unlock()
		return
	}
	counter.dropped.Add(1)
	h.dropLog.Do(func() {
		h.logger.Warn("progress buffer full, shedding request events",
			zap.String("stage", string(evt.Stage)),
			zap.Int64("dropped_total", h.Dropped()))
	})
}

// Tally returns per-stage counts for the run so far.
func (h *Hub) Tally() map[Stage]Tally {
	out := make(map[Stage]Tally, len(h.counters))
	for stage, c := range h.counters {
		out[stage] = Tally{Emitted: c.emitted.Load(), Dropped: c.dropped.Load()}
	}
	return out
}

// Dropped is the number of events shed across all stages.
func (h *Hub) Dropped() int64 {
	if h == nil {
		return 0
	}
	var n int64
	for _, c := range h.counters {
		n += c.dropped.Load()
	}
	return n
}

// Close delivers every pending event, closes the sinks with ctx and waits
// for the hub to stop. Later calls only wait.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.stop <- ctx
	})
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress hub close: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.cfg.FlushEvery)
	defer ticker.Stop()

	pending := make([]Event, 0, h.cfg.BatchSize)
	for {
		select {
		case evt := <-h.events:
			pending = append(pending, evt)
			if len(pending) >= h.cfg.BatchSize {
				pending = h.deliver(pending)
			}
		case <-ticker.C:
			pending = h.deliver(h.takeOverflow(pending))
		case ctx := <-h.stop:
			pending = h.drain(pending)
			h.deliver(h.takeOverflow(pending))
			h.closeSinks(ctx)
			return
		}
	}
}

func (h *Hub) drain(pending []Event) []Event {
	for {
		select {
		case evt := <-h.events:
			pending = append(pending, evt)
		default:
			return pending
		}
	}
}

func (h *Hub) takeOverflow(pending []Event) []Event {
	h.overflowMu.Lock()
	defer h.overflowMu.Unlock()
	pending = append(pending, h.overflow...)
	h.overflow = nil
	return pending
}

// deliver hands each subscriber the events it asked for and returns pending
// emptied for reuse.
func (h *Hub) deliver(pending []Event) []Event {
	if len(pending) == 0 {
		return pending
	}
	for _, sub := range h.subs {
		batch := sub.selectFrom(pending)
		if len(batch) == 0 {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SinkTimeout)
		if err := sub.Sink.Consume(ctx, batch); err != nil {
			h.logger.Warn("progress sink failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		cancel()
	}
	return pending[:0]
}

func (h *Hub) closeSinks(ctx context.Context) {
	for _, sub := range h.subs {
		if err := sub.Sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink close failed", zap.Error(err))
		}
	}
}

func (s Subscription) selectFrom(pending []Event) []Event {
	if len(s.Stages) == 0 {
		return slices.Clone(pending)
	}
	var out []Event
	for _, evt := range pending {
		if slices.Contains(s.Stages, evt.Stage) {
			out = append(out, evt)
		}
	}
	return out
}
