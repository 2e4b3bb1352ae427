// Package worker implements the crawl loop: dequeue, gate, fetch, score and
// schedule.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/breaker"
	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
	"github.com/JakeFAU/dvsvc-crawler/internal/domain"
	"github.com/JakeFAU/dvsvc-crawler/internal/frontier"
	"github.com/JakeFAU/dvsvc-crawler/internal/metrics"
	"github.com/JakeFAU/dvsvc-crawler/internal/progress"
)

// DefaultSnapshotMinScore snapshots every page that can end up itemized.
const DefaultSnapshotMinScore = frontier.DefaultNecessaryPageScore

// PageHandler decides what a fetched page yields.
type PageHandler interface {
	OnPageVisited(ctx context.Context, v frontier.Visit) frontier.Outcome
}

// DomainResolver maps a URL to the key used for gating and politeness.
type DomainResolver interface {
	Registrable(rawURL string) (string, error)
}

// Snapshotter stores raw page bodies.
type Snapshotter interface {
	Save(ctx context.Context, rawURL string, body []byte) (string, error)
}

// Deps are the collaborators of a worker. Snapshots and Events may be nil.
type Deps struct {
	Queue     crawler.Queue
	Fetcher   crawler.Fetcher
	Gate      crawler.Gate
	Limiter   crawler.Limiter
	Resolver  DomainResolver
	Pages     PageHandler
	Sink      frontier.Sink
	Snapshots Snapshotter
	Events    progress.Emitter
	Clock     crawler.Clock
	Budget    *Budget
}

// Config controls Worker behavior.
type Config struct {
	RunID uuid.UUID
	// SnapshotMinScore is used as given; DefaultSnapshotMinScore matches the
	// default aggregation threshold.
	SnapshotMinScore float64
}

// Worker consumes queue items and executes the fetch pipeline.
type Worker struct {
	id     int
	deps   Deps
	cfg    Config
	runID  [16]byte
	logger *zap.Logger
}

// New constructs a Worker.
func New(id int, deps Deps, cfg Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Budget == nil {
		deps.Budget = NewBudget(0)
	}
	return &Worker{
		id:     id,
		deps:   deps,
		cfg:    cfg,
		runID:  progress.UUIDToBytes(cfg.RunID),
		logger: logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, consuming queue items until the queue closes or the context
// finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.deps.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, crawler.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		metrics.IncActiveWorkers()
		w.process(ctx, item)
		metrics.DecActiveWorkers()
		w.deps.Queue.Done()
	}
}

func (w *Worker) process(ctx context.Context, item crawler.QueueItem) {
	if w.deps.Budget.Exhausted() {
		metrics.ObserveLinkDropped("budget")
		return
	}
	site := w.domainOf(item.URL)
	if w.deps.Gate != nil && w.deps.Gate.Blacklisted(site) {
		w.failed(item, site, crawler.Rejected(item.URL, w.now()), breaker.ErrDomainBlacklisted)
		return
	}
	if !w.deps.Budget.TakePage() {
		metrics.ObserveLinkDropped("budget")
		return
	}
	if w.deps.Limiter != nil {
		if err := w.deps.Limiter.Wait(ctx, site); err != nil {
			w.deps.Budget.ReturnPage()
			w.logger.Debug("politeness wait aborted", zap.String("url", item.URL), zap.Error(err))
			return
		}
	}
	// The domain may have been blacklisted while this worker waited.
	if w.deps.Gate != nil && !w.deps.Gate.ShouldAllow(site) {
		w.deps.Budget.ReturnPage()
		w.failed(item, site, crawler.Rejected(item.URL, w.now()), breaker.ErrDomainBlacklisted)
		return
	}

	resp, err := w.deps.Fetcher.Fetch(ctx, crawler.FetchRequest{URL: item.URL})
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil || !resp.OK() {
		w.failed(item, site, resp, err)
		return
	}
	w.recordOutcome(site, true)
	metrics.ObserveFetch(metrics.StatusClass(resp.StatusCode), len(resp.Body))

	crawled := resp.FetchedAt
	if crawled.IsZero() {
		crawled = w.now()
	}
	out := w.deps.Pages.OnPageVisited(ctx, frontier.Visit{
		URL:         item.URL,
		HTML:        string(resp.Body),
		LinkScore:   item.LinkScore,
		TimeQueued:  item.TimeQueued,
		TimeCrawled: crawled,
		Links:       resp.Links,
	})
	w.emit(progress.Event{
		Stage:       progress.StageFetchDone,
		URL:         item.URL,
		Domain:      site,
		StatusClass: progress.ClassifyStatus(resp.StatusCode),
		Bytes:       int64(len(resp.Body)),
		Dur:         resp.Duration,
		Score:       out.PageScore.Value,
	})

	if w.deps.Snapshots != nil && out.PageScore.Value >= w.cfg.SnapshotMinScore {
		if uri, err := w.deps.Snapshots.Save(ctx, item.URL, resp.Body); err != nil {
			w.logger.Warn("snapshot failed", zap.String("url", item.URL), zap.Error(err))
		} else {
			w.logger.Debug("snapshot stored", zap.String("url", item.URL), zap.String("uri", uri))
		}
	}

	w.deliver(ctx, out)
	w.schedule(ctx, out.Links)
}

// failed reports an attempt that produced no page. Rejected responses are not
// recorded as bad outcomes.
func (w *Worker) failed(item crawler.QueueItem, site string, resp crawler.FetchResponse, err error) {
	rejected := resp.StatusCode == crawler.StatusRejected
	if !rejected {
		w.recordOutcome(site, false)
	}
	evt := progress.Event{URL: item.URL, Domain: site}
	switch {
	case rejected:
		metrics.ObserveFetch("rejected", 0)
		evt.Stage = progress.StageRejected
		evt.Note = err.Error()
		w.logger.Debug("request rejected", zap.String("url", item.URL), zap.String("domain", site))
	case err != nil:
		label := "error"
		if errors.Is(err, crawler.ErrTimeout) {
			label = "timeout"
		}
		metrics.ObserveFetch(label, 0)
		evt.Stage = progress.StageFetchFailed
		evt.Note = err.Error()
		w.logger.Warn("fetch failed", zap.String("url", item.URL), zap.Error(err))
	default:
		metrics.ObserveFetch(metrics.StatusClass(resp.StatusCode), len(resp.Body))
		evt.Stage = progress.StageFetchDone
		evt.StatusClass = progress.ClassifyStatus(resp.StatusCode)
		evt.Bytes = int64(len(resp.Body))
		evt.Dur = resp.Duration
		w.logger.Debug("non-success response", zap.String("url", item.URL), zap.Int("status", resp.StatusCode))
	}
	w.emit(evt)
}

func (w *Worker) deliver(ctx context.Context, out frontier.Outcome) {
	for _, it := range out.Immediate {
		if err := w.deps.Sink.Itemize(ctx, it); err != nil {
			w.logger.Error("itemize failed", zap.String("link", it.Link), zap.Error(err))
			continue
		}
		w.emit(progress.Event{Stage: progress.StageItemized, URL: it.Link, Score: it.PageScore.Value})
	}
	for _, b := range out.Batches {
		if err := w.deps.Sink.FlushBatch(ctx, b); err != nil {
			w.logger.Error("flush batch failed", zap.String("domain", b.Domain), zap.Int("items", len(b.Items)), zap.Error(err))
			continue
		}
		w.emit(progress.Event{Stage: progress.StageBatchFlushed, Domain: b.Domain, Items: len(b.Items)})
	}
}

func (w *Worker) schedule(ctx context.Context, links []frontier.OutboundLink) {
	if w.deps.Budget.Exhausted() {
		return
	}
	for _, l := range links {
		if !w.deps.Budget.MarkIfNew(l.URL) {
			continue
		}
		score := l.Score
		err := w.deps.Queue.Enqueue(ctx, crawler.QueueItem{
			URL:        l.URL,
			Priority:   l.Priority,
			LinkScore:  &score,
			TimeQueued: w.now(),
		})
		switch {
		case err == nil:
		case errors.Is(err, crawler.ErrQueueFull):
			metrics.ObserveLinkDropped("queue_full")
		case errors.Is(err, crawler.ErrQueueClosed), ctx.Err() != nil:
			return
		default:
			w.logger.Warn("enqueue failed", zap.String("url", l.URL), zap.Error(err))
		}
	}
	if q, ok := w.deps.Queue.(interface{ Len() int }); ok {
		metrics.SetFrontierDepth(q.Len())
	}
}

func (w *Worker) recordOutcome(site string, success bool) {
	if w.deps.Gate != nil {
		w.deps.Gate.RecordOutcome(site, success)
	}
}

// domainOf keys gating on the registrable domain, falling back to the host
// for IPs and unknown suffixes.
func (w *Worker) domainOf(rawURL string) string {
	if w.deps.Resolver == nil {
		return ""
	}
	if fld, err := w.deps.Resolver.Registrable(rawURL); err == nil {
		return fld
	}
	host, _ := domain.Host(rawURL)
	return host
}

func (w *Worker) emit(evt progress.Event) {
	if w.deps.Events == nil {
		return
	}
	evt.RunID = w.runID
	evt.TS = w.now()
	w.deps.Events.Emit(evt)
}

func (w *Worker) now() time.Time {
	if w.deps.Clock == nil {
		return time.Now().UTC()
	}
	return w.deps.Clock.Now()
}
