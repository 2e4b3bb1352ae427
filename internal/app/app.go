// Package app initializes and holds long-lived application services, acting as
// a dependency injection container for the crawl and the ops server.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/breaker"
	"github.com/JakeFAU/dvsvc-crawler/internal/clock/system"
	"github.com/JakeFAU/dvsvc-crawler/internal/config"
	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
	"github.com/JakeFAU/dvsvc-crawler/internal/dispatcher"
	"github.com/JakeFAU/dvsvc-crawler/internal/domain"
	collyfetcher "github.com/JakeFAU/dvsvc-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/dvsvc-crawler/internal/frontier"
	"github.com/JakeFAU/dvsvc-crawler/internal/hash/sha256"
	"github.com/JakeFAU/dvsvc-crawler/internal/heuristics"
	"github.com/JakeFAU/dvsvc-crawler/internal/id/uuid"
	"github.com/JakeFAU/dvsvc-crawler/internal/logging"
	"github.com/JakeFAU/dvsvc-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/dvsvc-crawler/internal/progress"
	"github.com/JakeFAU/dvsvc-crawler/internal/progress/sinks"
	pubsubpublisher "github.com/JakeFAU/dvsvc-crawler/internal/publisher/pubsub"
	queueMemory "github.com/JakeFAU/dvsvc-crawler/internal/queue/memory"
	"github.com/JakeFAU/dvsvc-crawler/internal/reference"
	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
	"github.com/JakeFAU/dvsvc-crawler/internal/sink"
	"github.com/JakeFAU/dvsvc-crawler/internal/storage"
	"github.com/JakeFAU/dvsvc-crawler/internal/storage/gcs"
	"github.com/JakeFAU/dvsvc-crawler/internal/storage/local"
	"github.com/JakeFAU/dvsvc-crawler/internal/storage/postgres"
	"github.com/JakeFAU/dvsvc-crawler/internal/worker"
)

// ErrAlreadyRan is returned when Crawl is called a second time.
var ErrAlreadyRan = errors.New("crawl already ran on this app")

// Option overrides a service before the defaults are built.
type Option func(*App)

// WithFetcher replaces the colly fetcher.
func WithFetcher(f crawler.Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// WithSink replaces the item sinks built from configuration.
func WithSink(s frontier.Sink) Option {
	return func(a *App) { a.sink = s }
}

// WithPublisher replaces the Pub/Sub publisher.
func WithPublisher(p crawler.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithBlobStore replaces the snapshot store built from configuration.
func WithBlobStore(b crawler.BlobStore) Option {
	return func(a *App) { a.blobs = b }
}

// WithRunIDs replaces the run ID generator.
func WithRunIDs(g crawler.IDGenerator) Option {
	return func(a *App) { a.ids = g }
}

// WithClock replaces the wall clock.
func WithClock(c crawler.Clock) Option {
	return func(a *App) { a.clock = c }
}

// App holds all the shared, long-lived services for one process. It runs at
// most one crawl.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	resolver  *domain.Resolver
	pages     *scoring.PageScorer
	links     *scoring.LinkScorer
	breaker   *breaker.Breaker
	fetcher   crawler.Fetcher
	publisher crawler.Publisher
	sink      frontier.Sink
	blobs     crawler.BlobStore
	snapshots *storage.Snapshotter
	stats     *sinks.StatsSink
	clock     crawler.Clock
	ids       crawler.IDGenerator
	ran       bool
	closers   []func()
}

// New builds the scorers, the breaker and every configured output. It fails
// fast if a configured backend cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		resolver: domain.NewResolver(),
		stats:    sinks.NewStatsSink(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.clock == nil {
		a.clock = system.New()
	}
	if a.ids == nil {
		a.ids = uuid.New()
	}

	if err := a.buildScorers(); err != nil {
		return nil, err
	}
	a.breaker = breaker.New(cfg.BreakerSettings(), logger.Named("breaker"))

	if a.fetcher == nil {
		a.fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.Crawler.UserAgent,
			RespectRobots: cfg.Crawler.RespectRobots,
			Timeout:       cfg.Crawler.DownloadTimeout,
			MaxURLLength:  cfg.Crawler.MaxURLLength,
			MaxBodyBytes:  cfg.Crawler.MaxBodyBytes,
		})
	}

	if err := a.buildPublisher(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildSink(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.buildSnapshots(ctx); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info("application services initialized",
		zap.Bool("postgres", cfg.Database.URL != ""),
		zap.Bool("pubsub", a.publisher != nil),
		zap.Bool("snapshots", a.snapshots != nil),
	)
	return a, nil
}

func (a *App) buildScorers() error {
	pages, links, err := BuildScorers(a.cfg, a.resolver, a.logger)
	if err != nil {
		return err
	}
	a.pages, a.links = pages, links
	return nil
}

// BuildScorers builds the page and link scorers from the default predicate
// tables, adding the charity register when one is configured.
func BuildScorers(
	cfg config.Config,
	resolver scoring.SuffixResolver,
	logger *zap.Logger,
) (*scoring.PageScorer, *scoring.LinkScorer, error) {
	var charities []string
	if path := cfg.Scoring.CharityCSV; path != "" {
		names, err := reference.LoadCharityNamesFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load charity names: %w", err)
		}
		charities = names
		logging.OrNop(logger).Info("charity register loaded", zap.Int("names", len(names)))
	}
	counting, err := scoring.ParseQuickExitCounting(cfg.Scoring.QuickExitCounting)
	if err != nil {
		return nil, nil, fmt.Errorf("quick exit counting: %w", err)
	}
	quickExit := scoring.NewQuickExit(counting, cfg.Scoring.QuickExitNecessaryMatches)

	pages, err := scoring.NewPageScorer(cfg.PageScoring(), heuristics.PagePredicates(charities, quickExit))
	if err != nil {
		return nil, nil, fmt.Errorf("page scorer: %w", err)
	}
	links, err := scoring.NewLinkScorer(cfg.LinkScoring(), resolver, heuristics.LinkPredicates())
	if err != nil {
		return nil, nil, fmt.Errorf("link scorer: %w", err)
	}
	return pages, links, nil
}

func (a *App) buildPublisher(ctx context.Context) error {
	if a.publisher != nil || a.cfg.PubSub.ProjectID == "" {
		return nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client: %w", err)
	}
	pub := pubsubpublisher.New(client)
	a.publisher = pub
	a.closers = append(a.closers, func() {
		pub.Stop()
		if err := client.Close(); err != nil {
			a.logger.Warn("close pubsub client", zap.Error(err))
		}
	})
	return nil
}

func (a *App) buildSink(ctx context.Context) error {
	if a.sink != nil {
		return nil
	}
	out := sink.Fanout{sink.NewLog(a.logger.Named("items"))}
	if a.cfg.Database.URL != "" {
		store, err := postgres.NewItemStore(ctx, postgres.Config{
			DSN:          a.cfg.Database.URL,
			ItemsTable:   a.cfg.Database.ItemsTable,
			BatchesTable: a.cfg.Database.BatchesTable,
			MaxConns:     a.cfg.Database.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("item store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if a.cfg.Database.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("item store schema: %w", err)
			}
		}
		out = append(out, store)
	}
	if a.publisher != nil && a.cfg.PubSub.ItemsTopic != "" {
		out = append(out, sink.NewPublisher(a.publisher, a.cfg.PubSub.ItemsTopic))
	}
	a.sink = out
	return nil
}

func (a *App) buildSnapshots(ctx context.Context) error {
	if a.blobs == nil {
		switch {
		case a.cfg.Storage.SnapshotBucket != "":
			client, err := gcstorage.NewClient(ctx)
			if err != nil {
				return fmt.Errorf("storage client: %w", err)
			}
			a.closers = append(a.closers, func() {
				if err := client.Close(); err != nil {
					a.logger.Warn("close storage client", zap.Error(err))
				}
			})
			store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.SnapshotBucket})
			if err != nil {
				return fmt.Errorf("snapshot store: %w", err)
			}
			if err := store.CheckBucket(ctx); err != nil {
				return fmt.Errorf("snapshot store: %w", err)
			}
			a.blobs = store
		case a.cfg.Storage.SnapshotDir != "":
			store, err := local.New(local.Config{BaseDir: a.cfg.Storage.SnapshotDir})
			if err != nil {
				return fmt.Errorf("snapshot store: %w", err)
			}
			a.blobs = store
		default:
			return nil
		}
	}
	a.snapshots = storage.NewSnapshotter(a.blobs, sha256.New(), a.cfg.Storage.SnapshotPrefix)
	return nil
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Pages returns the page scorer.
func (a *App) Pages() *scoring.PageScorer { return a.pages }

// Links returns the link scorer.
func (a *App) Links() *scoring.LinkScorer { return a.links }

// Breaker returns the domain circuit breaker.
func (a *App) Breaker() *breaker.Breaker { return a.breaker }

// Stats returns the running totals of the crawl.
func (a *App) Stats() *sinks.StatsSink { return a.stats }

// Crawl runs the crawl from startURLs until the frontier drains, the page
// budget is spent, or ctx ends.
func (a *App) Crawl(ctx context.Context, startURLs []string) (sinks.RunStats, error) {
	if a.ran {
		return sinks.RunStats{}, ErrAlreadyRan
	}
	a.ran = true

	runID, err := a.ids.NewRunID()
	if err != nil {
		return sinks.RunStats{}, fmt.Errorf("run id: %w", err)
	}
	logger := a.logger.With(zap.String("run_id", runID.String()))

	subs := []progress.Subscription{
		progress.All(a.stats),
		progress.All(sinks.NewLogSink(logger.Named("progress"))),
	}
	if a.publisher != nil && a.cfg.PubSub.EventsTopic != "" {
		pub := sinks.NewPublisherSink(a.publisher, a.cfg.PubSub.EventsTopic, logger)
		subs = append(subs, progress.Only(pub, progress.Milestones()...))
	}
	hub := progress.NewHub(runID, progress.Config{Now: a.clock.Now, Logger: logger.Named("hub")}, subs...)
	emit := hub.Emit
	a.breaker.OnBlacklist(func(d string, reason breaker.Reason) {
		emit(progress.Event{Stage: progress.StageBlacklisted, Domain: d, Note: string(reason)})
	})

	controller := frontier.NewController(
		a.cfg.FrontierSettings(),
		runID.String(),
		a.pages,
		a.links,
		a.resolver,
		a.breaker,
		logger.Named("frontier"),
	)
	queue := queueMemory.NewQueue(a.cfg.Crawler.QueueDepth)
	limiter := ratelimit.New(ratelimit.Config{Delay: a.cfg.Crawler.DownloadDelay})
	budget := worker.NewBudget(a.cfg.Crawler.MaxPages)

	deps := worker.Deps{
		Queue:    queue,
		Fetcher:  a.fetcher,
		Gate:     a.breaker,
		Limiter:  limiter,
		Resolver: a.resolver,
		Pages:    controller,
		Sink:     a.sink,
		Events:   hub,
		Clock:    a.clock,
		Budget:   budget,
	}
	if a.snapshots != nil {
		deps.Snapshots = a.snapshots
	}
	workerCfg := worker.Config{RunID: runID, SnapshotMinScore: a.cfg.Frontier.NecessaryPScore}
	runners := make([]dispatcher.Runner, 0, a.cfg.Crawler.Concurrency)
	for i := 0; i < a.cfg.Crawler.Concurrency; i++ {
		runners = append(runners, worker.New(i, deps, workerCfg, logger.Named("worker")))
	}
	dispatch := dispatcher.New(queue, runners)

	emit(progress.Event{Stage: progress.StageRunStart})
	seeded, err := dispatch.Seed(ctx, startURLs, budget, a.clock)
	if err != nil {
		emit(progress.Event{Stage: progress.StageRunError, Note: err.Error()})
		a.closeHub(hub)
		return a.stats.Snapshot(), fmt.Errorf("seed frontier: %w", err)
	}
	logger.Info("crawl started", zap.Int("seeds", seeded), zap.Int("workers", len(runners)))

	dispatch.Run(ctx)

	runErr := ctx.Err()
	if runErr != nil {
		emit(progress.Event{Stage: progress.StageRunError, Note: runErr.Error()})
	} else {
		emit(progress.Event{Stage: progress.StageRunDone, Note: fmt.Sprintf("fetched=%d", budget.Fetched())})
	}
	a.closeHub(hub)

	logger.Info("crawl finished",
		zap.Int64("fetched", budget.Fetched()),
		zap.Int("aggregated_domains", controller.Aggregator().Len()),
		zap.Int64("events_dropped", hub.Dropped()),
		zap.Int64("requests_rejected", hub.Tally()[progress.StageRejected].Emitted),
	)
	if runErr != nil {
		return a.stats.Snapshot(), fmt.Errorf("crawl interrupted: %w", runErr)
	}
	return a.stats.Snapshot(), nil
}

func (a *App) closeHub(hub *progress.Hub) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hub.Close(ctx); err != nil {
		a.logger.Warn("close progress hub", zap.Error(err))
	}
}

// Close releases every backend in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
