package frontier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/domain"
	"github.com/JakeFAU/dvsvc-crawler/internal/metrics"
	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
)

// DefaultSufficientPageScore itemizes a page without waiting for its domain.
const DefaultSufficientPageScore = 0.95

// DomainResolver maps a URL to its registrable domain.
type DomainResolver interface {
	Registrable(rawURL string) (string, error)
}

// Gate reports whether a domain is still accepting requests.
type Gate interface {
	Blacklisted(domain string) bool
}

// Config tunes the controller.
type Config struct {
	SufficientPageScore float64
	Aggregation         AggregatorConfig
	ScoreWindow         int
}

// Visit describes a fetched page.
type Visit struct {
	URL         string
	HTML        string
	LinkScore   *scoring.Score
	TimeQueued  time.Time
	TimeCrawled time.Time
	// Links are the absolute URLs found on the page. When nil they are
	// extracted from HTML.
	Links []string
}

// Outcome is everything the controller decided about one visit.
type Outcome struct {
	PageScore scoring.Score
	Immediate []CrawlItem
	Batches   []Batch
	Links     []OutboundLink
	// Dropped counts outbound links whose domain is already blacklisted.
	Dropped int
}

// Controller ties scoring, aggregation and gating together. It is safe for
// concurrent use.
type Controller struct {
	cfg        Config
	runID      string
	pages      *scoring.PageScorer
	links      *scoring.LinkScorer
	resolver   DomainResolver
	gate       Gate
	aggregator *Aggregator
	window     *ScoreWindow
	logger     *zap.Logger
}

// DefaultConfig returns the historical crawl settings.
func DefaultConfig() Config {
	return Config{
		SufficientPageScore: DefaultSufficientPageScore,
		Aggregation:         DefaultAggregatorConfig(),
		ScoreWindow:         DefaultScoreWindow,
	}
}

// NewController wires a controller. Scores in cfg are taken as given; gate
// may be nil.
func NewController(
	cfg Config,
	runID string,
	pages *scoring.PageScorer,
	links *scoring.LinkScorer,
	resolver DomainResolver,
	gate Gate,
	logger *zap.Logger,
) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:        cfg,
		runID:      runID,
		pages:      pages,
		links:      links,
		resolver:   resolver,
		gate:       gate,
		aggregator: NewAggregator(cfg.Aggregation, logger),
		window:     NewScoreWindow(cfg.ScoreWindow),
		logger:     logger,
	}
}

// Aggregator exposes the per-domain cache for inspection.
func (c *Controller) Aggregator() *Aggregator { return c.aggregator }

// OnPageVisited scores a fetched page and decides its itemization and the
// priorities of its outbound links.
func (c *Controller) OnPageVisited(ctx context.Context, v Visit) Outcome {
	page := scoring.ParseDocument(v.HTML)
	pscore := c.pages.ScoreSubject(page)
	metrics.ObservePageScore(pscore.Value)
	out := Outcome{PageScore: pscore}

	item := CrawlItem{
		Link:        v.URL,
		PageScore:   pscore,
		LinkScore:   v.LinkScore,
		TimeQueued:  v.TimeQueued,
		TimeCrawled: v.TimeCrawled,
	}
	if pscore.Value >= c.cfg.SufficientPageScore {
		out.Immediate = append(out.Immediate, item)
		metrics.ObserveItems("immediate", 1)
		c.logger.Info("itemized page",
			zap.String("url", v.URL),
			zap.Float64("pscore", pscore.Value),
			zap.Strings("matched", pscore.Labels()))
	}

	if fld, err := c.resolver.Registrable(v.URL); err != nil {
		c.logUnresolved(v.URL, err)
	} else if items, ok := c.aggregator.Visit(fld, item); ok {
		out.Batches = append(out.Batches, Batch{
			RunID:       c.runID,
			Domain:      fld,
			Items:       items,
			TimeBatched: v.TimeCrawled,
		})
		metrics.ObserveBatch()
		metrics.ObserveItems("batch", len(items))
		c.logger.Info("itemized page set for domain", zap.String("domain", fld), zap.Int("items", len(items)))
	}

	links := v.Links
	if links == nil {
		links = ExtractLinks(page.Doc, v.URL)
	}
	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		ol, ok := c.scoreLink(link, pscore.Value)
		if !ok {
			out.Dropped++
			continue
		}
		out.Links = append(out.Links, ol)
	}
	return out
}

func (c *Controller) scoreLink(link string, parent float64) (OutboundLink, bool) {
	fld, err := c.resolver.Registrable(link)
	if err != nil {
		c.logUnresolved(link, err)
		fld = ""
	}
	if fld != "" && c.gate != nil && c.gate.Blacklisted(fld) {
		metrics.ObserveLinkDropped("blacklisted")
		return OutboundLink{}, false
	}

	lscore := c.links.Score(link, parent)
	metrics.ObserveLinkScore(lscore.Value)
	if mean, ok := c.window.Record(lscore.Value); ok {
		metrics.SetLinkScoreWindowMean(mean)
		c.logger.Info("mean link score over window",
			zap.Int("window", c.window.Size()),
			zap.Float64("mean_lscore", mean))
	}
	return OutboundLink{
		URL:      link,
		Score:    lscore,
		Priority: Priority(lscore.Value),
		Domain:   fld,
	}, true
}

func (c *Controller) logUnresolved(rawURL string, err error) {
	if errors.Is(err, domain.ErrUnresolvedDomain) {
		c.logger.Debug("skipping domain keying", zap.String("url", rawURL), zap.Error(err))
		return
	}
	c.logger.Warn("resolve domain failed", zap.String("url", rawURL), zap.Error(err))
}
