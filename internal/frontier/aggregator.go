package frontier

import (
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/metrics"
)

// Aggregation defaults.
const (
	DefaultNecessaryPageScore = 0.80
	DefaultNecessaryRatio     = 0.5
	DefaultNecessarySamples   = 5
	DefaultMaxDomains         = 100_000
	DefaultDomainTTL          = 24 * time.Hour
	aggregatorShards          = 32
)

// AggregatorConfig controls when a domain's good pages are flushed.
type AggregatorConfig struct {
	// NecessaryPageScore is the minimum page score counted as good.
	NecessaryPageScore float64
	// NecessaryRatio is the minimum good/total ratio for a flush.
	NecessaryRatio float64
	// NecessarySamples is the minimum number of visits before a flush.
	NecessarySamples int
	// MaxDomains bounds the number of domains tracked at once.
	MaxDomains int
	// TTL is the idle time after which a domain's progress is dropped.
	// Every visit restarts it.
	TTL time.Duration
}

// DefaultAggregatorConfig returns the historical crawl settings.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		NecessaryPageScore: DefaultNecessaryPageScore,
		NecessaryRatio:     DefaultNecessaryRatio,
		NecessarySamples:   DefaultNecessarySamples,
		MaxDomains:         DefaultMaxDomains,
		TTL:                DefaultDomainTTL,
	}
}

// withLimits fills in the cache bounds, which have no meaningful zero value.
// Thresholds are used as given.
func (c AggregatorConfig) withLimits() AggregatorConfig {
	if c.MaxDomains <= 0 {
		c.MaxDomains = DefaultMaxDomains
	}
	if c.TTL <= 0 {
		c.TTL = DefaultDomainTTL
	}
	return c
}

// DomainAggregate is the visit history of one registrable domain. Values
// stored in the cache are never mutated; each visit stores a new one, so the
// eviction callback can read them without the shard lock.
type DomainAggregate struct {
	Domain      string
	TotalVisits int
	GoodPages   []CrawlItem
	flushed     bool
}

func (a *DomainAggregate) ready(cfg AggregatorConfig) bool {
	return a.TotalVisits >= cfg.NecessarySamples &&
		float64(len(a.GoodPages))/float64(a.TotalVisits) >= cfg.NecessaryRatio
}

type aggregatorShard struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *DomainAggregate]
}

// Aggregator tracks per-domain visit counts and good pages in a bounded,
// expiring cache. Domains hash onto independently locked shards.
type Aggregator struct {
	cfg    AggregatorConfig
	shards [aggregatorShards]*aggregatorShard
	logger *zap.Logger
}

// NewAggregator builds an Aggregator. Thresholds are taken as given; start
// from DefaultAggregatorConfig for the usual values.
func NewAggregator(cfg AggregatorConfig, logger *zap.Logger) *Aggregator {
	cfg = cfg.withLimits()
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{cfg: cfg, logger: logger}
	perShard := (cfg.MaxDomains + aggregatorShards - 1) / aggregatorShards
	for i := range a.shards {
		a.shards[i] = &aggregatorShard{
			cache: expirable.NewLRU[string, *DomainAggregate](perShard, a.onEvict, cfg.TTL),
		}
	}
	return a
}

// onEvict runs inside the LRU's own lock, possibly on the cache's cleanup
// goroutine. It must not touch the cache or take a shard lock.
func (a *Aggregator) onEvict(domain string, agg *DomainAggregate) {
	if agg == nil || agg.flushed {
		return
	}
	metrics.ObserveAggregateEvicted()
	a.logger.Debug("dropped unflushed domain aggregate",
		zap.String("domain", domain),
		zap.Int("total_visits", agg.TotalVisits),
		zap.Int("good_pages", len(agg.GoodPages)))
}

func (a *Aggregator) shard(domain string) *aggregatorShard {
	return a.shards[xxhash.Sum64String(domain)%aggregatorShards]
}

// Visit records one visit to domain. item is appended to the good pages when
// its page score reaches the necessary threshold. When the domain qualifies,
// its good pages are returned and its state is discarded.
func (a *Aggregator) Visit(domain string, item CrawlItem) (flushed []CrawlItem, ok bool) {
	s := a.shard(domain)
	s.mu.Lock()
	defer s.mu.Unlock()

	next := &DomainAggregate{Domain: domain}
	if prev, found := s.cache.Get(domain); found {
		next.TotalVisits = prev.TotalVisits
		next.GoodPages = slices.Clip(prev.GoodPages)
	}
	next.TotalVisits++
	if item.PageScore.Value >= a.cfg.NecessaryPageScore {
		next.GoodPages = append(next.GoodPages, item)
	}

	if next.ready(a.cfg) {
		next.flushed = true
		// Add replaces in place without a callback, so the removal below
		// reports a flushed aggregate rather than a dropped one.
		s.cache.Add(domain, next)
		s.cache.Remove(domain)
		return next.GoodPages, true
	}
	s.cache.Add(domain, next)
	return nil, false
}

// Peek returns a copy of a domain's aggregate without refreshing its TTL.
func (a *Aggregator) Peek(domain string) (DomainAggregate, bool) {
	s := a.shard(domain)
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.cache.Peek(domain)
	if !ok {
		return DomainAggregate{}, false
	}
	out := *agg
	out.GoodPages = append([]CrawlItem(nil), agg.GoodPages...)
	return out, true
}

// Len returns the number of domains currently tracked.
func (a *Aggregator) Len() int {
	n := 0
	for _, s := range a.shards {
		s.mu.Lock()
		n += s.cache.Len()
		s.mu.Unlock()
	}
	return n
}
