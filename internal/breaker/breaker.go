// Package breaker gates outbound requests per registrable domain.
//
// Every domain carries two monotonically increasing counters: requests
// dispatched and bad responses received. Crossing either threshold moves the
// domain onto a blacklist for the rest of the run. A static list of seeded
// domains is blacklisted from the start.
package breaker

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/metrics"
)

// ErrDomainBlacklisted marks a request rejected before dispatch.
var ErrDomainBlacklisted = errors.New("domain blacklisted")

// DefaultMaxBadResponses matches the historical crawl configuration.
const DefaultMaxBadResponses = 10

// Reason explains why a domain is blacklisted.
type Reason string

// Blacklist reasons.
const (
	ReasonNone         Reason = ""
	ReasonStatic       Reason = "static"
	ReasonRequests     Reason = "max_requests"
	ReasonBadResponses Reason = "bad_responses"
)

// Config sets the breaker thresholds.
type Config struct {
	// MaxRequests blacklists a domain once this many requests were allowed.
	// Zero disables the limit.
	MaxRequests int
	// MaxBadResponses blacklists a domain once this many failures were recorded.
	MaxBadResponses int
	// Static lists domains that are blacklisted from the start.
	Static []string
}

// Listener is notified when a domain is blacklisted. It is called outside
// the domain's lock.
type Listener func(domain string, reason Reason)

// DomainStatus is a point-in-time view of one domain.
type DomainStatus struct {
	Domain       string `json:"domain"`
	Requests     int    `json:"requests"`
	BadResponses int    `json:"bad_responses"`
	Blacklisted  bool   `json:"blacklisted"`
	Reason       Reason `json:"reason,omitempty"`
}

type domainState struct {
	mu           sync.Mutex
	requests     int
	badResponses int
	reason       Reason
}

// Breaker is safe for concurrent use. Each domain is guarded by its own
// mutex so unrelated domains never contend.
type Breaker struct {
	cfg      Config
	static   *patternList
	domains  sync.Map // string -> *domainState
	logger   *zap.Logger
	listener Listener
}

// New builds a Breaker. A non-positive MaxBadResponses uses the default.
func New(cfg Config, logger *zap.Logger) *Breaker {
	if cfg.MaxBadResponses <= 0 {
		cfg.MaxBadResponses = DefaultMaxBadResponses
	}
	if cfg.MaxRequests < 0 {
		cfg.MaxRequests = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		cfg:    cfg,
		static: newPatternList(cfg.Static),
		logger: logger,
	}
}

// OnBlacklist registers a listener. It must be set before the breaker is shared.
func (b *Breaker) OnBlacklist(l Listener) {
	b.listener = l
}

func (b *Breaker) state(domain string) *domainState {
	if v, ok := b.domains.Load(domain); ok {
		return v.(*domainState)
	}
	v, _ := b.domains.LoadOrStore(domain, &domainState{})
	return v.(*domainState)
}

func normalize(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}

// ShouldAllow reports whether a request to domain may be dispatched and, if
// so, counts it. The request that reaches MaxRequests is still allowed; the
// domain is blacklisted for every request after it.
func (b *Breaker) ShouldAllow(domain string) bool {
	domain = normalize(domain)
	if domain == "" {
		return true
	}
	if b.static.Matches(domain) {
		metrics.ObserveRejected()
		return false
	}

	st := b.state(domain)
	st.mu.Lock()
	if st.reason != ReasonNone {
		st.mu.Unlock()
		metrics.ObserveRejected()
		return false
	}
	st.requests++
	tripped := b.cfg.MaxRequests > 0 && st.requests >= b.cfg.MaxRequests
	if tripped {
		st.reason = ReasonRequests
	}
	requests := st.requests
	st.mu.Unlock()

	if tripped {
		b.blacklisted(domain, ReasonRequests, zap.Int("requests", requests))
	}
	return true
}

// RecordOutcome records a completed attempt. Timeouts and non-success
// statuses are both failures.
func (b *Breaker) RecordOutcome(domain string, success bool) {
	domain = normalize(domain)
	if domain == "" || success {
		return
	}

	st := b.state(domain)
	st.mu.Lock()
	st.badResponses++
	tripped := st.reason == ReasonNone && st.badResponses >= b.cfg.MaxBadResponses
	if tripped {
		st.reason = ReasonBadResponses
	}
	bad := st.badResponses
	st.mu.Unlock()

	if tripped {
		b.blacklisted(domain, ReasonBadResponses, zap.Int("bad_responses", bad))
	}
}

func (b *Breaker) blacklisted(domain string, reason Reason, fields ...zap.Field) {
	metrics.ObserveBlacklisted(string(reason))
	b.logger.Info("blacklisted domain",
		append([]zap.Field{zap.String("domain", domain), zap.String("reason", string(reason))}, fields...)...)
	if b.listener != nil {
		b.listener(domain, reason)
	}
}

// Blacklisted reports whether domain is rejected, without counting a request.
func (b *Breaker) Blacklisted(domain string) bool {
	domain = normalize(domain)
	if domain == "" {
		return false
	}
	if b.static.Matches(domain) {
		return true
	}
	v, ok := b.domains.Load(domain)
	if !ok {
		return false
	}
	st := v.(*domainState)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.reason != ReasonNone
}

// Status returns the counters of one domain.
func (b *Breaker) Status(domain string) DomainStatus {
	domain = normalize(domain)
	status := DomainStatus{Domain: domain}
	if v, ok := b.domains.Load(domain); ok {
		st := v.(*domainState)
		st.mu.Lock()
		status.Requests = st.requests
		status.BadResponses = st.badResponses
		status.Reason = st.reason
		st.mu.Unlock()
	}
	if status.Reason == ReasonNone && b.static.Matches(domain) {
		status.Reason = ReasonStatic
	}
	status.Blacklisted = status.Reason != ReasonNone
	return status
}

// Snapshot returns every domain with counters, sorted by name. Statically
// blacklisted domains never accumulate counters and are not listed.
func (b *Breaker) Snapshot() []DomainStatus {
	var names []string
	b.domains.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	out := make([]DomainStatus, 0, len(names))
	for _, name := range names {
		out = append(out, b.Status(name))
	}
	return out
}

// StaticSize returns the number of seeded patterns.
func (b *Breaker) StaticSize() int {
	return b.static.Len()
}
