// Package collyfetcher implements Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
	"github.com/JakeFAU/dvsvc-crawler/internal/frontier"
)

const (
	// DefaultTimeout bounds a single download.
	DefaultTimeout = 15 * time.Second
	// DefaultUserAgent identifies the crawler to site operators.
	DefaultUserAgent = "dvsvc-crawler (+https://github.com/JakeFAU/dvsvc-crawler)"
)

// ErrURLTooLong rejects a URL before any request is made.
var ErrURLTooLong = errors.New("url exceeds maximum length")

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxURLLength  int
	MaxBodyBytes  int
}

// Fetcher implements crawler.Fetcher using the Colly collector. Redirects are
// returned as-is and nothing is retried.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	now           func() time.Time
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnHTML(string, colly.HTMLCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxURLLength <= 0 {
		cfg.MaxURLLength = frontier.DefaultMaxURLLength
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.UserAgent(cfg.UserAgent),
	)
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.ParseHTTPErrorResponse = true
	if cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = cfg.MaxBodyBytes
	}
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)
	c.SetRedirectHandler(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	if len(request.URL) > f.cfg.MaxURLLength {
		return crawler.FetchResponse{}, fmt.Errorf("%w: %d bytes", ErrURLTooLong, len(request.URL))
	}
	var (
		result   crawler.FetchResponse
		links    linkSet
		fetchErr error
	)
	start := time.Now()
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, request, start, &result, &links, &fetchErr)

	if err := f.runCollector(ctx, collector, request.URL, &fetchErr); err != nil {
		return crawler.FetchResponse{}, err
	}
	result.Links = links.urls
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request crawler.FetchRequest,
	start time.Time,
	result *crawler.FetchResponse,
	links *linkSet,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = crawler.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			FetchedAt:  f.responseTime(headers),
			Duration:   time.Since(start),
		}
	})

	hooks.OnHTML("a[href]", func(e *colly.HTMLElement) {
		// AbsoluteURL resolves against <base href> when the page declares one.
		resolved := e.Request.AbsoluteURL(strings.TrimSpace(e.Attr("href")))
		if resolved == "" {
			return
		}
		if abs, ok := frontier.Canonicalize(nil, resolved); ok {
			links.add(abs)
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err == nil {
			err = *fetchErr
		}
		if err == nil {
			return nil
		}
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", crawler.ErrTimeout, err)
		}
		return fmt.Errorf("colly visit failed: %w", err)
	}
}

// responseTime prefers the server's Date header so crawl times follow the
// site's clock.
func (f *Fetcher) responseTime(headers http.Header) time.Time {
	if raw := headers.Get("Date"); raw != "" {
		if t, err := http.ParseTime(raw); err == nil {
			return t.UTC()
		}
	}
	return f.now()
}

func (f *Fetcher) copyHeaders(request crawler.FetchRequest, r *colly.Request) {
	if request.Headers == nil {
		return
	}
	for key, values := range request.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type linkSet struct {
	seen map[string]struct{}
	urls []string
}

func (s *linkSet) add(u string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[u]; ok {
		return
	}
	s.seen[u] = struct{}{}
	s.urls = append(s.urls, u)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
	}
}
