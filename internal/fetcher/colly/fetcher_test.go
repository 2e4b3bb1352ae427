package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
)

const servicePage = `<html><body>
<a href="/refuge#top">Refuge</a>
<a href="/refuge">Refuge again</a>
<a href="https://other.example.org/helpline">Helpline</a>
<a href="mailto:help@example.org">Mail</a>
<a href="#menu">Menu</a>
</body></html>`

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/services", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Trace") != "" {
			w.Header().Set("X-Echo", r.Header.Get("X-Trace"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Date", "Tue, 10 Nov 2009 23:00:00 GMT")
		_, _ = w.Write([]byte(servicePage))
	})
	mux.HandleFunc("/based/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><base href="https://mirror.example.org/dir/"></head>
<body><a href="page">Page</a><a href="/root">Root</a></body></html>`))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/services", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<a href="/home">home</a>`))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchReturnsBodyLinksAndServerDate(t *testing.T) {
	t.Parallel()

	srv := newSiteServer(t)
	f := New(Config{UserAgent: "test-agent", Timeout: time.Second})

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{
		URL:     srv.URL + "/services",
		Headers: http.Header{"X-Trace": {"yes"}},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, resp.OK())
	require.Contains(t, string(resp.Body), "Refuge")
	require.Equal(t, "yes", resp.Headers.Get("X-Echo"))
	require.Equal(t, time.Date(2009, time.November, 10, 23, 0, 0, 0, time.UTC), resp.FetchedAt)
	require.Equal(t, []string{
		srv.URL + "/refuge",
		"https://other.example.org/helpline",
	}, resp.Links)
}

func TestFetchResolvesLinksAgainstBaseHref(t *testing.T) {
	t.Parallel()

	srv := newSiteServer(t)
	f := New(Config{Timeout: time.Second})

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL + "/based/index.html"})
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://mirror.example.org/dir/page",
		"https://mirror.example.org/root",
	}, resp.Links)
}

func TestFetchDoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	srv := newSiteServer(t)
	f := New(Config{Timeout: time.Second})

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL + "/moved"})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.False(t, resp.OK())
}

func TestFetchReturnsErrorStatuses(t *testing.T) {
	t.Parallel()

	srv := newSiteServer(t)
	f := New(Config{Timeout: time.Second})

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL + "/missing"})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.False(t, resp.FetchedAt.IsZero())
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	srv := newSiteServer(t)
	f := New(Config{Timeout: 50 * time.Millisecond})

	_, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL + "/slow"})
	if !errors.Is(err, crawler.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestFetchRejectsLongURL(t *testing.T) {
	t.Parallel()

	f := New(Config{MaxURLLength: 32})
	_, err := f.Fetch(context.Background(), crawler.FetchRequest{
		URL: "https://example.org/" + strings.Repeat("a", 40),
	})
	require.ErrorIs(t, err, ErrURLTooLong)
}

func TestFetchHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	srv := newSiteServer(t)
	f := New(Config{Timeout: 5 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, crawler.FetchRequest{URL: srv.URL + "/slow"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	f.now = func() time.Time { return time.Unix(100, 0).UTC() }
	req := crawler.FetchRequest{
		URL:     "https://example.com",
		Headers: http.Header{"X-Trace": {"yes"}},
	}
	var (
		result   crawler.FetchResponse
		links    linkSet
		fetchErr error
	)

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, req, time.Unix(0, 0), &result, &links, &fetchErr)
	if hooks.onRequest == nil || hooks.onResponse == nil || hooks.onHTML == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}
	require.Equal(t, "a[href]", hooks.selector)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	if collyReq.Headers.Get("X-Trace") != "yes" {
		t.Fatalf("expected header propagation, got %+v", collyReq.Headers)
	}

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request: &colly.Request{
			URL: mustParseURL(t, "https://example.com"),
		},
	})
	if result.StatusCode != http.StatusCreated || string(result.Body) != "body" {
		t.Fatalf("unexpected result: %+v", result)
	}
	require.Equal(t, "ok", result.Headers.Get("X-Resp"))
	require.Equal(t, time.Unix(100, 0).UTC(), result.FetchedAt, "missing Date header falls back to the clock")

	hooks.onError(nil, errors.New("boom"))
	if fetchErr == nil || fetchErr.Error() != "boom" {
		t.Fatalf("expected fetchErr set, got %v", fetchErr)
	}
}

func TestCopyHeadersHandlesNil(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	collyReq := &colly.Request{Headers: &http.Header{}}
	f.copyHeaders(crawler.FetchRequest{}, collyReq)
	if len(*collyReq.Headers) != 0 {
		t.Fatalf("expected no headers to be copied, got %+v", *collyReq.Headers)
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onHTML     colly.HTMLCallback
	selector   string
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnHTML(selector string, cb colly.HTMLCallback) {
	s.selector = selector
	s.onHTML = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
