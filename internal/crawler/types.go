package crawler

import (
	"errors"
	"net/http"
	"time"

	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
)

// StatusRejected marks a synthetic response for a request the domain gate
// refused. No network traffic happened.
const StatusRejected = -1

var (
	// ErrTimeout reports a fetch that exceeded the download timeout.
	ErrTimeout = errors.New("fetch timed out")
	// ErrQueueClosed is returned by Dequeue once the frontier is drained.
	ErrQueueClosed = errors.New("queue closed")
	// ErrQueueFull is returned when a bounded queue cannot take another item.
	ErrQueueFull = errors.New("queue full")
)

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	// Links are the absolute http(s) URLs of the page's anchors.
	Links []string
	// FetchedAt is the server's Date header when present.
	FetchedAt time.Time
	Duration  time.Duration
}

// OK reports a 2xx response.
func (r FetchResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Rejected builds the synthetic response for a refused request.
func Rejected(url string, at time.Time) FetchResponse {
	return FetchResponse{URL: url, StatusCode: StatusRejected, FetchedAt: at}
}

// QueueItem is a URL waiting in the frontier.
type QueueItem struct {
	URL      string
	Priority int
	// LinkScore is nil for seeds.
	LinkScore  *scoring.Score
	TimeQueued time.Time
}
