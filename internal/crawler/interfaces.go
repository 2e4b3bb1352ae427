package crawler

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Queue is the crawl frontier. Dequeue returns the highest priority item.
// Every dequeued item must be acknowledged with Done once its outbound links
// have been enqueued; the queue closes itself when nothing is pending.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
	Done()
	Close()
}

// Gate admits requests per registrable domain and learns from their outcome.
type Gate interface {
	// Blacklisted checks a domain without counting a request.
	Blacklisted(domain string) bool
	// ShouldAllow counts a request that is about to be sent.
	ShouldAllow(domain string) bool
	RecordOutcome(domain string, success bool)
}

// Limiter spaces out requests that share a key.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes crawl notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for snapshot keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewRunID() (uuid.UUID, error)
}
