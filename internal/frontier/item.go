// Package frontier decides what the crawler keeps and what it fetches next.
//
// The Controller scores each visited page, itemizes strong pages immediately,
// accumulates per-domain evidence in an Aggregator until a domain proves
// itself, and turns outbound link scores into schedule priorities.
package frontier

import (
	"context"
	"time"

	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
)

// CrawlItem is a candidate relevant page. It is never mutated after creation.
type CrawlItem struct {
	Link string
	// PageScore is the page's own score.
	PageScore scoring.Score
	// LinkScore is the score the page had when it was queued. Seeds have none.
	LinkScore   *scoring.Score
	TimeQueued  time.Time
	TimeCrawled time.Time
}

// LinkValue returns the queued link score, or zero for seeds.
func (i CrawlItem) LinkValue() float64 {
	if i.LinkScore == nil {
		return 0
	}
	return i.LinkScore.Value
}

// Batch is a set of good pages from one registrable domain.
type Batch struct {
	RunID       string
	Domain      string
	Items       []CrawlItem
	TimeBatched time.Time
}

// OutboundLink is a discovered URL with its schedule priority.
type OutboundLink struct {
	URL      string
	Score    scoring.Score
	Priority int
	Domain   string
}

// Priority maps a link score onto an integer schedule priority. Truncation
// toward zero keeps every score in (-1, 1) within [-9, 9].
func Priority(lscore float64) int {
	return int(lscore * 10)
}

// Sink receives itemized pages and flushed batches.
type Sink interface {
	Itemize(ctx context.Context, item CrawlItem) error
	FlushBatch(ctx context.Context, batch Batch) error
}
