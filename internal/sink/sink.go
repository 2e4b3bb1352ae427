// Package sink routes itemized pages and flushed batches to their outputs.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
	"github.com/JakeFAU/dvsvc-crawler/internal/frontier"
)

// Fanout delivers to every sink and joins their errors.
type Fanout []frontier.Sink

// Itemize implements frontier.Sink.
func (f Fanout) Itemize(ctx context.Context, item frontier.CrawlItem) error {
	var errs []error
	for _, s := range f {
		if err := s.Itemize(ctx, item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FlushBatch implements frontier.Sink.
func (f Fanout) FlushBatch(ctx context.Context, batch frontier.Batch) error {
	var errs []error
	for _, s := range f {
		if err := s.FlushBatch(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes every item and batch to a zap logger. It is the output of a crawl
// with no database configured.
type Log struct {
	logger *zap.Logger
}

// NewLog returns a Log sink.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Itemize implements frontier.Sink.
func (l *Log) Itemize(_ context.Context, item frontier.CrawlItem) error {
	l.logger.Info("crawl item",
		zap.String("link", item.Link),
		zap.Float64("pscore", item.PageScore.Value),
		zap.Float64("lscore", item.LinkValue()),
		zap.Time("time_queued", item.TimeQueued),
		zap.Time("time_crawled", item.TimeCrawled))
	return nil
}

// FlushBatch implements frontier.Sink.
func (l *Log) FlushBatch(_ context.Context, batch frontier.Batch) error {
	links := make([]string, 0, len(batch.Items))
	for _, it := range batch.Items {
		links = append(links, it.Link)
	}
	l.logger.Info("crawl item batch",
		zap.String("run_id", batch.RunID),
		zap.String("domain", batch.Domain),
		zap.Time("time_batched", batch.TimeBatched),
		zap.Strings("links", links))
	return nil
}

// ItemMessage is the published form of a crawl item.
type ItemMessage struct {
	Link        string    `json:"link"`
	PageScore   float64   `json:"pscore"`
	LinkScore   *float64  `json:"lscore,omitempty"`
	Matched     []string  `json:"matched,omitempty"`
	TimeQueued  time.Time `json:"time_queued"`
	TimeCrawled time.Time `json:"time_crawled"`
}

// BatchMessage is the published form of a batch.
type BatchMessage struct {
	RunID       string        `json:"run_id"`
	Domain      string        `json:"domain"`
	TimeBatched time.Time     `json:"time_batched"`
	Items       []ItemMessage `json:"items"`
}

// Publisher notifies downstream consumers about new items and batches.
type Publisher struct {
	publisher crawler.Publisher
	topic     string
}

// NewPublisher wires a publisher and topic.
func NewPublisher(publisher crawler.Publisher, topic string) *Publisher {
	return &Publisher{publisher: publisher, topic: topic}
}

// Itemize implements frontier.Sink.
func (p *Publisher) Itemize(ctx context.Context, item frontier.CrawlItem) error {
	if _, err := p.publisher.Publish(ctx, p.topic, toItemMessage(item)); err != nil {
		return fmt.Errorf("publish item: %w", err)
	}
	return nil
}

// FlushBatch implements frontier.Sink.
func (p *Publisher) FlushBatch(ctx context.Context, batch frontier.Batch) error {
	msg := BatchMessage{
		RunID:       batch.RunID,
		Domain:      batch.Domain,
		TimeBatched: batch.TimeBatched,
		Items:       make([]ItemMessage, 0, len(batch.Items)),
	}
	for _, it := range batch.Items {
		msg.Items = append(msg.Items, toItemMessage(it))
	}
	if _, err := p.publisher.Publish(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	return nil
}

func toItemMessage(item frontier.CrawlItem) ItemMessage {
	msg := ItemMessage{
		Link:        item.Link,
		PageScore:   item.PageScore.Value,
		Matched:     item.PageScore.Labels(),
		TimeQueued:  item.TimeQueued,
		TimeCrawled: item.TimeCrawled,
	}
	if item.LinkScore != nil {
		v := item.LinkScore.Value
		msg.LinkScore = &v
	}
	return msg
}
