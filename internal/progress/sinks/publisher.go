package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
	"github.com/JakeFAU/dvsvc-crawler/internal/progress"
)

// Notification is the message body published for a crawl event.
type Notification struct {
	RunID string `json:"run_id"`
	progress.Event
}

// PublisherSink publishes every event it receives to a topic. Subscribe it
// with progress.Only(sink, progress.Milestones()...) so per-request traffic
// stays local.
type PublisherSink struct {
	publisher crawler.Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublisherSink wires a publisher and topic.
func NewPublisherSink(publisher crawler.Publisher, topic string, logger *zap.Logger) *PublisherSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublisherSink{publisher: publisher, topic: topic, logger: logger}
}

// Consume publishes the batch in order. The first failure stops the batch and
// is returned.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.publisher == nil {
		return nil
	}
	for _, evt := range batch {
		id, err := s.publisher.Publish(ctx, s.topic, Notification{
			RunID: evt.RunUUID().String(),
			Event: evt,
		})
		if err != nil {
			return fmt.Errorf("publish %s: %w", evt.Stage, err)
		}
		s.logger.Debug("published crawl event", zap.String("stage", string(evt.Stage)), zap.String("message_id", id))
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}
