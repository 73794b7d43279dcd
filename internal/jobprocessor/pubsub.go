package jobprocessor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Publisher fans progress and log events onto crawl:<crawlId>.
// Subscribers are not globally ordered and must tolerate out-of-order
// or duplicate delivery; this type makes no attempt to buffer or
// retry a failed publish beyond returning the error to its caller.
type Publisher struct {
	client goredis.UniversalClient
}

func NewPublisher(client goredis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

func channelFor(crawlID string) string {
	return "crawl:" + crawlID
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal crawl event: %w", err)
	}
	if err := p.client.Publish(ctx, channelFor(event.CrawlID), payload).Err(); err != nil {
		return fmt.Errorf("publish crawl event: %w", err)
	}
	return nil
}

func (p *Publisher) PublishProgress(ctx context.Context, crawlID string, progress ProgressEvent) error {
	return p.publish(ctx, Event{
		Kind:     EventKindProgress,
		CrawlID:  crawlID,
		At:       time.Now(),
		Progress: &progress,
	})
}

func (p *Publisher) PublishLog(ctx context.Context, crawlID string, log LogEvent) error {
	return p.publish(ctx, Event{
		Kind:    EventKindLog,
		CrawlID: crawlID,
		At:      time.Now(),
		Log:     &log,
	})
}
