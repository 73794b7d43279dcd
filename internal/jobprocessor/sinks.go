package jobprocessor

import (
	"context"

	"github.com/archivekit/webarchiver/internal/crawlengine"
	"github.com/archivekit/webarchiver/internal/store"
	"github.com/ternarybob/arbor"
)

// engineSinks is the production crawlengine.ProgressSink/LogSink pair:
// it fans every callback into a CrawlLog row and the crawl's pub/sub
// channel. One instance is built per job; ctx is the job's own
// context, so once the job is cancelled late publishes fail fast and
// are logged as warnings rather than blocking the worker that raised
// them. CrawlLog rows do not depend on ctx and are still appended.
type engineSinks struct {
	ctx     context.Context
	crawlID string
	logs    *store.CrawlLogStore
	pub     *Publisher
	logger  arbor.ILogger
}

func newEngineSinks(ctx context.Context, crawlID string, logs *store.CrawlLogStore, pub *Publisher, logger arbor.ILogger) *engineSinks {
	return &engineSinks{ctx: ctx, crawlID: crawlID, logs: logs, pub: pub, logger: logger}
}

func (s *engineSinks) OnProgress(p crawlengine.Progress) {
	if err := s.pub.PublishProgress(s.ctx, s.crawlID, ProgressEvent{
		Total:      p.Total,
		Succeeded:  p.Succeeded,
		Failed:     p.Failed,
		CurrentURL: p.CurrentURL,
	}); err != nil {
		s.logger.Warn().Err(err).Str("crawlId", s.crawlID).Msg("publish progress failed")
	}
}

func (s *engineSinks) OnLog(level string, message string, attrs map[string]string) {
	url := attrs["url"]
	if err := s.logs.Append(s.crawlID, level, message, url); err != nil {
		s.logger.Warn().Err(err).Str("crawlId", s.crawlID).Msg("append crawl log failed")
	}
	if err := s.pub.PublishLog(s.ctx, s.crawlID, LogEvent{
		Level:   level,
		Message: message,
		URL:     url,
		Attrs:   attrs,
	}); err != nil {
		s.logger.Warn().Err(err).Str("crawlId", s.crawlID).Msg("publish log failed")
	}
}

var _ crawlengine.ProgressSink = (*engineSinks)(nil)
var _ crawlengine.LogSink = (*engineSinks)(nil)
