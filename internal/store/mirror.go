package store

import (
	"github.com/archivekit/webarchiver/internal/crawlstate"
	"github.com/ternarybob/arbor"
)

// CrawlMirror implements crawlstate.Mirror by updating a Crawl row's
// page counters whenever the state manager records a result. It never
// sees a crawl before CreateCrawlIfNoneActive has inserted one, and a
// missing row (the crawl was deleted by retention mid-flight) is
// logged and otherwise ignored — the on-disk state file remains
// correct regardless of what this mirror does with it.
type CrawlMirror struct {
	crawls *CrawlStore
	logger arbor.ILogger
}

func NewCrawlMirror(crawls *CrawlStore, logger arbor.ILogger) *CrawlMirror {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &CrawlMirror{crawls: crawls, logger: logger}
}

var _ crawlstate.Mirror = (*CrawlMirror)(nil)

// MirrorProgress satisfies crawlstate.Mirror.
func (m *CrawlMirror) MirrorProgress(crawlID string, state *crawlstate.State) {
	crawl, err := m.crawls.Get(crawlID)
	if err != nil {
		m.logger.Warn().Err(err).Str("crawlId", crawlID).Msg("mirror: crawl row not found, skipping")
		return
	}

	crawl.SucceededPages = state.Succeeded.Size()
	crawl.FailedPages = state.Failed.Size()
	crawl.TotalPages = state.TotalDiscovered

	if err := m.crawls.Update(crawl); err != nil {
		m.logger.Warn().Err(err).Str("crawlId", crawlID).Msg("mirror: failed to persist progress")
	}
}
