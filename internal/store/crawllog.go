package store

import (
	"time"

	"github.com/timshannon/badgerhold/v4"
)

// CrawlLogStore is the append-only log of per-crawl events, the
// query-side complement to C6's on-disk state file.
type CrawlLogStore struct {
	db *DB
}

func NewCrawlLogStore(db *DB) *CrawlLogStore {
	return &CrawlLogStore{db: db}
}

// Append records one log line for crawlID. ID is assigned by
// badgerhold's auto-increment (the zero value signals "generate one").
func (s *CrawlLogStore) Append(crawlID, level, message, url string) error {
	entry := CrawlLog{
		CrawlID:   crawlID,
		Level:     level,
		Message:   message,
		URL:       url,
		CreatedAt: time.Now(),
	}
	if err := s.db.Store().Insert(badgerhold.NextSequence(), &entry); err != nil {
		return newError(ErrCauseWriteFailure, false, "append log for crawl %s: %v", crawlID, err)
	}
	return nil
}

// ListByCrawl returns crawlID's log entries oldest first, capped at
// limit when limit > 0.
func (s *CrawlLogStore) ListByCrawl(crawlID string, limit int) ([]CrawlLog, error) {
	var entries []CrawlLog
	query := badgerhold.Where("CrawlID").Eq(crawlID).SortBy("CreatedAt")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&entries, query); err != nil {
		return nil, newError(ErrCauseQueryFailure, true, "list logs for crawl %s: %v", crawlID, err)
	}
	return entries, nil
}

// DeleteByCrawl removes every log entry for crawlID, used when a
// crawl's archive is retired by retention.
func (s *CrawlLogStore) DeleteByCrawl(crawlID string) error {
	query := badgerhold.Where("CrawlID").Eq(crawlID)
	if err := s.db.Store().DeleteMatching(&CrawlLog{}, query); err != nil {
		return newError(ErrCauseWriteFailure, false, "delete logs for crawl %s: %v", crawlID, err)
	}
	return nil
}
