package store

import (
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"
)

// CrawlStore is the badgerhold-backed table of crawl executions.
type CrawlStore struct {
	db *DB
}

func NewCrawlStore(db *DB) *CrawlStore {
	return &CrawlStore{db: db}
}

// CreateCrawlIfNoneActive enqueues a new Crawl for siteID in
// CrawlStatusPending, unless that site already has a Crawl in
// pending, running, or uploading. The check and the insert happen
// inside one badger transaction, so two enqueue requests racing for
// the same site can never both win.
//
// badgerhold has no query-then-insert helper of its own; this is the
// one place this package reaches past badgerhold's table API down to
// the raw *badger.Txn it is built on.
func (s *CrawlStore) CreateCrawlIfNoneActive(siteID string) (Crawl, error) {
	var created Crawl

	err := s.db.Badger().Update(func(txn *badger.Txn) error {
		for _, status := range activeCrawlStatuses {
			var existing []Crawl
			query := badgerhold.Where("SiteID").Eq(siteID).And("Status").Eq(status)
			if err := s.db.Store().TxFind(txn, &existing, query); err != nil {
				return newError(ErrCauseQueryFailure, true, "check active crawls for site %s: %v", siteID, err)
			}
			if len(existing) > 0 {
				return newError(ErrCauseActiveCrawl, false, "site %s", siteID)
			}
		}

		now := time.Now()
		created = Crawl{
			ID:        uuid.NewString(),
			SiteID:    siteID,
			Status:    CrawlStatusPending,
			CreatedAt: now,
		}
		if err := s.db.Store().TxInsert(txn, created.ID, &created); err != nil {
			return newError(ErrCauseWriteFailure, false, "insert crawl for site %s: %v", siteID, err)
		}
		return nil
	})
	if err != nil {
		return Crawl{}, err
	}
	return created, nil
}

// Update replaces the stored Crawl matching crawl.ID. Callers are
// expected to have already mutated Status/CompletedAt/etc per the
// crawl's lifecycle; this store does not validate transitions.
func (s *CrawlStore) Update(crawl Crawl) error {
	if err := s.db.Store().Update(crawl.ID, &crawl); err != nil {
		if err == badgerhold.ErrNotFound {
			return newError(ErrCauseNotFound, false, "crawl %s", crawl.ID)
		}
		return newError(ErrCauseWriteFailure, false, "update crawl %s: %v", crawl.ID, err)
	}
	return nil
}

func (s *CrawlStore) Get(id string) (Crawl, error) {
	var crawl Crawl
	if err := s.db.Store().Get(id, &crawl); err != nil {
		if err == badgerhold.ErrNotFound {
			return Crawl{}, newError(ErrCauseNotFound, false, "crawl %s", id)
		}
		return Crawl{}, newError(ErrCauseQueryFailure, true, "get crawl %s: %v", id, err)
	}
	return crawl, nil
}

// ListBySite returns every Crawl for siteID, most recent first.
func (s *CrawlStore) ListBySite(siteID string, limit int) ([]Crawl, error) {
	var crawls []Crawl
	query := badgerhold.Where("SiteID").Eq(siteID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&crawls, query); err != nil {
		return nil, newError(ErrCauseQueryFailure, true, "list crawls for site %s: %v", siteID, err)
	}
	return crawls, nil
}

// ListCompletedBySite returns a site's completed crawls, most recent
// first — the ordering MaxArchivesToKeep retention walks.
func (s *CrawlStore) ListCompletedBySite(siteID string) ([]Crawl, error) {
	var crawls []Crawl
	query := badgerhold.Where("SiteID").Eq(siteID).
		And("Status").Eq(CrawlStatusCompleted).
		SortBy("CompletedAt").Reverse()
	if err := s.db.Store().Find(&crawls, query); err != nil {
		return nil, newError(ErrCauseQueryFailure, true, "list completed crawls for site %s: %v", siteID, err)
	}
	return crawls, nil
}

// HasActiveCrawl reports whether siteID currently has a Crawl in
// pending, running, or uploading. Exposed for status endpoints; the
// authoritative check remains CreateCrawlIfNoneActive's transaction.
func (s *CrawlStore) HasActiveCrawl(siteID string) (bool, error) {
	for _, status := range activeCrawlStatuses {
		var existing []Crawl
		query := badgerhold.Where("SiteID").Eq(siteID).And("Status").Eq(status)
		if err := s.db.Store().Find(&existing, query); err != nil {
			return false, newError(ErrCauseQueryFailure, true, "check active crawls for site %s: %v", siteID, err)
		}
		if len(existing) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *CrawlStore) Delete(id string) error {
	if err := s.db.Store().Delete(id, &Crawl{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return newError(ErrCauseNotFound, false, "crawl %s", id)
		}
		return newError(ErrCauseWriteFailure, false, "delete crawl %s: %v", id, err)
	}
	return nil
}
