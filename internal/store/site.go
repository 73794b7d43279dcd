package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"
)

// SiteStore is the badgerhold-backed table of archivable origins.
type SiteStore struct {
	db *DB
}

func NewSiteStore(db *DB) *SiteStore {
	return &SiteStore{db: db}
}

// Create assigns a new ID and persists site, returning the stored
// record.
func (s *SiteStore) Create(site Site) (Site, error) {
	site.ID = uuid.NewString()
	site.CreatedAt = time.Now()
	site.UpdatedAt = site.CreatedAt
	if site.Concurrency <= 0 {
		site.Concurrency = 5
	}

	if err := s.db.Store().Insert(site.ID, &site); err != nil {
		return Site{}, newError(ErrCauseWriteFailure, false, "insert site %s: %v", site.ID, err)
	}
	return site, nil
}

// Update replaces the stored Site matching site.ID.
func (s *SiteStore) Update(site Site) error {
	site.UpdatedAt = time.Now()
	if err := s.db.Store().Update(site.ID, &site); err != nil {
		if err == badgerhold.ErrNotFound {
			return newError(ErrCauseNotFound, false, "site %s", site.ID)
		}
		return newError(ErrCauseWriteFailure, false, "update site %s: %v", site.ID, err)
	}
	return nil
}

func (s *SiteStore) Get(id string) (Site, error) {
	var site Site
	if err := s.db.Store().Get(id, &site); err != nil {
		if err == badgerhold.ErrNotFound {
			return Site{}, newError(ErrCauseNotFound, false, "site %s", id)
		}
		return Site{}, newError(ErrCauseQueryFailure, true, "get site %s: %v", id, err)
	}
	return site, nil
}

// List returns every Site, ordered by name.
func (s *SiteStore) List() ([]Site, error) {
	var sites []Site
	query := badgerhold.Where("ID").Ne("").SortBy("Name")
	if err := s.db.Store().Find(&sites, query); err != nil {
		return nil, newError(ErrCauseQueryFailure, true, "list sites: %v", err)
	}
	return sites, nil
}

// ListScheduled returns every schedule-enabled Site whose
// NextScheduledAt is at or before asOf, ordered so the most overdue
// site comes first.
func (s *SiteStore) ListScheduled(asOf time.Time) ([]Site, error) {
	var sites []Site
	query := badgerhold.Where("ScheduleEnabled").Eq(true).
		And("NextScheduledAt").Le(asOf).
		SortBy("NextScheduledAt")
	if err := s.db.Store().Find(&sites, query); err != nil {
		return nil, newError(ErrCauseQueryFailure, true, "list scheduled sites: %v", err)
	}
	return sites, nil
}

func (s *SiteStore) Delete(id string) error {
	if err := s.db.Store().Delete(id, &Site{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return newError(ErrCauseNotFound, false, "site %s", id)
		}
		return newError(ErrCauseWriteFailure, false, "delete site %s: %v", id, err)
	}
	return nil
}
