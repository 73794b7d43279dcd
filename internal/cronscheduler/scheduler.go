package cronscheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"

	"github.com/archivekit/webarchiver/internal/jobprocessor"
	"github.com/archivekit/webarchiver/internal/store"
)

/*
Responsibilities
- Tick once a minute, win the scheduler:crawl-check lock on at most one
  replica, and promote every site whose nextScheduledAt is due into a
  new pending Crawl
- Recompute each promoted site's nextScheduledAt from its own cron
  expression, leaving it untouched when that expression no longer
  parses

This package is cooperatively single-threaded within one replica and
globally serialized across replicas by the Redis lock acquired each
tick; it holds no state of its own between ticks beyond the lock.
*/

// Scheduler is C10: the cron-driven promoter of due sites into queued
// crawl jobs.
type Scheduler struct {
	sites      *store.SiteStore
	crawls     *store.CrawlStore
	queue      *jobprocessor.Queue
	redis      goredis.UniversalClient
	instanceID string
	logger     arbor.ILogger
}

func NewScheduler(
	sites *store.SiteStore,
	crawls *store.CrawlStore,
	queue *jobprocessor.Queue,
	redis goredis.UniversalClient,
	logger arbor.ILogger,
) *Scheduler {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Scheduler{
		sites:      sites,
		crawls:     crawls,
		queue:      queue,
		redis:      redis,
		instanceID: uuid.NewString(),
		logger:     logger,
	}
}

// Run ticks every minute until ctx is cancelled, running one Tick per
// firing. The first tick runs immediately rather than waiting a full
// minute after startup.
func (s *Scheduler) Run(ctx context.Context) {
	s.Tick(ctx)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick attempts to acquire this minute's lock and, if successful,
// promotes every due site. A lost lock race is not an error — it
// means another replica is handling this tick.
func (s *Scheduler) Tick(ctx context.Context) {
	if !acquireTickLock(ctx, s.redis, s.instanceID) {
		return
	}

	now := time.Now()
	due, err := s.sites.ListScheduled(now)
	if err != nil {
		s.logger.Warn().Err(err).Msg("list scheduled sites failed")
		return
	}

	for _, site := range due {
		s.promote(ctx, site, now)
	}
}

// promote enqueues site's next crawl, relying on CreateCrawlIfNoneActive's
// own transaction to skip it when one is already active, and always
// recomputes nextScheduledAt so a site whose crawl is already running
// doesn't get re-offered every minute.
func (s *Scheduler) promote(ctx context.Context, site store.Site, now time.Time) {
	crawl, err := s.crawls.CreateCrawlIfNoneActive(site.ID)
	if err != nil {
		var storeErr *store.StoreError
		if !errors.As(err, &storeErr) || storeErr.Cause != store.ErrCauseActiveCrawl {
			s.logger.Warn().Err(err).Str("siteId", site.ID).Msg("create scheduled crawl failed")
		}
	} else if err := s.queue.Enqueue(ctx, jobprocessor.JobEnvelope{SiteID: site.ID, CrawlID: crawl.ID}); err != nil {
		s.logger.Warn().Err(err).Str("siteId", site.ID).Str("crawlId", crawl.ID).Msg("enqueue scheduled crawl failed")
	}

	s.rescheduleNext(site, now)
}

// rescheduleNext recomputes site.NextScheduledAt from its cron
// expression. An expression that no longer parses is logged and left
// untouched, rather than silently disabling the site's schedule.
func (s *Scheduler) rescheduleNext(site store.Site, now time.Time) {
	schedule, err := cron.ParseStandard(site.ScheduleCron)
	if err != nil {
		s.logger.Warn().Err(err).Str("siteId", site.ID).Str("cron", site.ScheduleCron).Msg("invalid cron expression, leaving nextScheduledAt unchanged")
		return
	}

	site.NextScheduledAt = schedule.Next(now)
	if err := s.sites.Update(site); err != nil {
		s.logger.Warn().Err(err).Str("siteId", site.ID).Msg("persist next scheduled time failed")
	}
}
