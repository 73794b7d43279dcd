package cronscheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/archivekit/webarchiver/internal/jobprocessor"
	"github.com/archivekit/webarchiver/internal/store"
)

func newSchedulerTestRedis(t *testing.T) goredis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func newSchedulerTestStores(t *testing.T) (*store.SiteStore, *store.CrawlStore) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSiteStore(db), store.NewCrawlStore(db)
}

func TestScheduler_Tick_PromotesDueSite(t *testing.T) {
	sites, crawls := newSchedulerTestStores(t)
	redis := newSchedulerTestRedis(t)
	queue := jobprocessor.NewQueue(redis)
	sched := NewScheduler(sites, crawls, queue, redis, nil)

	site, err := sites.Create(store.Site{
		Name:            "docs",
		BaseURL:         "https://docs.example.com",
		ScheduleEnabled: true,
		ScheduleCron:    "*/5 * * * *",
		NextScheduledAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create site: %v", err)
	}

	sched.Tick(context.Background())

	active, err := crawls.HasActiveCrawl(site.ID)
	if err != nil {
		t.Fatalf("has active crawl: %v", err)
	}
	if !active {
		t.Fatal("expected a pending crawl to have been created")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	envelope, ok, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if !ok || envelope.SiteID != site.ID {
		t.Fatalf("expected the promoted crawl to be enqueued, got %+v ok=%v", envelope, ok)
	}

	got, err := sites.Get(site.ID)
	if err != nil {
		t.Fatalf("get site: %v", err)
	}
	if !got.NextScheduledAt.After(time.Now()) {
		t.Fatalf("expected nextScheduledAt to be recomputed into the future, got %v", got.NextScheduledAt)
	}
}

func TestScheduler_Tick_SkipsSiteWithActiveCrawl(t *testing.T) {
	sites, crawls := newSchedulerTestStores(t)
	redis := newSchedulerTestRedis(t)
	queue := jobprocessor.NewQueue(redis)
	sched := NewScheduler(sites, crawls, queue, redis, nil)

	site, err := sites.Create(store.Site{
		Name:            "docs",
		BaseURL:         "https://docs.example.com",
		ScheduleEnabled: true,
		ScheduleCron:    "*/5 * * * *",
		NextScheduledAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create site: %v", err)
	}
	existing, err := crawls.CreateCrawlIfNoneActive(site.ID)
	if err != nil {
		t.Fatalf("seed active crawl: %v", err)
	}

	sched.Tick(context.Background())

	all, err := crawls.ListBySite(site.ID, 10)
	if err != nil {
		t.Fatalf("list by site: %v", err)
	}
	if len(all) != 1 || all[0].ID != existing.ID {
		t.Fatalf("expected no second crawl to be created, got %+v", all)
	}
}

func TestScheduler_Tick_InvalidCronLeavesNextScheduledAtUnchanged(t *testing.T) {
	sites, crawls := newSchedulerTestStores(t)
	redis := newSchedulerTestRedis(t)
	queue := jobprocessor.NewQueue(redis)
	sched := NewScheduler(sites, crawls, queue, redis, nil)

	due := time.Now().Add(-time.Minute).Truncate(time.Second)
	site, err := sites.Create(store.Site{
		Name:            "docs",
		BaseURL:         "https://docs.example.com",
		ScheduleEnabled: true,
		ScheduleCron:    "not a cron expression",
		NextScheduledAt: due,
	})
	if err != nil {
		t.Fatalf("create site: %v", err)
	}

	sched.Tick(context.Background())

	got, err := sites.Get(site.ID)
	if err != nil {
		t.Fatalf("get site: %v", err)
	}
	if !got.NextScheduledAt.Equal(due) {
		t.Fatalf("expected nextScheduledAt to remain %v, got %v", due, got.NextScheduledAt)
	}
}

func TestScheduler_Tick_OnlyOneReplicaActsPerTick(t *testing.T) {
	sites, crawls := newSchedulerTestStores(t)
	redis := newSchedulerTestRedis(t)
	queue := jobprocessor.NewQueue(redis)
	first := NewScheduler(sites, crawls, queue, redis, nil)
	second := NewScheduler(sites, crawls, queue, redis, nil)

	site, err := sites.Create(store.Site{
		Name:            "docs",
		BaseURL:         "https://docs.example.com",
		ScheduleEnabled: true,
		ScheduleCron:    "*/5 * * * *",
		NextScheduledAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create site: %v", err)
	}

	first.Tick(context.Background())
	second.Tick(context.Background())

	all, err := crawls.ListBySite(site.ID, 10)
	if err != nil {
		t.Fatalf("list by site: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected exactly one replica to have promoted the site, got %d crawls", len(all))
	}
}
