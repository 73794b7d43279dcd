package store_test

import (
	"testing"

	"github.com/archivekit/webarchiver/internal/store"
)

func TestCrawlStore_CreateCrawlIfNoneActive_FirstCallSucceeds(t *testing.T) {
	crawls := store.NewCrawlStore(openTestDB(t))

	created, err := crawls.CreateCrawlIfNoneActive("site-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an assigned ID")
	}
	if created.Status != store.CrawlStatusPending {
		t.Fatalf("expected pending status, got %s", created.Status)
	}
}

func TestCrawlStore_CreateCrawlIfNoneActive_RejectsSecondWhileFirstActive(t *testing.T) {
	crawls := store.NewCrawlStore(openTestDB(t))

	if _, err := crawls.CreateCrawlIfNoneActive("site-1"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := crawls.CreateCrawlIfNoneActive("site-1"); err == nil {
		t.Fatal("expected the second enqueue to be rejected")
	}
}

func TestCrawlStore_CreateCrawlIfNoneActive_AllowsAfterPriorCompletes(t *testing.T) {
	crawls := store.NewCrawlStore(openTestDB(t))

	first, err := crawls.CreateCrawlIfNoneActive("site-1")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	first.Status = store.CrawlStatusCompleted
	if err := crawls.Update(first); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := crawls.CreateCrawlIfNoneActive("site-1"); err != nil {
		t.Fatalf("expected a second crawl to be allowed once the first completed: %v", err)
	}
}

func TestCrawlStore_CreateCrawlIfNoneActive_IndependentAcrossSites(t *testing.T) {
	crawls := store.NewCrawlStore(openTestDB(t))

	if _, err := crawls.CreateCrawlIfNoneActive("site-1"); err != nil {
		t.Fatalf("site-1 create: %v", err)
	}
	if _, err := crawls.CreateCrawlIfNoneActive("site-2"); err != nil {
		t.Fatalf("expected site-2 to be unaffected by site-1's active crawl: %v", err)
	}
}

func TestCrawlStore_ListBySite_MostRecentFirst(t *testing.T) {
	crawls := store.NewCrawlStore(openTestDB(t))

	first, err := crawls.CreateCrawlIfNoneActive("site-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first.Status = store.CrawlStatusCompleted
	if err := crawls.Update(first); err != nil {
		t.Fatalf("update: %v", err)
	}

	second, err := crawls.CreateCrawlIfNoneActive("site-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := crawls.ListBySite("site-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 crawls, got %d", len(list))
	}
	if list[0].ID != second.ID {
		t.Fatalf("expected most recently created crawl first, got %s", list[0].ID)
	}
}

func TestCrawlStore_HasActiveCrawl(t *testing.T) {
	crawls := store.NewCrawlStore(openTestDB(t))

	active, err := crawls.HasActiveCrawl("site-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if active {
		t.Fatal("expected no active crawl before one is created")
	}

	if _, err := crawls.CreateCrawlIfNoneActive("site-1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	active, err = crawls.HasActiveCrawl("site-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active {
		t.Fatal("expected an active crawl after creation")
	}
}
