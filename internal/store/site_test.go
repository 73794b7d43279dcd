package store_test

import (
	"path/filepath"
	"testing"

	"github.com/archivekit/webarchiver/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSiteStore_CreateAssignsIDAndDefaults(t *testing.T) {
	sites := store.NewSiteStore(openTestDB(t))

	created, err := sites.Create(store.Site{Name: "docs", BaseURL: "https://docs.example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an assigned ID")
	}
	if created.Concurrency != 5 {
		t.Fatalf("expected default concurrency 5, got %d", created.Concurrency)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestSiteStore_GetRoundTrips(t *testing.T) {
	sites := store.NewSiteStore(openTestDB(t))

	created, err := sites.Create(store.Site{Name: "blog", BaseURL: "https://blog.example.com", Concurrency: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := sites.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "blog" || got.Concurrency != 10 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestSiteStore_GetMissingReturnsNotFound(t *testing.T) {
	sites := store.NewSiteStore(openTestDB(t))

	if _, err := sites.Get("does-not-exist"); err == nil {
		t.Fatal("expected an error for a missing site")
	}
}

func TestSiteStore_ListOrdersByName(t *testing.T) {
	sites := store.NewSiteStore(openTestDB(t))

	for _, name := range []string{"zeta", "alpha", "mu"} {
		if _, err := sites.Create(store.Site{Name: name, BaseURL: "https://" + name + ".example.com"}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	list, err := sites.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 sites, got %d", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "mu" || list[2].Name != "zeta" {
		t.Fatalf("expected alphabetical order, got %v", []string{list[0].Name, list[1].Name, list[2].Name})
	}
}

func TestSiteStore_UpdatePersistsChanges(t *testing.T) {
	sites := store.NewSiteStore(openTestDB(t))

	created, err := sites.Create(store.Site{Name: "docs", BaseURL: "https://docs.example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created.MaxPages = 500
	if err := sites.Update(created); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := sites.Get(created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MaxPages != 500 {
		t.Fatalf("expected MaxPages 500, got %d", got.MaxPages)
	}
}

func TestSiteStore_DeleteRemovesRecord(t *testing.T) {
	sites := store.NewSiteStore(openTestDB(t))

	created, err := sites.Create(store.Site{Name: "docs", BaseURL: "https://docs.example.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sites.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := sites.Get(created.ID); err == nil {
		t.Fatal("expected site to be gone")
	}
}
