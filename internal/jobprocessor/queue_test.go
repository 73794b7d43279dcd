package jobprocessor_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/archivekit/webarchiver/internal/jobprocessor"
)

func newTestRedisClient(t *testing.T) goredis.UniversalClient {
	t.Helper()
	mr := miniredis.RunT(t)
	return goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func TestQueue_EnqueueDequeueRoundTrips(t *testing.T) {
	client := newTestRedisClient(t)
	queue := jobprocessor.NewQueue(client)

	envelope := jobprocessor.JobEnvelope{SiteID: "site-1", CrawlID: "crawl-1"}
	if err := queue.Enqueue(context.Background(), envelope); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, ok, err := queue.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if !ok {
		t.Fatal("expected a job to be dequeued")
	}
	if got != envelope {
		t.Fatalf("expected %+v, got %+v", envelope, got)
	}
}

func TestQueue_RemovePending_RemovesOnlyMatchingCrawl(t *testing.T) {
	client := newTestRedisClient(t)
	queue := jobprocessor.NewQueue(client)
	ctx := context.Background()

	if err := queue.Enqueue(ctx, jobprocessor.JobEnvelope{SiteID: "s1", CrawlID: "crawl-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := queue.Enqueue(ctx, jobprocessor.JobEnvelope{SiteID: "s2", CrawlID: "crawl-2"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	removed, err := queue.RemovePending(ctx, "crawl-1")
	if err != nil {
		t.Fatalf("remove pending: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	dequeueCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	got, ok, err := queue.Dequeue(dequeueCtx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if !ok || got.CrawlID != "crawl-2" {
		t.Fatalf("expected crawl-2 to remain, got %+v ok=%v", got, ok)
	}
}

func TestQueue_RemovePending_NoMatchIsNotAnError(t *testing.T) {
	client := newTestRedisClient(t)
	queue := jobprocessor.NewQueue(client)

	removed, err := queue.RemovePending(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 removed, got %d", removed)
	}
}
