package jobprocessor

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// crawlQueueKey is the single Redis list every job processor instance
// blocks on. Job id = CrawlID, which is also how cancel-while-pending
// finds and removes a queued-but-not-yet-dequeued envelope.
const crawlQueueKey = "jobs:crawl"

// Queue is the redis/go-redis-backed job list: RPUSH to enqueue,
// BLPOP to dequeue, LREM for directed removal on cancel.
type Queue struct {
	client goredis.UniversalClient
}

func NewQueue(client goredis.UniversalClient) *Queue {
	return &Queue{client: client}
}

// Enqueue appends envelope to the tail of the queue.
func (q *Queue) Enqueue(ctx context.Context, envelope JobEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal job envelope: %w", err)
	}
	if err := q.client.RPush(ctx, crawlQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("enqueue crawl job: %w", err)
	}
	return nil
}

// Dequeue blocks until a job arrives or ctx is done (BLPOP is issued
// with no server-side timeout). ctx ending is returned as an error; ok
// is false only for a nil reply, on which the caller should simply loop.
func (q *Queue) Dequeue(ctx context.Context) (JobEnvelope, bool, error) {
	result, err := q.client.BLPop(ctx, 0, crawlQueueKey).Result()
	if err == goredis.Nil {
		return JobEnvelope{}, false, nil
	}
	if err != nil {
		return JobEnvelope{}, false, fmt.Errorf("dequeue crawl job: %w", err)
	}
	// BLPop returns [key, value]; result[0] is always crawlQueueKey here.
	if len(result) != 2 {
		return JobEnvelope{}, false, fmt.Errorf("dequeue crawl job: unexpected reply shape %v", result)
	}

	var envelope JobEnvelope
	if err := json.Unmarshal([]byte(result[1]), &envelope); err != nil {
		return JobEnvelope{}, false, fmt.Errorf("unmarshal job envelope: %w", err)
	}
	return envelope, true, nil
}

// RemovePending removes every queued-but-undequeued envelope for
// crawlID, used by cancel-while-pending. Returns the number removed
// (0 or 1 in practice, since enqueue only ever happens once per crawl).
func (q *Queue) RemovePending(ctx context.Context, crawlID string) (int64, error) {
	entries, err := q.client.LRange(ctx, crawlQueueKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("scan crawl queue: %w", err)
	}

	var removed int64
	for _, raw := range entries {
		var envelope JobEnvelope
		if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
			continue
		}
		if envelope.CrawlID != crawlID {
			continue
		}
		n, err := q.client.LRem(ctx, crawlQueueKey, 1, raw).Result()
		if err != nil {
			return removed, fmt.Errorf("remove crawl job %s: %w", crawlID, err)
		}
		removed += n
	}
	return removed, nil
}
