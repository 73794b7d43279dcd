package cronscheduler

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	lockKey = "scheduler:crawl-check"
	lockTTL = 55 * time.Second
)

// acquireTickLock uses SET NX EX so only one replica's tick promotes due
// sites into jobs; every other replica's tick this minute is a no-op.
// instanceID is only useful for debugging which replica won — the lock
// itself is not re-entrant or renewed, it simply expires before the next
// tick is due.
func acquireTickLock(ctx context.Context, client goredis.UniversalClient, instanceID string) bool {
	ok, err := client.SetNX(ctx, lockKey, instanceID, lockTTL).Result()
	if err != nil {
		return false
	}
	return ok
}
