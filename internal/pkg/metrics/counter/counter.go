package counter

import (
	"context"
	"strconv"

	"github.com/fixia-app/FixiaCore/internal/pkg/cache"
)

const (
	dispatchedKey    = "notify:counters:dispatched"
	pushDeliveredKey = "notify:counters:push_delivered"
	pushFailedKey    = "notify:counters:push_failed"
)

// AddDispatched increments the persisted-notification counter for a category.
func AddDispatched(category string) error {
	client := cache.GetClient()
	if client == nil {
		return nil
	}
	return client.HIncrBy(context.Background(), dispatchedKey, category, 1).Err()
}

// AddPushDelivered adds successfully delivered push sends.
func AddPushDelivered(n int) error {
	return incrField(pushDeliveredKey, "total", n)
}

// AddPushFailed adds failed push sends.
func AddPushFailed(n int) error {
	return incrField(pushFailedKey, "total", n)
}

func incrField(key, field string, n int) error {
	if n <= 0 {
		return nil
	}
	client := cache.GetClient()
	if client == nil {
		return nil
	}
	return client.HIncrBy(context.Background(), key, field, int64(n)).Err()
}

// Snapshot returns the current delivery counters for the admin stats view.
type Snapshot struct {
	DispatchedByCategory map[string]int64 `json:"dispatched_by_category"`
	PushDelivered        int64            `json:"push_delivered"`
	PushFailed           int64            `json:"push_failed"`
}

// Read collects all counters. Missing keys read as zero.
func Read() (*Snapshot, error) {
	client := cache.GetClient()
	snap := &Snapshot{DispatchedByCategory: map[string]int64{}}
	if client == nil {
		return snap, nil
	}
	ctx := context.Background()

	byCategory, err := client.HGetAll(ctx, dispatchedKey).Result()
	if err != nil {
		return nil, err
	}
	for category, raw := range byCategory {
		if v, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			snap.DispatchedByCategory[category] = v
		}
	}

	snap.PushDelivered = readTotal(ctx, pushDeliveredKey)
	snap.PushFailed = readTotal(ctx, pushFailedKey)
	return snap, nil
}

func readTotal(ctx context.Context, key string) int64 {
	raw, err := cache.GetClient().HGet(ctx, key, "total").Result()
	if err != nil {
		return 0
	}
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}
