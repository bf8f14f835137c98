package receipt

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const (
	recentKey        = "adrs:receipts:recent"
	defaultRecentCap = 100
)

// RecentIndex keeps a bounded Redis list of the most recent receipts so the
// audit dashboard does not hit the relational store on every load. It is
// nil-safe: a nil index silently does nothing and callers fall back to the
// Store's List.
type RecentIndex struct {
	client *redis.Client
	cap    int64
}

// NewRecentIndex creates the index. Returns nil when no Redis client is
// configured.
func NewRecentIndex(client *redis.Client) *RecentIndex {
	if client == nil {
		return nil
	}
	return &RecentIndex{client: client, cap: defaultRecentCap}
}

// Push prepends the receipt and trims the list to capacity.
func (idx *RecentIndex) Push(ctx context.Context, r *DecisionReceipt) error {
	if idx == nil {
		return nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	pipe := idx.client.TxPipeline()
	pipe.LPush(ctx, recentKey, payload)
	pipe.LTrim(ctx, recentKey, 0, idx.cap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to limit receipts, most recent first. An empty result
// with a nil error means the cache has nothing; the caller should fall back
// to the store.
func (idx *RecentIndex) Recent(ctx context.Context, limit int) ([]DecisionReceipt, error) {
	if idx == nil {
		return nil, nil
	}
	if limit <= 0 || int64(limit) > idx.cap {
		limit = int(idx.cap)
	}
	raw, err := idx.client.LRange(ctx, recentKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DecisionReceipt, 0, len(raw))
	for _, item := range raw {
		var r DecisionReceipt
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Invalidate drops the cached list. Called after a review changes a
// receipt's status so the dashboard never serves a stale verdict.
func (idx *RecentIndex) Invalidate(ctx context.Context) error {
	if idx == nil {
		return nil
	}
	return idx.client.Del(ctx, recentKey).Err()
}
