package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// orderKeyPrefix namespaces order code mappings in Redis.
const orderKeyPrefix = "payos_order:"

// OrderCodeIndex maps a gateway order code to the hold key it pays
// for.  The webhook only carries the order code, so this index is the
// sole way to locate the pending hold.  The mapping must be written
// before the payment link is requested: a fast webhook can then never
// race ahead of the index write.
type OrderCodeIndex struct {
	rdb *redis.Client
}

// NewOrderCodeIndex returns an index backed by the given Redis client.
func NewOrderCodeIndex(rdb *redis.Client) *OrderCodeIndex {
	return &OrderCodeIndex{rdb: rdb}
}

// Map stores orderCode → holdKey with the given TTL.  Callers pass
// the hold's remaining lifetime so the index never outlives the hold
// it points at.
func (i *OrderCodeIndex) Map(ctx context.Context, orderCode int64, holdKey string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("map order code %d: non-positive ttl", orderCode)
	}
	key := fmt.Sprintf("%s%d", orderKeyPrefix, orderCode)
	if err := i.rdb.Set(ctx, key, holdKey, ttl).Err(); err != nil {
		return fmt.Errorf("map order code: %w", err)
	}
	return nil
}

// Resolve returns the hold key for an order code, or ErrHoldNotFound
// when the mapping is gone (expired hold or already-consumed order).
func (i *OrderCodeIndex) Resolve(ctx context.Context, orderCode int64) (string, error) {
	key := fmt.Sprintf("%s%d", orderKeyPrefix, orderCode)
	v, err := i.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrHoldNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve order code: %w", err)
	}
	return v, nil
}

// Delete removes a mapping after a successful confirm or an explicit
// abandon.  Absent keys are ignored.
func (i *OrderCodeIndex) Delete(ctx context.Context, orderCode int64) error {
	return i.rdb.Del(ctx, fmt.Sprintf("%s%d", orderKeyPrefix, orderCode)).Err()
}
