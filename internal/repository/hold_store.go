package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hotel-room-booking/internal/model"
)

// holdKeyPrefix namespaces hold entries in Redis.
const holdKeyPrefix = "temp_booking:"

// HoldStore keeps serialized holds in Redis with a TTL.  Entries
// self-expire; there is no sweeper.  All operations are atomic at the
// single-key level, which is the only consistency the hold pipeline
// needs before the confirm transaction takes over.
//
// Content is never updated in place: Save always writes the full
// record, so readers can never observe a partially written hold.
type HoldStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewHoldStore returns a HoldStore writing through the given Redis
// client.  ttl is the hold lifetime (30 minutes by default, from
// HOLD_TTL_SECONDS).
func NewHoldStore(rdb *redis.Client, ttl time.Duration) *HoldStore {
	return &HoldStore{rdb: rdb, ttl: ttl}
}

// TTL exposes the configured hold lifetime so callers can stamp
// ExpiresAt on new holds and mirror the TTL onto the order code index.
func (s *HoldStore) TTL() time.Duration { return s.ttl }

// Save stores a hold under temp_booking:<holdKey> with the configured
// TTL.  An existing entry with the same key is replaced wholesale.
func (s *HoldStore) Save(ctx context.Context, h *model.Hold) error {
	buf, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal hold: %w", err)
	}
	if err := s.rdb.Set(ctx, holdKeyPrefix+h.HoldKey, buf, s.ttl).Err(); err != nil {
		return fmt.Errorf("save hold: %w", err)
	}
	return nil
}

// Get loads a hold by key.  It returns ErrHoldNotFound both for keys
// that never existed and for keys whose TTL has elapsed; the two
// cases are deliberately indistinguishable.
func (s *HoldStore) Get(ctx context.Context, holdKey string) (*model.Hold, error) {
	buf, err := s.rdb.Get(ctx, holdKeyPrefix+holdKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrHoldNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load hold: %w", err)
	}
	var h model.Hold
	if err := json.Unmarshal(buf, &h); err != nil {
		return nil, fmt.Errorf("unmarshal hold: %w", err)
	}
	return &h, nil
}

// Delete removes a hold.  Deleting an absent key is not an error;
// confirm and expiry can race harmlessly here.
func (s *HoldStore) Delete(ctx context.Context, holdKey string) error {
	return s.rdb.Del(ctx, holdKeyPrefix+holdKey).Err()
}

// ExtendTTL resets the expiry window of an existing hold to the full
// configured TTL and updates its ExpiresAt field.  It returns
// ErrHoldNotFound when the hold has already expired; a hold cannot be
// resurrected, the user must restart checkout.
func (s *HoldStore) ExtendTTL(ctx context.Context, holdKey string) (*model.Hold, error) {
	h, err := s.Get(ctx, holdKey)
	if err != nil {
		return nil, err
	}
	h.ExpiresAt = time.Now().UTC().Add(s.ttl)
	if err := s.Save(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}
