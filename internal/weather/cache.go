package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/i474232898/weather-retrieval/internal/store"
)

// cacheEntry is the envelope persisted for every cached record.
type cacheEntry struct {
	Record   Record    `json:"record"`
	TTLTotal int64     `json:"ttlTotal"` // seconds
	StoredAt time.Time `json:"storedAt"`
}

// CachedRecord is a record read back from the cache together with its lifetime.
type CachedRecord struct {
	Key       string
	Record    Record
	TTLTotal  time.Duration
	StoredAt  time.Time
	Remaining time.Duration
}

// recordCache stores records in a CacheStore under this subsystem's key prefix.
type recordCache struct {
	store CacheStore
}

// get returns (nil, nil) on a miss and a CacheUnavailableError when the store fails.
func (c recordCache) get(ctx context.Context, key string) (*CachedRecord, error) {
	raw, remaining, err := c.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &CacheUnavailableError{Key: key, Err: err}
	}

	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, &CacheUnavailableError{Key: key, Err: fmt.Errorf("decode entry: %w", err)}
	}
	return &CachedRecord{
		Key:       key,
		Record:    entry.Record,
		TTLTotal:  time.Duration(entry.TTLTotal) * time.Second,
		StoredAt:  entry.StoredAt,
		Remaining: remaining,
	}, nil
}

func (c recordCache) set(ctx context.Context, key string, rec Record, ttl time.Duration, now time.Time) error {
	raw, err := json.Marshal(cacheEntry{
		Record:   rec,
		TTLTotal: int64(ttl / time.Second),
		StoredAt: now,
	})
	if err != nil {
		return &CacheWriteError{Key: key, Err: err}
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		return &CacheWriteError{Key: key, Err: err}
	}
	return nil
}
