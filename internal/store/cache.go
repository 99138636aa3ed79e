// internal/store/cache.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"feed-ranking-workers/internal/models"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

const (
	scoreKeyPrefix   = "feed:score:"
	profileKeyPrefix = "feed:profile:"
)

// ScoreKey is the Redis key of one viewer/item score.
func ScoreKey(userID string, itemType models.ItemType, itemID string) string {
	return fmt.Sprintf("%s%s:%s:%s", scoreKeyPrefix, userID, itemType, itemID)
}

// Fingerprinter hashes the inputs a score is computed from. A cached
// breakdown is only served when its fingerprint matches the current one.
type Fingerprinter struct {
	profile []byte
}

// NewFingerprinter encodes the viewer profile once for a whole batch.
func NewFingerprinter(profile *models.Profile) *Fingerprinter {
	data, _ := json.Marshal(profile)
	return &Fingerprinter{profile: data}
}

// Item returns the fingerprint of one item scored with the given history,
// follow flag and author location.
func (f *Fingerprinter) Item(item models.CandidateItem, history models.InteractionHistory, follows bool, authorLocation string) string {
	d := xxhash.New()
	d.Write(f.profile)
	d.WriteString("\x00")
	if data, err := json.Marshal(item); err == nil {
		d.Write(data)
	}
	d.WriteString("\x00")
	if data, err := json.Marshal(history); err == nil {
		d.Write(data)
	}
	fmt.Fprintf(d, "\x00%t\x00%s", follows, authorLocation)
	return fmt.Sprintf("%016x", d.Sum64())
}

type scoreEntry struct {
	Fingerprint string                `json:"fingerprint"`
	Breakdown   models.ScoreBreakdown `json:"breakdown"`
}

// ScoreCache keeps per-viewer score breakdowns for a short TTL. A zero TTL
// disables it: lookups miss and writes are dropped.
type ScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewScoreCache creates a score cache on the given Redis client.
func NewScoreCache(client *redis.Client, ttl time.Duration) *ScoreCache {
	return &ScoreCache{client: client, ttl: ttl}
}

// Enabled reports whether lookups and writes reach Redis.
func (c *ScoreCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetMany returns cached breakdowns keyed by item id. Undecodable entries and
// entries whose fingerprint differs from fingerprints[item.ID] count as
// misses.
func (c *ScoreCache) GetMany(ctx context.Context, userID string, items []models.CandidateItem, fingerprints map[string]string) (map[string]models.ScoreBreakdown, error) {
	out := make(map[string]models.ScoreBreakdown)
	if !c.Enabled() || len(items) == 0 {
		return out, nil
	}

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = ScoreKey(userID, item.Type, item.ID)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return out, fmt.Errorf("score cache mget: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry scoreEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if entry.Fingerprint == "" || entry.Fingerprint != fingerprints[items[i].ID] {
			continue
		}
		out[items[i].ID] = entry.Breakdown
	}
	return out, nil
}

// SetMany stores the breakdown of every scored item in one pipeline, tagged
// with the fingerprint of the inputs it was computed from.
func (c *ScoreCache) SetMany(ctx context.Context, userID string, items []models.ScoredItem, fingerprints map[string]string) error {
	if !c.Enabled() || len(items) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, item := range items {
		if item.Breakdown == nil {
			continue
		}
		data, err := json.Marshal(scoreEntry{
			Fingerprint: fingerprints[item.ID],
			Breakdown:   *item.Breakdown,
		})
		if err != nil {
			return err
		}
		pipe.Set(ctx, ScoreKey(userID, item.Type, item.ID), data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("score cache set: %w", err)
	}
	return nil
}

// CachedProfileStore is a Redis read-through cache in front of a
// ProfileProvider. Cache failures fall through to the underlying store.
type CachedProfileStore struct {
	next   ProfileProvider
	client *redis.Client
	ttl    time.Duration
}

// NewCachedProfileStore wraps next with a Redis read-through cache.
func NewCachedProfileStore(next ProfileProvider, client *redis.Client, ttl time.Duration) *CachedProfileStore {
	return &CachedProfileStore{next: next, client: client, ttl: ttl}
}

// GetProfile serves the cached profile or loads and caches it.
func (c *CachedProfileStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	key := profileKeyPrefix + userID

	if val, err := c.client.Get(ctx, key).Result(); err == nil {
		var profile models.Profile
		if err := json.Unmarshal([]byte(val), &profile); err == nil {
			return &profile, nil
		}
	} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	profile, err := c.next.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		if data, err := json.Marshal(profile); err == nil {
			c.client.Set(ctx, key, data, c.ttl)
		}
	}
	return profile, nil
}

