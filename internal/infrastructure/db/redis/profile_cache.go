package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/metrics"
)

const defaultProfileTTL = 10 * time.Minute

// putScript writes the entry unless an invalidation newer than the
// profile's version is on record.
// KEYS: entry, floor. ARGV: payload, version, ttl ms.
var putScript = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[2]) < floor then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// invalidateScript raises the floor to version and drops the entry.
// KEYS: entry, floor. ARGV: version, ttl ms.
var invalidateScript = redis.NewScript(`
local floor = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) > floor then
	floor = tonumber(ARGV[1])
end
redis.call('SET', KEYS[2], floor, 'PX', ARGV[2])
redis.call('DEL', KEYS[1])
return 1
`)

// ProfileCache stores profile projections as JSON.
// Key format: profile:{<email>} with a sibling profile:{<email>}:floor that
// holds the account version of the last invalidation. The floor outlives
// any entry written before it, so a reader that loaded a profile before a
// role change committed cannot put it back afterwards.
type ProfileCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewProfileCache wraps client. Entries expire after ttl, or
// defaultProfileTTL when ttl <= 0.
func NewProfileCache(client redis.UniversalClient, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &ProfileCache{client: client, ttl: ttl}
}

// Get returns (nil, nil) on a miss.
func (c *ProfileCache) Get(ctx context.Context, email string) (*domain.Profile, error) {
	raw, err := c.client.Get(ctx, profileKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ProfileCacheTotal.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.ProfileCacheTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("profile cache get: %w", err)
	}

	var p domain.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		metrics.ProfileCacheTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("profile cache decode: %w", err)
	}
	metrics.ProfileCacheTotal.WithLabelValues("hit").Inc()
	return &p, nil
}

// Put stores p as read at version. A put older than the last invalidation
// is dropped without error.
func (c *ProfileCache) Put(ctx context.Context, p *domain.Profile, version int64) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile cache encode: %w", err)
	}
	keys := []string{profileKey(p.Email), floorKey(p.Email)}
	if err := putScript.Run(ctx, c.client, keys, raw, version, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("profile cache put: %w", err)
	}
	return nil
}

// Invalidate drops the entry and records version as the floor for later puts.
func (c *ProfileCache) Invalidate(ctx context.Context, email string, version int64) error {
	keys := []string{profileKey(email), floorKey(email)}
	if err := invalidateScript.Run(ctx, c.client, keys, version, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("profile cache invalidate: %w", err)
	}
	return nil
}

// The braces pin both keys of an email to one cluster slot so the scripts
// can touch them together.
func profileKey(email string) string {
	return "profile:{" + email + "}"
}

func floorKey(email string) string {
	return profileKey(email) + ":floor"
}
