// Package jwtcache implements CachedJwtSource: a JwtSource decorator that
// caches JWT-SVIDs by (subject, sorted audience set) and only re-fetches
// once a cached token's remaining lifetime has fallen below half of its
// original TTL.
package jwtcache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	kclock "k8s.io/utils/clock"

	"github.com/edgemesh/spiffekit/slices"
	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
	"github.com/edgemesh/spiffekit/svid/jwtsvid"
	"github.com/edgemesh/spiffekit/ttlcache"
)

// JwtFetcher is the minimal surface CachedJwtSource needs from an
// underlying source. jwtsource.Source satisfies it.
type JwtFetcher interface {
	FetchJwtSvid(ctx context.Context, subject spiffeid.ID, audience string, extraAudience ...string) (*jwtsvid.SVID, error)
}

const (
	// minTTLSeconds is the floor passed to the underlying ttlcache.Cache,
	// which panics on a non-positive TTL. A cache entry whose SVID is
	// already within its refresh window is never stored with less than
	// this much nominal life.
	minTTLSeconds = 1
)

// CachedJwtSource wraps a JwtFetcher with a TTL cache keyed by
// (subject, sorted audience set). A cached SVID is returned as long as
// its expiry is sufficiently far in the future; otherwise a fresh SVID
// is fetched and the cache entry replaced.
//
// "Sufficiently far" means the token has not yet crossed the midpoint
// of its original validity window: a token valid for one hour is served
// from cache for the first 30 minutes, then refreshed on the next call.
type CachedJwtSource struct {
	fetcher JwtFetcher
	clock   kclock.Clock
	cache   *ttlcache.Cache[*entry]

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

type entry struct {
	svid     *jwtsvid.SVID
	issuedAt time.Time
	totalTTL time.Duration
}

// New wraps fetcher with a cache using the given cleanup interval for
// the background sweep of expired entries. A zero interval uses the
// ttlcache package's default.
func New(fetcher JwtFetcher, cleanupInterval time.Duration) *CachedJwtSource {
	return &CachedJwtSource{
		fetcher: fetcher,
		clock:   kclock.RealClock{},
		cache: ttlcache.NewCache[*entry](ttlcache.CacheOptions{
			CleanupInterval: cleanupInterval,
		}),
		inflight: make(map[string]chan struct{}),
	}
}

// Stop halts the cache's background cleanup goroutine.
func (c *CachedJwtSource) Stop() {
	c.cache.Stop()
}

// FetchJwtSvid returns a cached JWT-SVID for (subject, audience,
// extraAudience) if one is fresh enough, otherwise fetches and caches a
// new one from the underlying source.
func (c *CachedJwtSource) FetchJwtSvid(ctx context.Context, subject spiffeid.ID, audience string, extraAudience ...string) (*jwtsvid.SVID, error) {
	key := cacheKey(subject, audience, extraAudience)

	if e, ok := c.cache.Get(key); ok && c.isFreshEnough(e) {
		return e.svid, nil
	}

	return c.fetchAndCache(ctx, key, subject, audience, extraAudience)
}

// fetchAndCache coalesces concurrent misses for the same key into a
// single underlying fetch: the first caller performs it, later callers
// for the same key wait on its result instead of issuing redundant
// Workload API requests.
func (c *CachedJwtSource) fetchAndCache(ctx context.Context, key string, subject spiffeid.ID, audience string, extraAudience []string) (*jwtsvid.SVID, error) {
	c.mu.Lock()
	if wait, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, spiffeerr.Timeout.New("context done while waiting for concurrent JWT-SVID fetch: %w", ctx.Err())
		}
		if e, ok := c.cache.Get(key); ok {
			return e.svid, nil
		}
		return nil, spiffeerr.ProtocolError.New("concurrent JWT-SVID fetch for %q did not populate cache", key)
	}
	done := make(chan struct{})
	c.inflight[key] = done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		close(done)
	}()

	svid, err := c.fetcher.FetchJwtSvid(ctx, subject, audience, extraAudience...)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	ttl := svid.GetExpiry().Sub(now)
	if ttl <= 0 {
		return nil, spiffeerr.ValidationError.New("fetched JWT-SVID is already expired")
	}

	c.cache.Set(key, &entry{svid: svid, issuedAt: now, totalTTL: ttl}, ttlSeconds(ttl))

	return svid, nil
}

// isFreshEnough reports whether e's remaining lifetime is still at
// least half of its original TTL.
func (c *CachedJwtSource) isFreshEnough(e *entry) bool {
	remaining := e.svid.GetExpiry().Sub(c.clock.Now())
	return remaining > e.totalTTL/2
}

func ttlSeconds(d time.Duration) int64 {
	s := int64(d.Seconds())
	if s < minTTLSeconds {
		return minTTLSeconds
	}
	return s
}

// cacheKey builds a stable key from the subject and the full,
// order-independent audience set.
func cacheKey(subject spiffeid.ID, audience string, extraAudience []string) string {
	aud := make([]string, 0, 1+len(extraAudience))
	aud = append(aud, audience)
	aud = append(aud, extraAudience...)
	aud = slices.Deduplicate(aud)
	sort.Strings(aud)

	var b strings.Builder
	b.WriteString(subject.String())
	b.WriteByte('|')
	b.WriteString(strings.Join(aud, ","))
	return b.String()
}
