package jwtcache_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgemesh/spiffekit/jwtcache"
	"github.com/edgemesh/spiffekit/spiffeid"
	"github.com/edgemesh/spiffekit/svid/jwtsvid"
)

type countingFetcher struct {
	calls atomic.Int32
	next  func() (*jwtsvid.SVID, error)
}

func (f *countingFetcher) FetchJwtSvid(_ context.Context, _ spiffeid.ID, _ string, _ ...string) (*jwtsvid.SVID, error) {
	f.calls.Add(1)
	return f.next()
}

func buildToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	claims := map[string]interface{}{
		"sub": "spiffe://example.org/workload",
		"aud": []string{"aud1"},
		"exp": float64(time.Now().Add(expiresIn).Unix()),
	}
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	hdrs := jws.NewHeaders()
	require.NoError(t, hdrs.Set(jws.KeyIDKey, "authority1"))

	signed, err := jws.Sign(payload, jws.WithKey(jwa.ES256, key, jws.WithProtectedHeaders(hdrs)))
	require.NoError(t, err)
	return string(signed)
}

func svidExpiringIn(t *testing.T, d time.Duration) *jwtsvid.SVID {
	t.Helper()
	svid, err := jwtsvid.ParseInsecure(buildToken(t, d), []string{"aud1"})
	require.NoError(t, err)
	return svid
}

func TestFetchJwtSvidCachesFreshToken(t *testing.T) {
	subject := spiffeid.RequireFromString("spiffe://example.org/workload")

	fetcher := &countingFetcher{}
	fetcher.next = func() (*jwtsvid.SVID, error) {
		return svidExpiringIn(t, time.Hour), nil
	}

	cache := jwtcache.New(fetcher, time.Minute)
	defer cache.Stop()

	first, err := cache.FetchJwtSvid(context.Background(), subject, "aud1")
	require.NoError(t, err)

	second, err := cache.FetchJwtSvid(context.Background(), subject, "aud1")
	require.NoError(t, err)

	assert.Equal(t, first.Marshal(), second.Marshal())
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestFetchJwtSvidRefetchesPastHalfLife(t *testing.T) {
	subject := spiffeid.RequireFromString("spiffe://example.org/workload")

	fetcher := &countingFetcher{}
	fetcher.next = func() (*jwtsvid.SVID, error) {
		return svidExpiringIn(t, time.Second), nil
	}

	cache := jwtcache.New(fetcher, time.Minute)
	defer cache.Stop()

	_, err := cache.FetchJwtSvid(context.Background(), subject, "aud1")
	require.NoError(t, err)

	time.Sleep(600 * time.Millisecond)

	_, err = cache.FetchJwtSvid(context.Background(), subject, "aud1")
	require.NoError(t, err)

	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestFetchJwtSvidDistinctAudienceSetsCacheSeparately(t *testing.T) {
	subject := spiffeid.RequireFromString("spiffe://example.org/workload")

	fetcher := &countingFetcher{}
	fetcher.next = func() (*jwtsvid.SVID, error) {
		return svidExpiringIn(t, time.Hour), nil
	}

	cache := jwtcache.New(fetcher, time.Minute)
	defer cache.Stop()

	_, err := cache.FetchJwtSvid(context.Background(), subject, "aud1")
	require.NoError(t, err)
	_, err = cache.FetchJwtSvid(context.Background(), subject, "aud2")
	require.NoError(t, err)
	// Same two audiences, reordered: must hit the same cache key as a
	// prior two-audience call would, not force a new fetch.
	_, err = cache.FetchJwtSvid(context.Background(), subject, "aud1", "aud2")
	require.NoError(t, err)
	_, err = cache.FetchJwtSvid(context.Background(), subject, "aud2", "aud1")
	require.NoError(t, err)

	assert.Equal(t, int32(3), fetcher.calls.Load())
}
