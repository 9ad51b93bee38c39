package jwtbundle_test

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgemesh/spiffekit/bundle/jwtbundle"
	"github.com/edgemesh/spiffekit/spiffeid"
)

func TestJWTSetAddReplaces(t *testing.T) {
	td := spiffeid.RequireTrustDomainFromString("example.org")
	set := jwtbundle.NewSet()

	b1 := jwtbundle.New(td)
	set.Add(b1)
	got, err := set.GetBundleForTrustDomain(td)
	require.NoError(t, err)
	assert.Same(t, b1, got)

	b2 := jwtbundle.New(td)
	set.Add(b2)
	got, err = set.GetBundleForTrustDomain(td)
	require.NoError(t, err)
	assert.Same(t, b2, got)
	assert.Equal(t, 1, set.Len())
}

func TestJWTSetNotFound(t *testing.T) {
	set := jwtbundle.NewSet()
	_, err := set.GetBundleForTrustDomain(spiffeid.RequireTrustDomainFromString("example.org"))
	require.Error(t, err)
}

func TestFindJWTAuthorityNotFound(t *testing.T) {
	td := spiffeid.RequireTrustDomainFromString("example.org")
	b := jwtbundle.New(td)
	_, err := b.FindJWTAuthority("missing-kid")
	require.Error(t, err)
}

func TestParseAndMarshalRoundTrip(t *testing.T) {
	td := spiffeid.RequireTrustDomainFromString("example.org")
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	original := jwtbundle.FromJWTAuthorities(td, map[string]crypto.PublicKey{
		"kid-1": key.Public(),
	})

	jwks, err := original.MarshalJSON()
	require.NoError(t, err)

	parsed, err := jwtbundle.Parse(td, jwks)
	require.NoError(t, err)

	got, err := parsed.FindJWTAuthority("kid-1")
	require.NoError(t, err)
	gotKey, ok := got.(*ecdsa.PublicKey)
	require.True(t, ok)
	assert.True(t, key.Public().(*ecdsa.PublicKey).Equal(gotKey))
}
