package x509bundle_test

import (
	"crypto/x509"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgemesh/spiffekit/bundle/x509bundle"
	"github.com/edgemesh/spiffekit/spiffeid"
)

func TestSetAddReplaces(t *testing.T) {
	td := spiffeid.RequireTrustDomainFromString("example.org")
	set := x509bundle.NewSet()

	b1 := x509bundle.New(td)
	set.Add(b1)
	got, err := set.GetBundleForTrustDomain(td)
	require.NoError(t, err)
	assert.Same(t, b1, got)

	b2 := x509bundle.New(td)
	set.Add(b2)
	got, err = set.GetBundleForTrustDomain(td)
	require.NoError(t, err)
	assert.Same(t, b2, got)
	assert.Equal(t, 1, set.Len())
}

func TestSetNotFound(t *testing.T) {
	set := x509bundle.NewSet()
	_, err := set.GetBundleForTrustDomain(spiffeid.RequireTrustDomainFromString("example.org"))
	require.Error(t, err)
}

func TestDedupeByRawBytes(t *testing.T) {
	td := spiffeid.RequireTrustDomainFromString("example.org")
	cert := &x509.Certificate{Raw: []byte("same")}
	dup := &x509.Certificate{Raw: []byte("same")}

	b := x509bundle.FromX509Authorities(td, []*x509.Certificate{cert, dup})
	assert.Len(t, b.X509Authorities(), 1)
}
