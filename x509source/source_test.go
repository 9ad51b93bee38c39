package x509source_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgemesh/spiffekit/spiffeid"
	"github.com/edgemesh/spiffekit/workloadapi"
	"github.com/edgemesh/spiffekit/workloadapi/workloadapitest"
	"github.com/edgemesh/spiffekit/x509source"
)

func selfSignedLeaf(t *testing.T, spiffeID string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	uri, err := url.Parse(spiffeID)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: spiffeID},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		URIs:         []*url.URL{uri},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func keyDER(t *testing.T, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return der
}

func TestNewSourceBootstrapHappyPath(t *testing.T) {
	cert, key := selfSignedLeaf(t, "spiffe://example.org/workload-server")
	fake := workloadapitest.New()
	fake.PushX509SVIDResponse(&workloadapi.X509SVIDResponseMessage{
		SVIDs: []workloadapi.X509SVIDMessage{{SpiffeID: "spiffe://example.org", CertChain: cert.Raw, PrivateKey: keyDER(t, key), Bundle: cert.Raw}},
	})
	client, err := workloadapi.New(context.Background(), nil, workloadapi.WithTransport(fake))
	require.NoError(t, err)

	src, err := x509source.NewSource(context.Background(), x509source.Options{Client: client})
	require.NoError(t, err)
	defer src.Close()

	svid, err := src.GetX509Svid()
	require.NoError(t, err)
	assert.Equal(t, "spiffe://example.org/workload-server", svid.ID.String())

	td := spiffeid.RequireTrustDomainFromString("example.org")
	_, err = src.GetBundleForTrustDomain(td)
	require.NoError(t, err)
}

func TestNewSourceBootstrapTimeout(t *testing.T) {
	fake := workloadapitest.New()
	client, err := workloadapi.New(context.Background(), nil, workloadapi.WithTransport(fake))
	require.NoError(t, err)

	_, err = x509source.NewSource(context.Background(), x509source.Options{
		Client:  client,
		Timeout: 100 * time.Millisecond,
	})
	require.Error(t, err)
}

func TestSourceCloseIdempotent(t *testing.T) {
	cert, key := selfSignedLeaf(t, "spiffe://example.org/workload-server")
	fake := workloadapitest.New()
	fake.PushX509SVIDResponse(&workloadapi.X509SVIDResponseMessage{
		SVIDs: []workloadapi.X509SVIDMessage{{SpiffeID: "spiffe://example.org", CertChain: cert.Raw, PrivateKey: keyDER(t, key), Bundle: cert.Raw}},
	})
	client, err := workloadapi.New(context.Background(), nil, workloadapi.WithTransport(fake))
	require.NoError(t, err)

	src, err := x509source.NewSource(context.Background(), x509source.Options{Client: client})
	require.NoError(t, err)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, err = src.GetX509Svid()
	require.Error(t, err)
}
