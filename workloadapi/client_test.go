package workloadapi_test

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

	"github.com/edgemesh/spiffekit/workloadapi"
	"github.com/edgemesh/spiffekit/workloadapi/workloadapitest"
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

func keyToDER(t *testing.T, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return der
}

func TestFetchX509ContextHappyPath(t *testing.T) {
	cert, key := selfSignedLeaf(t, "spiffe://example.org/workload-server")
	fake := workloadapitest.New()
	fake.PushX509SVIDResponse(&workloadapi.X509SVIDResponseMessage{
		SVIDs: []workloadapi.X509SVIDMessage{
			{
				SpiffeID:   "spiffe://example.org",
				CertChain:  cert.Raw,
				PrivateKey: keyToDER(t, key),
				Bundle:     cert.Raw,
			},
		},
	})

	client, err := workloadapi.New(context.Background(), nil, workloadapi.WithTransport(fake))
	require.NoError(t, err)
	defer client.Close()

	x509Context, err := client.FetchX509Context(context.Background())
	require.NoError(t, err)
	require.Len(t, x509Context.SVIDs, 1)
	assert.Equal(t, "spiffe://example.org/workload-server", x509Context.SVIDs[0].ID.String())
	assert.Equal(t, 1, x509Context.Bundles.Len())
}

type recordingWatcher struct {
	updates chan *workloadapi.X509Context
}

func (w *recordingWatcher) OnX509ContextUpdate(c *workloadapi.X509Context) {
	w.updates <- c
}

func (w *recordingWatcher) OnX509ContextWatchError(error) {}

func TestWatchX509ContextUpdatesExactlyTwice(t *testing.T) {
	cert1, key1 := selfSignedLeaf(t, "spiffe://example.org/workload-server")
	cert2, key2 := selfSignedLeaf(t, "spiffe://example.org/workload-server")

	fake := workloadapitest.New()
	fake.PushX509SVIDResponse(&workloadapi.X509SVIDResponseMessage{
		SVIDs: []workloadapi.X509SVIDMessage{{SpiffeID: "spiffe://example.org", CertChain: cert1.Raw, PrivateKey: keyToDER(t, key1), Bundle: cert1.Raw}},
	})
	fake.PushX509SVIDResponse(&workloadapi.X509SVIDResponseMessage{
		SVIDs: []workloadapi.X509SVIDMessage{{SpiffeID: "spiffe://example.org", CertChain: cert2.Raw, PrivateKey: keyToDER(t, key2), Bundle: cert2.Raw}},
	})

	client, err := workloadapi.New(context.Background(), nil, workloadapi.WithTransport(fake))
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := &recordingWatcher{updates: make(chan *workloadapi.X509Context, 2)}
	go client.WatchX509Context(ctx, watcher)

	first := <-watcher.updates
	second := <-watcher.updates

	assert.NotEqual(t, first.SVIDs[0].Leaf().SerialNumber, nil)
	assert.Equal(t, second.SVIDs[0].ID.String(), "spiffe://example.org/workload-server")

	select {
	case <-watcher.updates:
		t.Fatal("expected exactly two updates")
	case <-time.After(50 * time.Millisecond):
	}
}
