package x509bundle

import (
	"github.com/edgemesh/spiffekit/bundle"
	"github.com/edgemesh/spiffekit/spiffeid"
)

// Set is a concurrency-safe mapping from trust domain to X509Bundle.
type Set = bundle.Set[*Bundle]

// NewSet returns a Set populated with bundles, keyed by their own trust
// domain.
func NewSet(bundles ...*Bundle) *Set {
	return bundle.NewSet(bundles...)
}

// Source is implemented by anything that can look up an X509Bundle by
// trust domain: *Set, x509source.Source, or a test double.
type Source interface {
	GetBundleForTrustDomain(td spiffeid.TrustDomain) (*Bundle, error)
}
