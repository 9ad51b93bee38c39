package jwtbundle

import (
	"github.com/edgemesh/spiffekit/bundle"
	"github.com/edgemesh/spiffekit/spiffeid"
)

// Set is a concurrency-safe mapping from trust domain to JwtBundle.
type Set = bundle.Set[*Bundle]

// NewSet returns a Set populated with bundles, keyed by their own trust
// domain.
func NewSet(bundles ...*Bundle) *Set {
	return bundle.NewSet(bundles...)
}

// Source is implemented by anything that can look up a JwtBundle by
// trust domain: *Set, jwtsource.Source, or a test double.
type Source interface {
	GetBundleForTrustDomain(td spiffeid.TrustDomain) (*Bundle, error)
}
