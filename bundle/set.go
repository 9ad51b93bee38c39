// Package bundle provides the generic BundleSet container shared by
// x509bundle.Set and jwtbundle.Set: a concurrency-safe mapping from
// trust domain to bundle, grounded on the teacher's typed concurrent
// Map.
package bundle

import (
	"github.com/edgemesh/spiffekit/concurrency"
	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
)

// Bundler is implemented by both x509bundle.Bundle and jwtbundle.Bundle.
type Bundler interface {
	TrustDomain() spiffeid.TrustDomain
}

// Set is a mapping from TrustDomain to bundle B. Add replaces any prior
// bundle for that domain; lookup of a missing domain fails with
// spiffeerr.BundleNotFound.
type Set[B Bundler] struct {
	m concurrency.Map[spiffeid.TrustDomain, B]
}

// NewSet returns a Set populated with bundles, keyed by their own trust
// domain. Later entries for the same trust domain replace earlier ones.
func NewSet[B Bundler](bundles ...B) *Set[B] {
	s := &Set[B]{m: concurrency.NewMap[spiffeid.TrustDomain, B]()}
	for _, b := range bundles {
		s.Add(b)
	}
	return s
}

// Add stores b, replacing any bundle previously stored for b's trust
// domain.
func (s *Set[B]) Add(b B) {
	s.m.Store(b.TrustDomain(), b)
}

// GetBundleForTrustDomain returns the bundle for td, or
// spiffeerr.BundleNotFound if none is present.
func (s *Set[B]) GetBundleForTrustDomain(td spiffeid.TrustDomain) (B, error) {
	b, ok := s.m.Load(td)
	if !ok {
		var zero B
		return zero, spiffeerr.BundleNotFound.New("no bundle for trust domain %q", td.Name())
	}
	return b, nil
}

// Bundles returns every bundle currently in the set, in no particular
// order.
func (s *Set[B]) Bundles() []B {
	var out []B
	s.m.Range(func(_ spiffeid.TrustDomain, b B) bool {
		out = append(out, b)
		return true
	})
	return out
}

// Len returns the number of distinct trust domains in the set.
func (s *Set[B]) Len() int {
	n := 0
	s.m.Range(func(spiffeid.TrustDomain, B) bool {
		n++
		return true
	})
	return n
}
