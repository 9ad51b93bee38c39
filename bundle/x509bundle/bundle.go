// Package x509bundle provides the X509Bundle type: a per-trust-domain
// set of X.509 trust anchors used to verify SVID certificate chains.
package x509bundle

import (
	"crypto/x509"

	"github.com/edgemesh/spiffekit/spiffeid"
)

// Bundle is a set of X.509 authority certificates for a trust domain.
// Authorities act as trust anchors; order is irrelevant and duplicates
// (by raw DER bytes) are collapsed.
type Bundle struct {
	td          spiffeid.TrustDomain
	authorities []*x509.Certificate
}

// New returns an empty bundle for td.
func New(td spiffeid.TrustDomain) *Bundle {
	return &Bundle{td: td}
}

// FromX509Authorities returns a bundle for td populated with authorities,
// deduplicated by certificate raw bytes.
func FromX509Authorities(td spiffeid.TrustDomain, authorities []*x509.Certificate) *Bundle {
	b := New(td)
	b.authorities = dedupeCertificates(authorities)
	return b
}

// TrustDomain returns the trust domain the bundle belongs to.
func (b *Bundle) TrustDomain() spiffeid.TrustDomain {
	return b.td
}

// X509Authorities returns the authority certificates in the bundle. The
// returned slice is a copy; mutating it does not affect the bundle.
func (b *Bundle) X509Authorities() []*x509.Certificate {
	out := make([]*x509.Certificate, len(b.authorities))
	copy(out, b.authorities)
	return out
}

// AddX509Authority adds cert to the bundle's authorities if it is not
// already present.
func (b *Bundle) AddX509Authority(cert *x509.Certificate) {
	for _, existing := range b.authorities {
		if certsEqual(existing, cert) {
			return
		}
	}
	b.authorities = append(b.authorities, cert)
}

func dedupeCertificates(certs []*x509.Certificate) []*x509.Certificate {
	out := make([]*x509.Certificate, 0, len(certs))
	for _, cert := range certs {
		dup := false
		for _, existing := range out {
			if certsEqual(existing, cert) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, cert)
		}
	}
	return out
}

func certsEqual(a, b *x509.Certificate) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return string(a.Raw) == string(b.Raw)
}
