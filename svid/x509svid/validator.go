package x509svid

import (
	"crypto/x509"

	"github.com/edgemesh/spiffekit/bundle/x509bundle"
	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
)

// Verify verifies an X509-SVID chain against the given bundle source and
// returns the holder's SPIFFE ID along with the verified chains back to a
// root in the bundle. Revocation checking is not performed.
func Verify(certs []*x509.Certificate, bundleSource x509bundle.Source) (spiffeid.ID, [][]*x509.Certificate, error) {
	switch {
	case len(certs) == 0:
		return spiffeid.ID{}, nil, spiffeerr.ValidationError.New("empty certificate chain")
	case bundleSource == nil:
		return spiffeid.ID{}, nil, spiffeerr.ValidationError.New("bundle source is required")
	}

	leaf := certs[0]
	id, err := IDFromCert(leaf)
	if err != nil {
		return spiffeid.ID{}, nil, spiffeerr.ValidationError.New("could not get leaf SPIFFE ID: %w", err)
	}

	if err := validateLeafProfile(leaf); err != nil {
		return id, nil, err
	}

	bundle, err := bundleSource.GetBundleForTrustDomain(id.TrustDomain())
	if err != nil {
		return id, nil, spiffeerr.ValidationError.New("could not get X.509 bundle: %w", err)
	}

	roots := x509.NewCertPool()
	for _, root := range bundle.X509Authorities() {
		roots.AddCert(root)
	}
	intermediates := x509.NewCertPool()
	for _, intermediate := range certs[1:] {
		intermediates.AddCert(intermediate)
	}

	verifiedChains, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return id, nil, spiffeerr.ValidationError.New("could not verify leaf certificate: %w", err)
	}

	return id, verifiedChains, nil
}

// ParseAndVerify parses a raw DER certificate chain and verifies it against
// bundleSource, returning the holder's SPIFFE ID and the verified chains.
func ParseAndVerify(rawCerts [][]byte, bundleSource x509bundle.Source) (spiffeid.ID, [][]*x509.Certificate, error) {
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return spiffeid.ID{}, nil, spiffeerr.ParseError.New("unable to parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	return Verify(certs, bundleSource)
}

// VerifyPredicate verifies certs as Verify does, and additionally requires
// that the resulting SPIFFE ID satisfies accept.
func VerifyPredicate(certs []*x509.Certificate, bundleSource x509bundle.Source, accept spiffeid.Matcher) (spiffeid.ID, [][]*x509.Certificate, error) {
	id, chains, err := Verify(certs, bundleSource)
	if err != nil {
		return id, chains, err
	}
	if accept != nil && !accept(id) {
		return id, nil, spiffeerr.ValidationError.New("SPIFFE ID %q is not authorized", id.String())
	}
	return id, chains, nil
}
