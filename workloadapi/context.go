package workloadapi

import (
	"crypto/x509"

	"github.com/edgemesh/spiffekit/bundle/x509bundle"
	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
	"github.com/edgemesh/spiffekit/svid/x509svid"
)

// X509Context is a bundled, point-in-time view of the SVIDs and trust
// bundles available to a workload.
type X509Context struct {
	SVIDs   []*x509svid.SVID
	Bundles *x509bundle.Set
}

// DefaultSVID returns the first SVID in the context, which the Workload
// API contract guarantees to be the workload's primary identity.
func (c *X509Context) DefaultSVID() *x509svid.SVID {
	if len(c.SVIDs) == 0 {
		return nil
	}
	return c.SVIDs[0]
}

func parseX509Context(resp *X509SVIDResponseMessage) (*X509Context, error) {
	svids, err := parseX509SVIDs(resp, false)
	if err != nil {
		return nil, err
	}
	bundles, err := parseX509Bundles(resp)
	if err != nil {
		return nil, err
	}
	if len(svids) == 0 || bundles.Len() == 0 {
		return nil, spiffeerr.ProtocolError.New("X.509 context must contain at least one SVID and one bundle")
	}
	return &X509Context{SVIDs: svids, Bundles: bundles}, nil
}

func parseX509SVIDs(resp *X509SVIDResponseMessage, firstOnly bool) ([]*x509svid.SVID, error) {
	if len(resp.SVIDs) == 0 {
		return nil, spiffeerr.ProtocolError.New("no X.509 SVIDs in response")
	}

	n := len(resp.SVIDs)
	if firstOnly {
		n = 1
	}

	svids := make([]*x509svid.SVID, 0, n)
	for i := 0; i < n; i++ {
		msg := resp.SVIDs[i]
		s, err := x509svid.ParseRaw(msg.CertChain, msg.PrivateKey)
		if err != nil {
			return nil, spiffeerr.ParseError.New("unable to parse X.509 SVID for %q: %w", msg.SpiffeID, err)
		}
		svids = append(svids, s)
	}
	return svids, nil
}

func parseX509Bundles(resp *X509SVIDResponseMessage) (*x509bundle.Set, error) {
	var bundles []*x509bundle.Bundle

	for _, msg := range resp.SVIDs {
		b, err := parseX509Bundle(msg.SpiffeID, msg.Bundle)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	for tdID, raw := range resp.FederatedBundles {
		b, err := parseX509Bundle(tdID, raw)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}

	return x509bundle.NewSet(bundles...), nil
}

func parseX509Bundle(spiffeTD string, der []byte) (*x509bundle.Bundle, error) {
	td, err := spiffeid.TrustDomainFromString(spiffeTD)
	if err != nil {
		return nil, spiffeerr.ProtocolError.New("invalid trust domain %q in response: %w", spiffeTD, err)
	}
	certs, err := x509.ParseCertificates(der)
	if err != nil {
		return nil, spiffeerr.ParseError.New("unable to parse X.509 bundle for trust domain %q: %w", td.Name(), err)
	}
	if len(certs) == 0 {
		return nil, spiffeerr.ProtocolError.New("empty X.509 bundle for trust domain %q", td.Name())
	}
	return x509bundle.FromX509Authorities(td, certs), nil
}
