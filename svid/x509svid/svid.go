// Package x509svid implements the X509Svid identity document: an
// ordered X.509 certificate chain plus the private key of the leaf,
// whose URI SAN carries the holder's SPIFFE ID.
package x509svid

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"os"

	pempkg "github.com/edgemesh/spiffekit/crypto/pem"
	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
)

// SVID is an X509-SVID: a SPIFFE ID, its ordered certificate chain
// (leaf first), and the leaf's private key.
type SVID struct {
	ID         spiffeid.ID
	chain      []*x509.Certificate
	privateKey crypto.Signer
	rawCert    []byte
}

// Parse decodes a PEM-encoded certificate chain and PKCS#8/SEC1 PEM
// private key, validates the SPIFFE X.509-SVID profile, and returns the
// resulting SVID.
func Parse(certBytes, keyBytes []byte) (*SVID, error) {
	certs, err := pempkg.DecodePEMCertificatesChain(certBytes)
	if err != nil {
		return nil, spiffeerr.ParseError.New("unable to parse certificate chain: %w", err)
	}

	key, err := pempkg.DecodePEMPrivateKey(keyBytes)
	if err != nil {
		return nil, spiffeerr.ParseError.New("unable to parse private key: %w", err)
	}

	return newSVID(certs, key, certBytes)
}

// ParseRaw decodes a DER-encoded certificate chain (concatenated
// certificates) and a DER-encoded PKCS#8 private key, validates the
// profile, and returns the resulting SVID.
func ParseRaw(certDER, keyDER []byte) (*SVID, error) {
	certs, err := x509.ParseCertificates(certDER)
	if err != nil {
		return nil, spiffeerr.ParseError.New("unable to parse certificate chain: %w", err)
	}

	key, err := x509.ParsePKCS8PrivateKey(keyDER)
	if err != nil {
		return nil, spiffeerr.ParseError.New("unable to parse private key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, spiffeerr.ParseError.New("decoded key of type %T is not a crypto.Signer", key)
	}

	return newSVID(certs, signer, certDER)
}

// Load reads PEM-encoded certificate and key files from disk and
// delegates to Parse.
func Load(certPath, keyPath string) (*SVID, error) {
	certBytes, err := os.ReadFile(certPath)
	if err != nil {
		return nil, spiffeerr.ParseError.New("unable to read certificate file %q: %w", certPath, err)
	}
	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, spiffeerr.ParseError.New("unable to read key file %q: %w", keyPath, err)
	}
	return Parse(certBytes, keyBytes)
}

func newSVID(certs []*x509.Certificate, key crypto.Signer, rawCert []byte) (*SVID, error) {
	if len(certs) == 0 {
		return nil, spiffeerr.ParseError.New("certificate chain is empty")
	}

	leaf := certs[0]
	id, err := IDFromCert(leaf)
	if err != nil {
		return nil, err
	}

	if err := validateLeafProfile(leaf); err != nil {
		return nil, err
	}
	for _, intermediate := range certs[1:] {
		if err := validateIntermediateProfile(intermediate); err != nil {
			return nil, err
		}
	}
	if err := matchesPublicKey(leaf.PublicKey, key.Public()); err != nil {
		return nil, err
	}

	return &SVID{
		ID:         id,
		chain:      certs,
		privateKey: key,
		rawCert:    append([]byte(nil), rawCert...),
	}, nil
}

// IDFromCert extracts the SPIFFE ID from the URI SAN of cert. It fails
// unless cert carries exactly one URI SAN and it is a well-formed
// SPIFFE ID.
func IDFromCert(cert *x509.Certificate) (spiffeid.ID, error) {
	switch {
	case len(cert.URIs) == 0:
		return spiffeid.ID{}, spiffeerr.ProfileError.New("certificate contains no URI SAN")
	case len(cert.URIs) > 1:
		return spiffeid.ID{}, spiffeerr.ProfileError.New("certificate contains more than one URI SAN")
	}
	return spiffeid.FromURI(cert.URIs[0])
}

func validateLeafProfile(leaf *x509.Certificate) error {
	if leaf.IsCA {
		return spiffeerr.ProfileError.New("leaf certificate must not have the CA flag set")
	}
	if leaf.KeyUsage&x509.KeyUsageDigitalSignature == 0 {
		return spiffeerr.ProfileError.New("leaf certificate must have the digitalSignature key usage")
	}
	if leaf.KeyUsage&x509.KeyUsageCertSign != 0 {
		return spiffeerr.ProfileError.New("leaf certificate must not have the keyCertSign key usage")
	}
	if leaf.KeyUsage&x509.KeyUsageCRLSign != 0 {
		return spiffeerr.ProfileError.New("leaf certificate must not have the cRLSign key usage")
	}
	return nil
}

func validateIntermediateProfile(cert *x509.Certificate) error {
	if !cert.IsCA {
		return spiffeerr.ProfileError.New("intermediate certificate must have the CA flag set")
	}
	if cert.KeyUsage&x509.KeyUsageCertSign == 0 {
		return spiffeerr.ProfileError.New("intermediate certificate must have the keyCertSign key usage")
	}
	return nil
}

func matchesPublicKey(leafPub, keyPub crypto.PublicKey) error {
	switch lp := leafPub.(type) {
	case *rsa.PublicKey:
		kp, ok := keyPub.(*rsa.PublicKey)
		if !ok || !lp.Equal(kp) {
			return spiffeerr.ProfileError.New("private key does not match leaf certificate public key")
		}
	case *ecdsa.PublicKey:
		kp, ok := keyPub.(*ecdsa.PublicKey)
		if !ok || !lp.Equal(kp) {
			return spiffeerr.ProfileError.New("private key does not match leaf certificate public key")
		}
	case ed25519.PublicKey:
		kp, ok := keyPub.(ed25519.PublicKey)
		if !ok || !bytes.Equal(lp, kp) {
			return spiffeerr.ProfileError.New("private key does not match leaf certificate public key")
		}
	default:
		return spiffeerr.ProfileError.New("unsupported leaf public key type %T", leafPub)
	}
	return nil
}

// Marshal returns a copy of the raw bytes the SVID was constructed from.
func (s *SVID) Marshal() []byte {
	return append([]byte(nil), s.rawCert...)
}

// Chain returns an immutable view of the certificate chain, leaf first.
func (s *SVID) Chain() []*x509.Certificate {
	out := make([]*x509.Certificate, len(s.chain))
	copy(out, s.chain)
	return out
}

// Leaf returns the leaf certificate.
func (s *SVID) Leaf() *x509.Certificate {
	return s.chain[0]
}

// PrivateKey returns the leaf's private key.
func (s *SVID) PrivateKey() crypto.Signer {
	return s.privateKey
}
