package jwtsvid

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"

	"github.com/lestrrat-go/jwx/v2/jwa"

	"github.com/edgemesh/spiffekit/spiffeerr"
)

// supportedAlgorithms is the acceptable JWT-SVID signature algorithm
// registry. Only asymmetric algorithms are accepted; HMAC-family
// algorithms are never valid since JWT-SVIDs are verified against a
// per-trust-domain public key bundle.
var supportedAlgorithms = map[jwa.SignatureAlgorithm]func(crypto.PublicKey) bool{
	jwa.ES256: isECKey,
	jwa.ES384: isECKey,
	jwa.ES512: isECKey,
	jwa.RS256: isRSAKey,
	jwa.RS384: isRSAKey,
	jwa.RS512: isRSAKey,
	jwa.PS256: isRSAKey,
	jwa.PS384: isRSAKey,
	jwa.PS512: isRSAKey,
}

func isECKey(key crypto.PublicKey) bool {
	_, ok := key.(*ecdsa.PublicKey)
	return ok
}

func isRSAKey(key crypto.PublicKey) bool {
	_, ok := key.(*rsa.PublicKey)
	return ok
}

// validateAlgorithm returns an error unless alg is in the acceptable
// registry.
func validateAlgorithm(alg string) (jwa.SignatureAlgorithm, error) {
	sigAlg := jwa.SignatureAlgorithm(alg)
	if _, ok := supportedAlgorithms[sigAlg]; !ok {
		return "", spiffeerr.ValidationError.New("unsupported token signature algorithm %q", alg)
	}
	return sigAlg, nil
}

// checkKeyMatchesAlgorithm returns an error if key's type is not the
// family expected by alg (e.g. an RSA key presented for an ES algorithm).
func checkKeyMatchesAlgorithm(alg jwa.SignatureAlgorithm, key crypto.PublicKey) error {
	check, ok := supportedAlgorithms[alg]
	if !ok {
		return spiffeerr.ValidationError.New("unsupported token signature algorithm %q", alg)
	}
	if !check(key) {
		return spiffeerr.ValidationError.New("authority key type does not match algorithm %q", alg)
	}
	return nil
}
