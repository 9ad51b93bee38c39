// Package jwtbundle provides the JwtBundle type: a per-trust-domain
// mapping from key id to public key used to verify JWT-SVID signatures.
package jwtbundle

import (
	"crypto"
	"encoding/json"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
)

// Bundle is a set of named JWT authority public keys for a trust domain.
// Key ids are non-empty strings; lookup is by exact match.
type Bundle struct {
	td   spiffeid.TrustDomain
	keys map[string]crypto.PublicKey
}

// New returns an empty bundle for td.
func New(td spiffeid.TrustDomain) *Bundle {
	return &Bundle{td: td, keys: map[string]crypto.PublicKey{}}
}

// FromJWTAuthorities returns a bundle for td populated with keys, a
// mapping from key id to public key.
func FromJWTAuthorities(td spiffeid.TrustDomain, keys map[string]crypto.PublicKey) *Bundle {
	b := New(td)
	for kid, key := range keys {
		b.keys[kid] = key
	}
	return b
}

// Parse decodes a JWKS JSON document (a "keys" array, each key carrying
// kid/kty and the standard curve/modulus fields) into a bundle for td.
func Parse(td spiffeid.TrustDomain, jwksBytes []byte) (*Bundle, error) {
	set, err := jwk.Parse(jwksBytes)
	if err != nil {
		return nil, spiffeerr.ParseError.New("unable to parse JWKS for trust domain %q: %w", td.Name(), err)
	}

	b := New(td)
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		kid := key.KeyID()
		if kid == "" {
			return nil, spiffeerr.ParseError.New("JWKS key at index %d has no key id", i)
		}

		var pub interface{}
		if err := key.Raw(&pub); err != nil {
			return nil, spiffeerr.ParseError.New("unable to extract public key for kid %q: %w", kid, err)
		}
		b.keys[kid] = pub
	}

	return b, nil
}

// TrustDomain returns the trust domain the bundle belongs to.
func (b *Bundle) TrustDomain() spiffeid.TrustDomain {
	return b.td
}

// FindJWTAuthority returns the public key registered under kid, or
// spiffeerr.AuthorityNotFound if none is present.
func (b *Bundle) FindJWTAuthority(kid string) (crypto.PublicKey, error) {
	key, ok := b.keys[kid]
	if !ok {
		return nil, spiffeerr.AuthorityNotFound.New("no JWT authority for key id %q in trust domain %q", kid, b.td.Name())
	}
	return key, nil
}

// AddJWTAuthority registers key under kid, replacing any key previously
// registered under the same id.
func (b *Bundle) AddJWTAuthority(kid string, key crypto.PublicKey) error {
	if kid == "" {
		return spiffeerr.ConfigError.New("JWT authority key id is empty")
	}
	b.keys[kid] = key
	return nil
}

// JWTAuthorities returns a copy of the bundle's key-id to public-key
// mapping.
func (b *Bundle) JWTAuthorities() map[string]crypto.PublicKey {
	out := make(map[string]crypto.PublicKey, len(b.keys))
	for k, v := range b.keys {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the bundle as a JWKS document.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	set := jwk.NewSet()
	for kid, pub := range b.keys {
		key, err := jwk.FromRaw(pub)
		if err != nil {
			return nil, fmt.Errorf("jwtbundle: encode key %q: %w", kid, err)
		}
		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, fmt.Errorf("jwtbundle: set kid %q: %w", kid, err)
		}
		if err := set.AddKey(key); err != nil {
			return nil, fmt.Errorf("jwtbundle: add key %q: %w", kid, err)
		}
	}
	return json.Marshal(set)
}
