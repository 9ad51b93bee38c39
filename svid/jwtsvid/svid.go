// Package jwtsvid implements the JWT-SVID identity document: a signed
// JWT whose "sub" claim carries a SPIFFE ID, parsed and optionally
// verified against a trust-domain-scoped JwtBundle.
package jwtsvid

import (
	"encoding/json"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/spf13/cast"
	"k8s.io/utils/clock"

	"github.com/edgemesh/spiffekit/bundle/jwtbundle"
	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
)

// defaultClock is used to evaluate "exp is in the future" at
// construction time. It is real wall time.
var defaultClock clock.Clock = clock.RealClock{}

// SVID is a JWT-SVID: a SPIFFE ID, the set of audiences the token was
// issued for, its expiry, the full claim set, and the original
// serialized token.
type SVID struct {
	ID       spiffeid.ID
	Audience []string
	Expiry   time.Time
	Claims   map[string]interface{}
	token    string
	hint     string
}

// Marshal returns the exact compact-serialized token the SVID was
// parsed from.
func (s *SVID) Marshal() string {
	return s.token
}

// GetAudience returns a copy of the token's audience list.
func (s *SVID) GetAudience() []string {
	out := make([]string, len(s.Audience))
	copy(out, s.Audience)
	return out
}

// GetExpiry returns a copy of the token's expiry.
func (s *SVID) GetExpiry() time.Time {
	return s.Expiry
}

// Hint returns the caller-supplied hint associated with this SVID, if any.
func (s *SVID) Hint() string {
	return s.hint
}

// ParseInsecure parses and validates the compact-serialized token's
// structure and claims, but does NOT check its signature. The SPIFFE ID
// comes from the "sub" claim, the audience claim must be a superset of
// expectedAudience, and the token must not be expired.
func ParseInsecure(token string, expectedAudience []string) (*SVID, error) {
	_, claims, err := parseSigned(token)
	if err != nil {
		return nil, err
	}
	return newSVID(token, claims, expectedAudience, "")
}

// ParseAndValidate parses the token, looks up the signing trust domain's
// JwtBundle via bundleSource, verifies the signature, and validates
// claims as ParseInsecure does.
func ParseAndValidate(token string, bundleSource jwtbundle.Source, expectedAudience []string) (*SVID, error) {
	message, claims, err := parseSigned(token)
	if err != nil {
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	id, err := spiffeid.FromString(sub)
	if err != nil {
		return nil, spiffeerr.ValidationError.New("token has invalid subject claim: %w", err)
	}

	signatures := message.Signatures()
	if len(signatures) == 0 {
		return nil, spiffeerr.ValidationError.New("token has no signatures")
	}
	headers := signatures[0].ProtectedHeaders()

	kid := headers.KeyID()
	if kid == "" {
		return nil, spiffeerr.ValidationError.New("token header is missing key id")
	}

	alg, err := validateAlgorithm(string(headers.Algorithm()))
	if err != nil {
		return nil, err
	}

	bundle, err := bundleSource.GetBundleForTrustDomain(id.TrustDomain())
	if err != nil {
		return nil, spiffeerr.BundleNotFound.New("no JWT bundle for trust domain %q: %w", id.TrustDomain().Name(), err)
	}

	authority, err := bundle.FindJWTAuthority(kid)
	if err != nil {
		return nil, err
	}

	if err := checkKeyMatchesAlgorithm(alg, authority); err != nil {
		return nil, err
	}

	if _, err := jws.Verify([]byte(token), jws.WithKey(alg, authority)); err != nil {
		return nil, spiffeerr.ValidationError.New("signature verification failed: %w", err)
	}

	return newSVID(token, claims, expectedAudience, "")
}

func parseSigned(token string) (*jws.Message, map[string]interface{}, error) {
	message, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, nil, spiffeerr.ParseError.New("unable to parse JWT-SVID: %w", err)
	}

	signatures := message.Signatures()
	if len(signatures) != 1 {
		return nil, nil, spiffeerr.ParseError.New("expected exactly one signature, got %d", len(signatures))
	}
	headers := signatures[0].ProtectedHeaders()
	if typ := headers.Type(); typ != "" && typ != "JWT" && typ != "JOSE" {
		return nil, nil, spiffeerr.ParseError.New("unexpected header type %q", typ)
	}
	if _, err := validateAlgorithm(string(headers.Algorithm())); err != nil {
		return nil, nil, err
	}

	var claims map[string]interface{}
	if err := json.Unmarshal(message.Payload(), &claims); err != nil {
		return nil, nil, spiffeerr.ParseError.New("unable to parse token claims: %w", err)
	}

	return message, claims, nil
}

func newSVID(token string, claims map[string]interface{}, expectedAudience []string, hint string) (*SVID, error) {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, spiffeerr.ValidationError.New("token is missing subject claim")
	}
	id, err := spiffeid.FromString(sub)
	if err != nil {
		return nil, spiffeerr.ValidationError.New("token has invalid subject claim: %w", err)
	}

	audience, err := audienceFromClaims(claims)
	if err != nil {
		return nil, err
	}
	if !isSupersetOf(audience, expectedAudience) {
		return nil, spiffeerr.ValidationError.New("expected audience %v is not a subset of token audience %v", expectedAudience, audience)
	}

	expRaw, ok := claims["exp"]
	if !ok {
		return nil, spiffeerr.ValidationError.New("token is missing expiry claim")
	}
	expSeconds, err := cast.ToInt64E(expRaw)
	if err != nil {
		return nil, spiffeerr.ValidationError.New("token expiry claim has unexpected type %T: %w", expRaw, err)
	}
	expiry := time.Unix(expSeconds, 0).UTC()
	if !expiry.After(defaultClock.Now()) {
		return nil, spiffeerr.ValidationError.New("token is expired")
	}

	return &SVID{
		ID:       id,
		Audience: audience,
		Expiry:   expiry,
		Claims:   claims,
		token:    token,
		hint:     hint,
	}, nil
}

func audienceFromClaims(claims map[string]interface{}) ([]string, error) {
	raw, ok := claims["aud"]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, spiffeerr.ValidationError.New("token audience claim contains non-string entry %v", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, spiffeerr.ValidationError.New("token audience claim has unexpected type %T", raw)
	}
}

func isSupersetOf(set, subset []string) bool {
	present := make(map[string]struct{}, len(set))
	for _, s := range set {
		present[s] = struct{}{}
	}
	for _, s := range subset {
		if _, ok := present[s]; !ok {
			return false
		}
	}
	return true
}
