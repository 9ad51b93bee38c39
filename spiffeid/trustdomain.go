// Package spiffeid implements the TrustDomain and ID value types defined
// by the SPIFFE specification: a SPIFFE ID is a URI of the form
// spiffe://<trust-domain>[/<path>] identifying a workload, and a trust
// domain is the authority portion of that URI.
package spiffeid

import (
	"strings"

	"github.com/edgemesh/spiffekit/spiffeerr"
)

// TrustDomain is a normalized SPIFFE trust domain name, e.g. "example.org".
// Its canonical form is always lowercase and never carries a scheme,
// path, port, or trailing slash.
type TrustDomain struct {
	name string
}

// TrustDomainFromString parses s as a trust domain. s may be given either
// as a bare name ("example.org") or as a full spiffe:// URI, in which
// case only the host portion is used.
func TrustDomainFromString(s string) (TrustDomain, error) {
	if s == "" {
		return TrustDomain{}, spiffeerr.ConfigError.New("trust domain is empty")
	}

	if strings.Contains(s, "://") {
		id, err := FromString(s)
		if err != nil {
			return TrustDomain{}, err
		}
		return id.TrustDomain(), nil
	}

	lowered := strings.ToLower(s)
	if err := validateTrustDomainName(lowered); err != nil {
		return TrustDomain{}, err
	}

	return TrustDomain{name: lowered}, nil
}

// RequireTrustDomainFromString is like TrustDomainFromString but panics
// on error. It is intended for use with trust domain literals known to
// be valid at compile time (tests, constants).
func RequireTrustDomainFromString(s string) TrustDomain {
	td, err := TrustDomainFromString(s)
	if err != nil {
		panic(err)
	}
	return td
}

// Name returns the trust domain name, e.g. "example.org".
func (td TrustDomain) Name() string {
	return td.name
}

// String returns the canonical spiffe:// URI for the trust domain.
func (td TrustDomain) String() string {
	if td.IsZero() {
		return ""
	}
	return "spiffe://" + td.name
}

// IDString returns the canonical spiffe:// URI for the trust domain,
// identical to String. Kept as a distinct name for call sites that parse
// a bare ID out of a trust domain, matching the member-of pattern used
// elsewhere in the package.
func (td TrustDomain) IDString() string {
	return td.String()
}

// IsZero reports whether td is the zero value.
func (td TrustDomain) IsZero() bool {
	return td.name == ""
}

// Compare returns -1, 0, or 1 if td sorts before, equal to, or after
// other, by name.
func (td TrustDomain) Compare(other TrustDomain) int {
	return strings.Compare(td.name, other.name)
}

func (td TrustDomain) MarshalText() ([]byte, error) {
	return []byte(td.name), nil
}

func (td *TrustDomain) UnmarshalText(text []byte) error {
	parsed, err := TrustDomainFromString(string(text))
	if err != nil {
		return err
	}
	*td = parsed
	return nil
}

// validateTrustDomainName enforces the grammar: non-empty, lowercase,
// DNS-like name; no scheme, path, port, or user-info.
func validateTrustDomainName(name string) error {
	if name == "" {
		return spiffeerr.ConfigError.New("trust domain is empty")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '.' || r == '_':
		default:
			return spiffeerr.ConfigError.New("trust domain %q contains an invalid character %q", name, r)
		}
	}
	return nil
}
