package spiffeid

import (
	"net/url"
	"strings"

	"github.com/edgemesh/spiffekit/spiffeerr"
)

// ID is a SPIFFE ID: a (TrustDomain, path) pair parsed from a URI of the
// form spiffe://<trust-domain>[/<path>].
type ID struct {
	td   TrustDomain
	path string
}

// FromString parses s as a SPIFFE ID. The scheme must be exactly
// "spiffe"; the host must be non-empty and carry no user-info or port,
// and is lowercased to form the trust domain; there must be no query or
// fragment; the path, if present, must not contain empty segments.
func FromString(s string) (ID, error) {
	if s == "" {
		return ID{}, spiffeerr.ParseError.New("SPIFFE ID is empty")
	}

	u, err := url.Parse(s)
	if err != nil {
		return ID{}, spiffeerr.ParseError.New("invalid SPIFFE ID %q: %w", s, err)
	}
	return FromURI(u)
}

// FromURI converts a parsed URI into a SPIFFE ID, applying the same
// grammar as FromString.
func FromURI(u *url.URL) (ID, error) {
	if u == nil {
		return ID{}, spiffeerr.ParseError.New("SPIFFE ID is nil")
	}

	if u.Scheme != "spiffe" {
		return ID{}, spiffeerr.ParseError.New("SPIFFE ID scheme must be \"spiffe\", got %q", u.Scheme)
	}
	if u.User != nil {
		return ID{}, spiffeerr.ParseError.New("SPIFFE ID must not include user-info")
	}
	if u.RawQuery != "" {
		return ID{}, spiffeerr.ParseError.New("SPIFFE ID must not include a query")
	}
	if u.Fragment != "" {
		return ID{}, spiffeerr.ParseError.New("SPIFFE ID must not include a fragment")
	}
	if u.Port() != "" {
		return ID{}, spiffeerr.ParseError.New("SPIFFE ID must not include a port")
	}

	host := strings.ToLower(u.Host)
	if host == "" {
		return ID{}, spiffeerr.ParseError.New("SPIFFE ID trust domain is empty")
	}

	td, err := TrustDomainFromString(host)
	if err != nil {
		return ID{}, err
	}

	path := u.Path
	if err := validatePath(path); err != nil {
		return ID{}, err
	}

	return ID{td: td, path: path}, nil
}

// FromSegments builds a SPIFFE ID from a trust domain and a sequence of
// path segments, each of which must be non-empty.
func FromSegments(td TrustDomain, segments ...string) (ID, error) {
	var b strings.Builder
	for _, s := range segments {
		if s == "" {
			return ID{}, spiffeerr.ParseError.New("SPIFFE ID path segment is empty")
		}
		b.WriteByte('/')
		b.WriteString(s)
	}
	return ID{td: td, path: b.String()}, nil
}

// RequireFromString is like FromString but panics on error.
func RequireFromString(s string) ID {
	id, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return id
}

// TrustDomain returns the trust domain of the ID.
func (id ID) TrustDomain() TrustDomain {
	return id.td
}

// Path returns the path of the ID, empty or beginning with "/".
func (id ID) Path() string {
	return id.path
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id.td.IsZero() && id.path == ""
}

// MemberOf reports whether id belongs to td.
func (id ID) MemberOf(td TrustDomain) bool {
	return id.td == td
}

// String reconstructs the canonical spiffe:// URI for the ID, bit-exact
// with the form it was parsed from (modulo trust domain lowercasing).
func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return "spiffe://" + id.td.Name() + id.path
}

func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := FromString(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// validatePath enforces that a path is empty or begins with "/" and
// contains no empty segments ("//").
func validatePath(path string) error {
	if path == "" {
		return nil
	}
	if !strings.HasPrefix(path, "/") {
		return spiffeerr.ParseError.New("SPIFFE ID path %q must begin with a slash", path)
	}
	for _, segment := range strings.Split(path, "/")[1:] {
		if segment == "" {
			return spiffeerr.ParseError.New("SPIFFE ID path %q contains an empty segment", path)
		}
	}
	return nil
}
