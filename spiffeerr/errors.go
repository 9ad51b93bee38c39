// Package spiffeerr defines the closed taxonomy of error kinds raised by
// spiffekit. Each kind is an errs.Class, the same mechanism go-spiffe/v2
// itself uses to classify errors without resorting to string matching:
// callers branch with errors.Is(err, spiffeerr.BundleNotFound) or by
// checking a class's Has method.
package spiffeerr

import "github.com/zeebo/errs"

var (
	// ConfigError reports a bad socket URI, unrecognised scheme, or
	// malformed options.
	ConfigError = errs.Class("config error")

	// TransportError reports a connection refused, aborted stream, or
	// any RPC-level failure that is not InvalidArgument.
	TransportError = errs.Class("transport error")

	// ProtocolError reports an empty or malformed payload from the
	// Workload API.
	ProtocolError = errs.Class("protocol error")

	// ParseError reports bytes that fail to decode as a certificate,
	// key, or JWT.
	ParseError = errs.Class("parse error")

	// ProfileError reports a decoded document that violates the SPIFFE
	// SVID profile (leaf is CA, missing SPIFFE URI, multiple URIs,
	// key/cert mismatch, ...).
	ProfileError = errs.Class("profile error")

	// BundleNotFound reports that no bundle is registered for a trust
	// domain.
	BundleNotFound = errs.Class("bundle not found")

	// AuthorityNotFound reports that no public key is registered under
	// a given key id.
	AuthorityNotFound = errs.Class("authority not found")

	// ValidationError reports a chain that does not validate, an
	// invalid signature, an audience mismatch, an expired token, or a
	// subject that is not a SPIFFE ID.
	ValidationError = errs.Class("validation error")

	// Timeout reports that a bootstrap exceeded its deadline.
	Timeout = errs.Class("timeout")

	// Closed reports an operation attempted after Close.
	Closed = errs.Class("closed")
)

// SourceException wraps the underlying spiffeerr-classed cause of an
// X509Source or JwtSource bootstrap failure.
type SourceException struct {
	cause error
}

// NewSourceException wraps cause, which should already carry one of the
// classes above, as a SourceException.
func NewSourceException(cause error) error {
	return &SourceException{cause: cause}
}

func (e *SourceException) Error() string {
	return "source error: " + e.cause.Error()
}

func (e *SourceException) Unwrap() error {
	return e.cause
}
