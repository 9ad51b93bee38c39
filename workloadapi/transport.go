// Package workloadapi implements the Workload API client: streaming RPC
// access to X.509 and JWT identity material, with automatic reconnection
// and fan-out to registered watchers.
//
// The package depends on the underlying RPC framework only through the
// Transport interface below. A reference gRPC-backed implementation lives
// in the sibling grpctransport package; callers embedding this client in
// a host with its own generated Workload API stubs can supply their own
// Transport instead.
package workloadapi

import "context"

// X509SVIDMessage is the wire-level representation of a single X.509-SVID
// entry in a FetchX509SVID response.
type X509SVIDMessage struct {
	SpiffeID   string
	CertChain  []byte // DER, leaf first
	PrivateKey []byte // DER PKCS#8
	Bundle     []byte // DER, concatenated trust bundle certificates
	Hint       string
}

// X509SVIDResponseMessage is one message from the FetchX509SVID stream.
type X509SVIDResponseMessage struct {
	SVIDs            []X509SVIDMessage
	FederatedBundles map[string][]byte // trust domain SPIFFE ID -> DER certs
}

// JWTBundlesResponseMessage is one message from the FetchJWTBundles stream.
type JWTBundlesResponseMessage struct {
	Bundles map[string][]byte // trust domain SPIFFE ID -> JWKS document
}

// FetchJWTSVIDRequestMessage is the request for a unary FetchJWTSVID call.
type FetchJWTSVIDRequestMessage struct {
	Subject  string // optional
	Audience []string
}

// JWTSVIDResponseMessage is the response of a unary FetchJWTSVID call.
type JWTSVIDResponseMessage struct {
	Tokens []JWTSVIDMessage
}

// JWTSVIDMessage is a single token returned by FetchJWTSVID.
type JWTSVIDMessage struct {
	SpiffeID string
	Token    string
	Hint     string
}

// ValidateJWTSVIDRequestMessage is the request for a unary ValidateJWTSVID
// call.
type ValidateJWTSVIDRequestMessage struct {
	Token    string
	Audience string
}

// X509SVIDStream is a server-streaming response cursor for FetchX509SVID.
type X509SVIDStream interface {
	Recv() (*X509SVIDResponseMessage, error)
}

// JWTBundlesStream is a server-streaming response cursor for
// FetchJWTBundles.
type JWTBundlesStream interface {
	Recv() (*JWTBundlesResponseMessage, error)
}

// Transport is the generic streaming RPC boundary the client depends on.
// It carries no knowledge of SPIFFE domain types; conversion to/from
// X509Context, bundles, and JWT-SVIDs happens entirely in this package.
//
// Every call MUST attach the transport-level equivalent of the
// "workload.spiffe.io: true" metadata header; implementations that fail
// to do so will be rejected by a conforming Workload API server.
type Transport interface {
	FetchX509SVID(ctx context.Context) (X509SVIDStream, error)
	FetchJWTSVID(ctx context.Context, req FetchJWTSVIDRequestMessage) (*JWTSVIDResponseMessage, error)
	FetchJWTBundles(ctx context.Context) (JWTBundlesStream, error)
	ValidateJWTSVID(ctx context.Context, req ValidateJWTSVIDRequestMessage) error
	Close() error
}
