// Package workloadapitest provides an in-process fake implementation of
// workloadapi.Transport for exercising clients and sources without a
// real Workload API endpoint.
package workloadapitest

import (
	"context"
	"crypto/x509"
	"errors"
	"sync"

	"github.com/edgemesh/spiffekit/workloadapi"
)

// Transport is a fake workloadapi.Transport whose streams replay a
// caller-scripted sequence of responses (or errors) and then block until
// the test pushes another one or closes the stream.
type Transport struct {
	mu sync.Mutex

	x509Responses chan x509Event
	jwtResponses  chan jwtEvent
	jwtSVIDResp   *workloadapi.JWTSVIDResponseMessage
	jwtSVIDErr    error
	validateErr   error

	closed bool
}

type x509Event struct {
	resp *workloadapi.X509SVIDResponseMessage
	err  error
}

type jwtEvent struct {
	resp *workloadapi.JWTBundlesResponseMessage
	err  error
}

// New returns an empty fake transport. Use PushX509SVIDResponse and
// PushJWTBundlesResponse to feed its streams.
func New() *Transport {
	return &Transport{
		x509Responses: make(chan x509Event, 16),
		jwtResponses:  make(chan jwtEvent, 16),
	}
}

// PushX509SVIDResponse enqueues a response for the next Recv call on any
// open (or future) X.509 SVID stream.
func (t *Transport) PushX509SVIDResponse(resp *workloadapi.X509SVIDResponseMessage) {
	t.x509Responses <- x509Event{resp: resp}
}

// PushX509SVIDError enqueues an error for the next Recv call.
func (t *Transport) PushX509SVIDError(err error) {
	t.x509Responses <- x509Event{err: err}
}

// PushJWTBundlesResponse enqueues a response for the next Recv call on
// any open (or future) JWT bundles stream.
func (t *Transport) PushJWTBundlesResponse(resp *workloadapi.JWTBundlesResponseMessage) {
	t.jwtResponses <- jwtEvent{resp: resp}
}

// SetJWTSVIDResponse configures the response FetchJWTSVID returns.
func (t *Transport) SetJWTSVIDResponse(resp *workloadapi.JWTSVIDResponseMessage, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jwtSVIDResp, t.jwtSVIDErr = resp, err
}

// SetValidateJWTSVIDError configures the error ValidateJWTSVID returns.
func (t *Transport) SetValidateJWTSVIDError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.validateErr = err
}

func (t *Transport) FetchX509SVID(ctx context.Context) (workloadapi.X509SVIDStream, error) {
	return &x509Stream{ctx: ctx, events: t.x509Responses}, nil
}

func (t *Transport) FetchJWTBundles(ctx context.Context) (workloadapi.JWTBundlesStream, error) {
	return &jwtStream{ctx: ctx, events: t.jwtResponses}, nil
}

func (t *Transport) FetchJWTSVID(ctx context.Context, req workloadapi.FetchJWTSVIDRequestMessage) (*workloadapi.JWTSVIDResponseMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.jwtSVIDErr != nil {
		return nil, t.jwtSVIDErr
	}
	if t.jwtSVIDResp == nil {
		return nil, errors.New("workloadapitest: no JWT-SVID response configured")
	}
	return t.jwtSVIDResp, nil
}

func (t *Transport) ValidateJWTSVID(ctx context.Context, req workloadapi.ValidateJWTSVIDRequestMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.validateErr
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type x509Stream struct {
	ctx    context.Context
	events chan x509Event
}

func (s *x509Stream) Recv() (*workloadapi.X509SVIDResponseMessage, error) {
	select {
	case ev := <-s.events:
		return ev.resp, ev.err
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

type jwtStream struct {
	ctx    context.Context
	events chan jwtEvent
}

func (s *jwtStream) Recv() (*workloadapi.JWTBundlesResponseMessage, error) {
	select {
	case ev := <-s.events:
		return ev.resp, ev.err
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

// CertDER is a small helper for tests that need raw DER bytes from a
// parsed certificate.
func CertDER(cert *x509.Certificate) []byte {
	return cert.Raw
}
