package workloadapi

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/edgemesh/spiffekit/bundle/jwtbundle"
	"github.com/edgemesh/spiffekit/bundle/x509bundle"
	"github.com/edgemesh/spiffekit/concurrency/slice"
	"github.com/edgemesh/spiffekit/retry"
	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
	"github.com/edgemesh/spiffekit/svid/jwtsvid"
)

// X509ContextWatcher receives X509Context updates from the Workload API.
type X509ContextWatcher interface {
	OnX509ContextUpdate(*X509Context)
	OnX509ContextWatchError(error)
}

// JWTBundlesWatcher receives JwtBundle set updates from the Workload API.
type JWTBundlesWatcher interface {
	OnJWTBundlesUpdate(*jwtbundle.Set)
	OnJWTBundlesWatchError(error)
}

// Client is a Workload API client: one-shot fetches, long-running watch
// streams, and validation calls, all multiplexed over a single Transport.
type Client struct {
	config clientConfig
	cancel slice.Slice[context.CancelFunc]
	closed atomic.Bool
	mu     sync.Mutex
}

// New constructs a Client. If no Transport is supplied via
// WithTransport, the address is resolved (explicit WithAddr, else
// SPIFFE_ENDPOINT_SOCKET) and handed to dial (for example
// grpctransport.Dial) together with the configured dial timeout.
func New(ctx context.Context, dial func(ctx context.Context, addr string, timeout time.Duration) (Transport, error), options ...ClientOption) (*Client, error) {
	cfg := defaultClientConfig()
	for _, opt := range options {
		opt.configureClient(&cfg)
	}

	if cfg.transport == nil {
		if cfg.address == "" {
			addr, ok := GetDefaultAddress()
			if !ok {
				return nil, spiffeerr.ConfigError.New("workload endpoint socket address is not configured")
			}
			cfg.address = addr
		}
		resolved, err := ParseAddress(cfg.address)
		if err != nil {
			return nil, err
		}
		cfg.address = resolved

		if dial == nil {
			return nil, spiffeerr.ConfigError.New("no transport dialer supplied and no Transport override given")
		}
		transport, err := dial(ctx, cfg.address, cfg.dialTimeout)
		if err != nil {
			return nil, spiffeerr.TransportError.New("unable to dial workload endpoint %q: %w", cfg.address, err)
		}
		cfg.transport = transport
	}

	return &Client{
		config: cfg,
		cancel: slice.New[context.CancelFunc](),
	}, nil
}

func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return spiffeerr.Closed.New("workload API client is closed")
	}
	return nil
}

func (c *Client) registerCancel(cancel context.CancelFunc) {
	c.cancel.Append(cancel)
}

// FetchX509Context fetches the current X.509 context: the workload's SVID
// chain(s) and trust bundle set.
func (c *Client) FetchX509Context(ctx context.Context) (*X509Context, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.config.transport.FetchX509SVID(ctx)
	if err != nil {
		return nil, spiffeerr.TransportError.New("unable to open X.509 SVID stream: %w", err)
	}
	resp, err := stream.Recv()
	if err != nil {
		return nil, spiffeerr.TransportError.New("unable to receive X.509 SVID response: %w", err)
	}
	return parseX509Context(resp)
}

// FetchX509Bundles fetches only the X.509 trust bundle set.
func (c *Client) FetchX509Bundles(ctx context.Context) (*x509bundle.Set, error) {
	x509Context, err := c.FetchX509Context(ctx)
	if err != nil {
		return nil, err
	}
	return x509Context.Bundles, nil
}

// WatchX509Context opens a long-running watch on the X.509 context. It
// blocks until ctx is canceled, the client is closed, the transport
// reports a terminal error, or the backoff schedule is exhausted,
// reconnecting with exponential backoff on any retryable transport error.
func (c *Client) WatchX509Context(ctx context.Context, watcher X509ContextWatcher) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.registerCancel(cancel)

	b := c.config.backoffConfig.NewBackOffWithContext(ctx)

	for {
		err := c.watchX509ContextOnce(ctx, watcher, b)
		watcher.OnX509ContextWatchError(err)

		if spiffeerr.Closed.Has(err) || ctx.Err() != nil {
			return err
		}
		if isTerminal(err) {
			return err
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return spiffeerr.TransportError.New("X.509 context watch backoff exhausted: %w", err)
		}
		c.config.log.Debugf("Retrying X.509 context watch in %s", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) watchX509ContextOnce(ctx context.Context, watcher X509ContextWatcher, b backoff.BackOff) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	stream, err := c.config.transport.FetchX509SVID(ctx)
	if err != nil {
		return spiffeerr.TransportError.New("unable to open X.509 SVID stream: %w", err)
	}

	for {
		resp, err := stream.Recv()
		if err != nil {
			return classifyStreamError(err)
		}

		b.Reset()
		x509Context, err := parseX509Context(resp)
		if err != nil {
			c.config.log.Errorf("Failed to parse X.509 SVID response: %v", err)
			watcher.OnX509ContextWatchError(err)
			continue
		}
		watcher.OnX509ContextUpdate(x509Context)
	}
}

// WatchX509Bundles opens a long-running watch on the X.509 trust bundle
// set alone by adapting a WatchX509Context stream.
func (c *Client) WatchX509Bundles(ctx context.Context, watcher X509BundlesWatcher) error {
	return c.WatchX509Context(ctx, &x509BundlesAdapter{watcher: watcher})
}

// X509BundlesWatcher receives X509Bundle set updates from the Workload
// API.
type X509BundlesWatcher interface {
	OnX509BundlesUpdate(*x509bundle.Set)
	OnX509BundlesWatchError(error)
}

type x509BundlesAdapter struct {
	watcher X509BundlesWatcher
}

func (a *x509BundlesAdapter) OnX509ContextUpdate(c *X509Context) {
	a.watcher.OnX509BundlesUpdate(c.Bundles)
}

func (a *x509BundlesAdapter) OnX509ContextWatchError(err error) {
	a.watcher.OnX509BundlesWatchError(err)
}

// FetchJWTSVID fetches a single JWT-SVID for the given subject (optional;
// empty means "the default identity") and audience set. The first
// audience is required; extra audiences are added to the request, and
// every returned token must carry all requested audiences.
func (c *Client) FetchJWTSVID(ctx context.Context, subject spiffeid.ID, audience string, extraAudience ...string) (*jwtsvid.SVID, error) {
	svids, err := c.FetchJWTSVIDs(ctx, subject, audience, extraAudience...)
	if err != nil {
		return nil, err
	}
	return svids[0], nil
}

// FetchJWTSVIDs fetches all JWT-SVIDs matching the request.
func (c *Client) FetchJWTSVIDs(ctx context.Context, subject spiffeid.ID, audience string, extraAudience ...string) ([]*jwtsvid.SVID, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	aud := append([]string{audience}, extraAudience...)
	var subjectStr string
	if !subject.IsZero() {
		subjectStr = subject.String()
	}

	resp, err := c.config.transport.FetchJWTSVID(ctx, FetchJWTSVIDRequestMessage{
		Subject:  subjectStr,
		Audience: aud,
	})
	if err != nil {
		return nil, spiffeerr.TransportError.New("unable to fetch JWT-SVID: %w", err)
	}
	if len(resp.Tokens) == 0 {
		return nil, spiffeerr.ProtocolError.New("no JWT-SVIDs in response")
	}

	svids := make([]*jwtsvid.SVID, 0, len(resp.Tokens))
	for _, tok := range resp.Tokens {
		s, err := jwtsvid.ParseInsecure(tok.Token, aud)
		if err != nil {
			return nil, err
		}
		svids = append(svids, s)
	}
	return svids, nil
}

// FetchJWTBundles fetches the JWT bundle set used to validate JWT-SVIDs.
func (c *Client) FetchJWTBundles(ctx context.Context) (*jwtbundle.Set, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.config.transport.FetchJWTBundles(ctx)
	if err != nil {
		return nil, spiffeerr.TransportError.New("unable to open JWT bundles stream: %w", err)
	}
	resp, err := stream.Recv()
	if err != nil {
		return nil, spiffeerr.TransportError.New("unable to receive JWT bundles response: %w", err)
	}
	return parseJWTBundles(resp)
}

// WatchJWTBundles opens a long-running watch on the JWT bundle set,
// reconnecting with exponential backoff on retryable transport errors.
func (c *Client) WatchJWTBundles(ctx context.Context, watcher JWTBundlesWatcher) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.registerCancel(cancel)

	b := c.config.backoffConfig.NewBackOffWithContext(ctx)

	for {
		err := c.watchJWTBundlesOnce(ctx, watcher, b)
		watcher.OnJWTBundlesWatchError(err)

		if spiffeerr.Closed.Has(err) || ctx.Err() != nil || isTerminal(err) {
			return err
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return spiffeerr.TransportError.New("JWT bundles watch backoff exhausted: %w", err)
		}
		c.config.log.Debugf("Retrying JWT bundles watch in %s", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) watchJWTBundlesOnce(ctx context.Context, watcher JWTBundlesWatcher, b backoff.BackOff) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	stream, err := c.config.transport.FetchJWTBundles(ctx)
	if err != nil {
		return spiffeerr.TransportError.New("unable to open JWT bundles stream: %w", err)
	}

	for {
		resp, err := stream.Recv()
		if err != nil {
			return classifyStreamError(err)
		}

		b.Reset()
		set, err := parseJWTBundles(resp)
		if err != nil {
			c.config.log.Errorf("Failed to parse JWT bundles response: %v", err)
			watcher.OnJWTBundlesWatchError(err)
			continue
		}
		watcher.OnJWTBundlesUpdate(set)
	}
}

// ValidateJWTSVID performs the server-side validation RPC and, only if it
// succeeds, locally parses the token (without re-checking the signature)
// to return the resulting JwtSvid.
func (c *Client) ValidateJWTSVID(ctx context.Context, token, audience string) (*jwtsvid.SVID, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.config.transport.ValidateJWTSVID(ctx, ValidateJWTSVIDRequestMessage{
		Token:    token,
		Audience: audience,
	}); err != nil {
		return nil, spiffeerr.ValidationError.New("server rejected JWT-SVID: %w", err)
	}

	return jwtsvid.ParseInsecure(token, []string{audience})
}

// Close cancels every outstanding watch and closes the underlying
// transport. It is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, cancel := range c.cancel.Slice() {
		cancel()
	}
	return c.config.transport.Close()
}

func parseJWTBundles(resp *JWTBundlesResponseMessage) (*jwtbundle.Set, error) {
	var bundles []*jwtbundle.Bundle
	for tdID, raw := range resp.Bundles {
		td, err := spiffeid.TrustDomainFromString(tdID)
		if err != nil {
			return nil, spiffeerr.ProtocolError.New("invalid trust domain %q in response: %w", tdID, err)
		}
		b, err := jwtbundle.Parse(td, raw)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return jwtbundle.NewSet(bundles...), nil
}

// isTerminal reports whether err should stop the reconnection loop
// immediately rather than being retried. A transport marks a failure
// terminal (e.g. an INVALID_ARGUMENT gRPC status) by wrapping it as a
// spiffeerr.ConfigError.
func isTerminal(err error) bool {
	return spiffeerr.ConfigError.Has(err)
}

// classifyStreamError wraps a raw stream receive error as a retryable
// TransportError unless the transport has already classified it as
// terminal.
func classifyStreamError(err error) error {
	if isTerminal(err) {
		return err
	}
	return spiffeerr.TransportError.New("workload API stream error: %w", err)
}
