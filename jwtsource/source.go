// Package jwtsource implements JwtSource: a long-lived observer that
// subscribes to a WorkloadApiClient's JWT bundle watch, maintains the
// latest bundle snapshot, and delegates JWT-SVID fetches to the client.
package jwtsource

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/edgemesh/spiffekit/bundle/jwtbundle"
	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
	"github.com/edgemesh/spiffekit/svid/jwtsvid"
	"github.com/edgemesh/spiffekit/workloadapi"
	"github.com/edgemesh/spiffekit/workloadapi/grpctransport"
)

// Source is a thread-safe, continuously updated view of a workload's JWT
// trust bundles, plus a pass-through for fetching JWT-SVIDs.
type Source struct {
	client     *workloadapi.Client
	ownsClient bool
	log        interface {
		Errorf(string, ...interface{})
	}

	mu      sync.RWMutex
	current *jwtbundle.Set

	readyCh   chan struct{}
	readyOnce sync.Once
	bootErr   atomic.Value // error

	cancel context.CancelFunc
	closed atomic.Bool
}

// NewSource constructs and bootstraps a Source. It blocks until the
// first JWT bundle update is observed, the watch reports an error before
// any update (which NewSource then returns), or opts.Timeout elapses.
func NewSource(ctx context.Context, opts Options) (*Source, error) {
	log := opts.logger()

	s := &Source{
		log:     log,
		readyCh: make(chan struct{}),
	}

	if opts.Client != nil {
		s.client = opts.Client
		s.ownsClient = false
	} else {
		clientOpts := []workloadapi.ClientOption{
			workloadapi.WithLogger(log),
		}
		if opts.BackoffConfig != nil {
			clientOpts = append(clientOpts, workloadapi.WithBackoffConfig(*opts.BackoffConfig))
		}
		if opts.SpiffeSocketPath != "" {
			clientOpts = append(clientOpts, workloadapi.WithAddr(opts.SpiffeSocketPath))
		}
		if opts.DialTimeout > 0 {
			clientOpts = append(clientOpts, workloadapi.WithDialTimeout(opts.DialTimeout))
		}
		client, err := workloadapi.New(ctx, grpctransport.Dial, clientOpts...)
		if err != nil {
			return nil, spiffeerr.NewSourceException(err)
		}
		s.client = client
		s.ownsClient = true
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		if err := s.client.WatchJWTBundles(watchCtx, s); err != nil && watchCtx.Err() == nil {
			log.Errorf("JWT bundles watch terminated: %v", err)
		}
	}()

	timeout := opts.timeout()
	var bootCtx context.Context
	var bootCancel context.CancelFunc
	if timeout > 0 {
		bootCtx, bootCancel = context.WithTimeout(ctx, timeout)
	} else {
		bootCtx, bootCancel = context.WithCancel(ctx)
	}
	defer bootCancel()

	select {
	case <-s.readyCh:
		if err, ok := s.bootErr.Load().(error); ok && err != nil {
			_ = s.Close()
			return nil, spiffeerr.NewSourceException(err)
		}
	case <-bootCtx.Done():
		_ = s.Close()
		return nil, spiffeerr.NewSourceException(spiffeerr.Timeout.New("timed out waiting for JWT bundles"))
	}

	return s, nil
}

// OnJWTBundlesUpdate implements workloadapi.JWTBundlesWatcher.
func (s *Source) OnJWTBundlesUpdate(set *jwtbundle.Set) {
	s.mu.Lock()
	s.current = set
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.readyCh) })
}

// OnJWTBundlesWatchError implements workloadapi.JWTBundlesWatcher.
func (s *Source) OnJWTBundlesWatchError(err error) {
	s.log.Errorf("JWT bundles watch error: %v", err)

	s.mu.RLock()
	haveSnapshot := s.current != nil
	s.mu.RUnlock()
	if haveSnapshot {
		return
	}

	s.bootErr.Store(err)
	s.readyOnce.Do(func() { close(s.readyCh) })
}

// GetJwtBundleForTrustDomain returns the JWT bundle for td.
func (s *Source) GetJwtBundleForTrustDomain(td spiffeid.TrustDomain) (*jwtbundle.Bundle, error) {
	if s.closed.Load() {
		return nil, spiffeerr.Closed.New("JWT source is closed")
	}
	s.mu.RLock()
	set := s.current
	s.mu.RUnlock()
	return set.GetBundleForTrustDomain(td)
}

// FetchJwtSvid delegates to the underlying client rather than reading
// from a cache, per the Workload API contract: every call is a fresh
// request.
func (s *Source) FetchJwtSvid(ctx context.Context, subject spiffeid.ID, audience string, extraAudience ...string) (*jwtsvid.SVID, error) {
	if s.closed.Load() {
		return nil, spiffeerr.Closed.New("JWT source is closed")
	}
	return s.client.FetchJWTSVID(ctx, subject, audience, extraAudience...)
}

// Close tears down the watch and, if the Source dialed its own client,
// closes it too. Close is idempotent.
func (s *Source) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}
