// Package x509source implements X509Source: a long-lived observer that
// subscribes to a WorkloadApiClient's X.509 context watch, maintains the
// latest snapshot, and exposes it for safe concurrent reads.
package x509source

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/edgemesh/spiffekit/bundle/x509bundle"
	"github.com/edgemesh/spiffekit/spiffeerr"
	"github.com/edgemesh/spiffekit/spiffeid"
	"github.com/edgemesh/spiffekit/svid/x509svid"
	"github.com/edgemesh/spiffekit/workloadapi"
	"github.com/edgemesh/spiffekit/workloadapi/grpctransport"
)

// Source is a thread-safe, continuously updated view of a workload's
// X.509 identity and trust bundles.
type Source struct {
	client     *workloadapi.Client
	ownsClient bool
	picker     Picker
	log        interface {
		Errorf(string, ...interface{})
		Debugf(string, ...interface{})
	}

	mu       sync.RWMutex
	current  *workloadapi.X509Context
	defaultS *x509svid.SVID

	readyCh   chan struct{}
	readyOnce sync.Once
	bootErr   atomic.Value // error

	cancel context.CancelFunc
	closed atomic.Bool
}

// NewSource constructs and bootstraps a Source. It blocks until the first
// update is observed and applied, the watch reports an error before any
// update (which NewSource then returns), or opts.Timeout elapses,
// whichever comes first. On failure the Source (and any client it dialed) is
// closed before returning.
func NewSource(ctx context.Context, opts Options) (*Source, error) {
	log := opts.logger()

	s := &Source{
		picker:  opts.Picker,
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
		if err := s.client.WatchX509Context(watchCtx, s); err != nil && watchCtx.Err() == nil {
			log.Errorf("X.509 context watch terminated: %v", err)
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
		return nil, spiffeerr.NewSourceException(spiffeerr.Timeout.New("timed out waiting for X.509 context"))
	}

	return s, nil
}

// OnX509ContextUpdate implements workloadapi.X509ContextWatcher.
func (s *Source) OnX509ContextUpdate(c *workloadapi.X509Context) {
	def := c.DefaultSVID()
	if s.picker != nil && len(c.SVIDs) > 0 {
		def = s.picker(c.SVIDs)
	}

	s.mu.Lock()
	s.current = c
	s.defaultS = def
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.readyCh) })
}

// OnX509ContextWatchError implements workloadapi.X509ContextWatcher. The
// first error observed before any successful update unblocks the
// bootstrap wait so it cannot deadlock.
func (s *Source) OnX509ContextWatchError(err error) {
	s.log.Errorf("X.509 context watch error: %v", err)

	s.mu.RLock()
	haveSnapshot := s.current != nil
	s.mu.RUnlock()
	if haveSnapshot {
		return
	}

	s.bootErr.Store(err)
	s.readyOnce.Do(func() { close(s.readyCh) })
}

// GetX509Svid returns the current default X509-SVID.
func (s *Source) GetX509Svid() (*x509svid.SVID, error) {
	if s.closed.Load() {
		return nil, spiffeerr.Closed.New("X.509 source is closed")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.defaultS == nil {
		return nil, spiffeerr.ValidationError.New("no X.509 SVID available")
	}
	return s.defaultS, nil
}

// GetBundleForTrustDomain returns the X.509 bundle for td.
func (s *Source) GetBundleForTrustDomain(td spiffeid.TrustDomain) (*x509bundle.Bundle, error) {
	if s.closed.Load() {
		return nil, spiffeerr.Closed.New("X.509 source is closed")
	}
	s.mu.RLock()
	bundles := s.current.Bundles
	s.mu.RUnlock()
	return bundles.GetBundleForTrustDomain(td)
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
