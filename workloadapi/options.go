package workloadapi

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/edgemesh/spiffekit/env"
	"github.com/edgemesh/spiffekit/logger"
	"github.com/edgemesh/spiffekit/retry"
)

// dialTimeoutEnv overrides the default dial timeout when WithDialTimeout
// is not used. Values outside [0, 5m] are rejected in favor of the
// default.
const dialTimeoutEnv = "SPIFFEKIT_DIAL_TIMEOUT"

func defaultDialTimeout() time.Duration {
	d, err := env.GetDurationWithRange(dialTimeoutEnv, 0, 0, 5*time.Minute)
	if err != nil {
		return 0
	}
	return d
}

// defaultBackoffConfig implements the backoff policy required of the
// Workload API client: initial delay 1s, multiplier 2, cap at 60s,
// unlimited retries, reset on success.
func defaultBackoffConfig() retry.Config {
	return retry.Config{
		Policy:              retry.PolicyExponential,
		InitialInterval:     time.Second,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          2,
		MaxInterval:         60 * time.Second,
		MaxElapsedTime:      0,
		MaxRetries:          -1,
	}
}

type clientConfig struct {
	address       string
	transport     Transport
	dialTimeout   time.Duration
	log           logger.Logger
	backoffConfig retry.Config
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		log:           logger.NewNopLogger(),
		backoffConfig: defaultBackoffConfig(),
		dialTimeout:   defaultDialTimeout(),
	}
}

// ClientOption configures a Client constructed by New.
type ClientOption interface {
	configureClient(*clientConfig)
}

type clientOptionFunc func(*clientConfig)

func (f clientOptionFunc) configureClient(c *clientConfig) { f(c) }

// WithAddr overrides the Workload API address; otherwise it is read from
// SPIFFE_ENDPOINT_SOCKET.
func WithAddr(addr string) ClientOption {
	return clientOptionFunc(func(c *clientConfig) { c.address = addr })
}

// WithTransport supplies a Transport directly, bypassing address
// resolution and dialing entirely. Intended for tests and for hosts with
// their own generated Workload API stubs.
func WithTransport(t Transport) ClientOption {
	return clientOptionFunc(func(c *clientConfig) { c.transport = t })
}

// WithLogger sets the logger used for connectivity diagnostics.
func WithLogger(l logger.Logger) ClientOption {
	return clientOptionFunc(func(c *clientConfig) { c.log = l })
}

// WithDialTimeout bounds how long New waits for the transport to become
// ready.
func WithDialTimeout(d time.Duration) ClientOption {
	return clientOptionFunc(func(c *clientConfig) { c.dialTimeout = d })
}

// WithBackoffConfig overrides the reconnection backoff schedule.
func WithBackoffConfig(cfg retry.Config) ClientOption {
	return clientOptionFunc(func(c *clientConfig) { c.backoffConfig = cfg })
}
