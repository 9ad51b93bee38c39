package jwtsource

import (
	"time"

	"github.com/edgemesh/spiffekit/logger"
	"github.com/edgemesh/spiffekit/ptr"
	"github.com/edgemesh/spiffekit/retry"
	"github.com/edgemesh/spiffekit/workloadapi"
)

const defaultBootstrapTimeout = 0

// Options configures NewSource.
type Options struct {
	// SpiffeSocketPath overrides the Workload API address; if empty, it
	// is resolved from SPIFFE_ENDPOINT_SOCKET.
	SpiffeSocketPath string

	// Client, if set, is used instead of dialing a new one. The Source
	// does not own it and will not close it.
	Client *workloadapi.Client

	// Timeout bounds how long NewSource blocks waiting for the first
	// bundle update. Zero means wait forever.
	Timeout time.Duration

	// Log receives bootstrap and update diagnostics.
	Log logger.Logger

	// BackoffConfig overrides the client's reconnection schedule when
	// Client is not supplied.
	BackoffConfig *retry.Config

	// DialTimeout bounds how long dialing a new client may take when
	// Client is not supplied.
	DialTimeout time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultBootstrapTimeout
}

func (o Options) logger() logger.Logger {
	if o.Log != nil {
		return o.Log
	}
	return logger.NewNopLogger()
}

// BackoffConfig is a convenience for populating Options.BackoffConfig
// from a value rather than a literal address.
func BackoffConfig(cfg retry.Config) *retry.Config {
	return ptr.Of(cfg)
}
