package x509source

import (
	"time"

	"github.com/edgemesh/spiffekit/logger"
	"github.com/edgemesh/spiffekit/ptr"
	"github.com/edgemesh/spiffekit/retry"
	"github.com/edgemesh/spiffekit/svid/x509svid"
	"github.com/edgemesh/spiffekit/workloadapi"
)

// defaultBootstrapTimeout is used when Options.Timeout is not positive;
// zero means "wait forever". No environment variable or system property
// overrides it.
const defaultBootstrapTimeout = 0

// Picker selects the default SVID from an ordered, non-empty list. A nil
// Picker means "use the first SVID in the list".
type Picker func([]*x509svid.SVID) *x509svid.SVID

// Options configures NewSource.
type Options struct {
	// SpiffeSocketPath overrides the Workload API address; if empty, it
	// is resolved from SPIFFE_ENDPOINT_SOCKET.
	SpiffeSocketPath string

	// Client, if set, is used instead of dialing a new one. The Source
	// does not own it and will not close it.
	Client *workloadapi.Client

	// Picker chooses the default SVID on each update.
	Picker Picker

	// Timeout bounds how long NewSource blocks waiting for the first
	// update. Zero means wait forever.
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
