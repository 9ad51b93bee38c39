package workloadapi

import (
	"net"
	"net/url"
	"os"

	"github.com/edgemesh/spiffekit/spiffeerr"
)

// defaultAddressEnv is the environment variable the Workload API address
// defaults from when no explicit address is configured.
const defaultAddressEnv = "SPIFFE_ENDPOINT_SOCKET"

// GetDefaultAddress returns the Workload API address from the
// SPIFFE_ENDPOINT_SOCKET environment variable, if set.
func GetDefaultAddress() (string, bool) {
	addr, ok := os.LookupEnv(defaultAddressEnv)
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}

// ParseAddress validates a Workload API endpoint URI and returns it
// unchanged (modulo URI parsing) if it conforms to one of the two
// accepted schemes. Error text is deliberately stable for test-suite
// parity with other SPIFFE client implementations.
func ParseAddress(addr string) (string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", spiffeerr.ConfigError.New("Workload endpoint socket URI is not a valid URI: %w", err)
	}

	switch u.Scheme {
	case "unix":
		return parseUnixAddress(u)
	case "tcp":
		return parseTCPAddress(u)
	default:
		return "", spiffeerr.ConfigError.New("Workload endpoint socket URI must have a tcp:// or unix:// scheme: %s", addr)
	}
}

func parseUnixAddress(u *url.URL) (string, error) {
	if err := checkCommonRules(u, "unix"); err != nil {
		return "", err
	}
	return u.String(), nil
}

func parseTCPAddress(u *url.URL) (string, error) {
	if err := checkCommonRules(u, "tcp"); err != nil {
		return "", err
	}
	if u.Path != "" {
		return "", spiffeerr.ConfigError.New("Workload endpoint tcp socket URI must not include a path: %s", u.String())
	}
	host := u.Hostname()
	if host == "" {
		return "", spiffeerr.ConfigError.New("Workload endpoint tcp socket URI must include a host: %s", u.String())
	}
	if net.ParseIP(host) == nil {
		return "", spiffeerr.ConfigError.New("Workload endpoint tcp socket URI host component must be an IP address: %s", u.String())
	}
	if u.Port() == "" {
		return "", spiffeerr.ConfigError.New("Workload endpoint tcp socket URI must include a port: %s", u.String())
	}
	return u.String(), nil
}

func checkCommonRules(u *url.URL, scheme string) error {
	if u.Opaque != "" {
		return spiffeerr.ConfigError.New("Workload endpoint %s socket URI must not be opaque: %s", scheme, u.String())
	}
	if u.User != nil {
		return spiffeerr.ConfigError.New("Workload endpoint %s socket URI must not include user info: %s", scheme, u.String())
	}
	if u.RawQuery != "" {
		return spiffeerr.ConfigError.New("Workload endpoint %s socket URI must not include query values: %s", scheme, u.String())
	}
	if u.Fragment != "" {
		return spiffeerr.ConfigError.New("Workload endpoint %s socket URI must not include a fragment: %s", scheme, u.String())
	}
	return nil
}
