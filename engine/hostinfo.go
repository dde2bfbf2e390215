package engine

import (
	"fmt"
	"net"
	"strconv"
)

// HostInfo is the advertised network endpoint of the engine instance that owns
// the partition holding a key. A zero HostInfo means no owner is known.
type HostInfo struct {
	Host string
	Port int
}

// ParseHostInfo parses an advertised "host:port" address.
func ParseHostInfo(addr string) (HostInfo, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return HostInfo{}, fmt.Errorf("invalid application server address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return HostInfo{}, fmt.Errorf("invalid port in application server address %q", addr)
	}
	if host == "" {
		return HostInfo{}, fmt.Errorf("missing host in application server address %q", addr)
	}
	return HostInfo{Host: host, Port: port}, nil
}

// String formats the endpoint back to "host:port", round-tripping ParseHostInfo.
func (h HostInfo) String() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// IsZero reports whether no endpoint is set.
func (h HostInfo) IsZero() bool {
	return h.Host == "" && h.Port == 0
}
