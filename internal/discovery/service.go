package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service is an OTA stub found on the network
type Service struct {
	// Instance is the mDNS instance name (e.g., "otastub")
	Instance string

	// Hostname is the mDNS hostname (e.g., "devbox.local.")
	Hostname string

	// IP is the resolved address, IPv4 when available
	IP string

	// Port is the OTA HTTP port
	Port int

	// WebSocketURL is the session URL published in the TXT records
	WebSocketURL string

	// Metadata holds every TXT record
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the service
func (s *Service) String() string {
	return fmt.Sprintf("%s at %s (ws: %s)", s.Instance, s.OTAURL(), s.WebSocketURL)
}

// OTAURL is the check-in URL of the stub.
func (s *Service) OTAURL() string {
	return "http://" + net.JoinHostPort(s.IP, strconv.Itoa(s.Port)) + "/"
}
