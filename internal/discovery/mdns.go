package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type the OTA endpoint is published under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for Find
	DefaultScanTimeout = 5 * time.Second

	// TXT record keys
	txtPath      = "path"
	txtWebSocket = "ws"
	txtVersion   = "version"
)

// Advertisement describes the OTA endpoint to publish.
type Advertisement struct {
	Instance     string
	Port         int
	WebSocketURL string
	Version      int
}

// TXTRecords returns the key=value records published alongside the service.
func (a Advertisement) TXTRecords() []string {
	return []string{
		txtPath + "=/",
		txtWebSocket + "=" + a.WebSocketURL,
		txtVersion + "=" + strconv.Itoa(a.Version),
	}
}

// Advertiser keeps an mDNS registration alive until Shutdown.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers the OTA endpoint on all multicast-capable interfaces.
func Advertise(ad Advertisement) (*Advertiser, error) {
	srv, err := zeroconf.Register(ad.Instance, ServiceType, ServiceDomain, ad.Port, ad.TXTRecords(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertiser{server: srv}, nil
}

// Shutdown withdraws the registration. Safe to call on a nil Advertiser.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
}

// browseFunc starts an mDNS browse that delivers entries until ctx is done.
// entries is closed once ctx ends, also when an error is returned, as
// (*zeroconf.Resolver).Browse does.
type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Scanner browses the LAN for running OTA stubs
type Scanner struct {
	// Timeout is the maximum time to wait for a matching service
	Timeout time.Duration

	// browse defaults to a zeroconf resolver on all interfaces
	browse browseFunc
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

func zeroconfBrowse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		close(entries)
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	return resolver.Browse(ctx, service, domain, entries)
}

// Find returns the first stub whose instance name equals instance. An empty
// instance matches any stub.
func (s *Scanner) Find(ctx context.Context, instance string) (*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	browse := s.browse
	if browse == nil {
		browse = zeroconfBrowse
	}

	// The browser sends without watching ctx, so every exit path cancels and
	// drains until it closes the channel.
	entries := make(chan *zeroconf.ServiceEntry)
	if err := browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		cancel()
		drain(entries)
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return nil, s.notFound(ctx, instance)
			}
			svc := parseServiceEntry(entry)
			if svc == nil {
				continue
			}
			if instance != "" && svc.Instance != instance {
				continue
			}
			cancel()
			drain(entries)
			return svc, nil

		case <-ctx.Done():
			drain(entries)
			return nil, s.notFound(ctx, instance)
		}
	}
}

// notFound reports a search that ended without a match. Cancellation by the
// caller is returned as is.
func (s *Scanner) notFound(ctx context.Context, instance string) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if instance == "" {
		return fmt.Errorf("no OTA stub found within %s", s.Timeout)
	}
	return fmt.Errorf("OTA stub %q not found within %s", instance, s.Timeout)
}

// drain discards entries until the browser closes the channel, so a send in
// flight cannot block it forever.
func drain(entries <-chan *zeroconf.ServiceEntry) {
	for range entries {
	}
}

// parseServiceEntry converts a zeroconf entry to a Service.
// Returns nil for HTTP services that are not OTA stubs (no ws TXT record).
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Service {
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	if metadata[txtWebSocket] == "" {
		return nil
	}

	// Prefer IPv4
	var ip net.IP
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0]
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0]
	}
	if ip == nil || entry.Port == 0 {
		return nil
	}

	return &Service{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip.String(),
		Port:         entry.Port,
		WebSocketURL: metadata[txtWebSocket],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}
