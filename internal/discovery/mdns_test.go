package discovery

import (
	"context"
	"errors"
	"net"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func newEntry(instance, host string, port int, ip string, text []string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	entry.HostName = host
	entry.Port = port
	if ip != "" {
		parsed := net.ParseIP(ip)
		if parsed.To4() != nil {
			entry.AddrIPv4 = []net.IP{parsed}
		} else {
			entry.AddrIPv6 = []net.IP{parsed}
		}
	}
	entry.Text = text
	return entry
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantWS   string
	}{
		{
			name:     "stub with IPv4",
			entry:    newEntry("otastub", "devbox.local.", 8000, "192.168.1.5", []string{"path=/", "ws=ws://192.168.1.5:8000/ws", "version=3"}),
			wantIP:   "192.168.1.5",
			wantPort: 8000,
			wantWS:   "ws://192.168.1.5:8000/ws",
		},
		{
			name:     "stub with IPv6 only",
			entry:    newEntry("otastub", "devbox.local.", 9000, "fe80::1", []string{"ws=ws://[fe80::1]:9000/ws"}),
			wantIP:   "fe80::1",
			wantPort: 9000,
			wantWS:   "ws://[fe80::1]:9000/ws",
		},
		{
			name:    "plain HTTP service without ws record",
			entry:   newEntry("printer", "printer.local.", 80, "192.168.1.20", []string{"path=/"}),
			wantNil: true,
		},
		{
			name:    "no address",
			entry:   newEntry("otastub", "devbox.local.", 8000, "", []string{"ws=ws://x:8000/ws"}),
			wantNil: true,
		},
		{
			name:    "no port",
			entry:   newEntry("otastub", "devbox.local.", 0, "192.168.1.5", []string{"ws=ws://x:8000/ws"}),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if svc != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", svc)
				}
				return
			}
			if svc == nil {
				t.Fatal("parseServiceEntry() = nil, want service")
			}
			if svc.IP != tt.wantIP {
				t.Errorf("IP = %s, want %s", svc.IP, tt.wantIP)
			}
			if svc.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", svc.Port, tt.wantPort)
			}
			if svc.WebSocketURL != tt.wantWS {
				t.Errorf("WebSocketURL = %s, want %s", svc.WebSocketURL, tt.wantWS)
			}
			if svc.Instance != "otastub" {
				t.Errorf("Instance = %s, want otastub", svc.Instance)
			}
		})
	}
}

func TestAdvertisementTXTRecords(t *testing.T) {
	ad := Advertisement{
		Instance:     "otastub",
		Port:         8000,
		WebSocketURL: "ws://192.168.1.5:8000/ws",
		Version:      3,
	}

	want := []string{"path=/", "ws=ws://192.168.1.5:8000/ws", "version=3"}
	if got := ad.TXTRecords(); !reflect.DeepEqual(got, want) {
		t.Errorf("TXTRecords() = %v, want %v", got, want)
	}
}

func TestAdvertisementRoundTripThroughParser(t *testing.T) {
	ad := Advertisement{Instance: "bench", Port: 8123, WebSocketURL: "ws://10.1.1.1:8123/ws", Version: 3}
	svc := parseServiceEntry(newEntry(ad.Instance, "bench.local.", ad.Port, "10.1.1.1", ad.TXTRecords()))
	if svc == nil {
		t.Fatal("parseServiceEntry() = nil for our own advertisement")
	}
	if svc.OTAURL() != "http://10.1.1.1:8123/" {
		t.Errorf("OTAURL() = %s", svc.OTAURL())
	}
	if svc.Metadata["version"] != "3" {
		t.Errorf("Metadata[version] = %q, want 3", svc.Metadata["version"])
	}
}

func TestServiceOTAURLIPv6(t *testing.T) {
	svc := &Service{IP: "fe80::1", Port: 8000}
	if got := svc.OTAURL(); got != "http://[fe80::1]:8000/" {
		t.Errorf("OTAURL() = %s", got)
	}
}

func TestAdvertiserShutdownNil(t *testing.T) {
	var a *Advertiser
	a.Shutdown()
	(&Advertiser{}).Shutdown()
}

func TestNewScanner(t *testing.T) {
	if s := NewScanner(); s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
}

// fakeBrowser behaves like the zeroconf resolver: its sends ignore ctx and it
// closes the channel only after ctx ends. done is closed when it has exited.
type fakeBrowser struct {
	entries []*zeroconf.ServiceEntry
	err     error
	done    chan struct{}
}

func newFakeBrowser(err error, entries ...*zeroconf.ServiceEntry) *fakeBrowser {
	return &fakeBrowser{entries: entries, err: err, done: make(chan struct{})}
}

func (f *fakeBrowser) browse(ctx context.Context, service, domain string, out chan<- *zeroconf.ServiceEntry) error {
	go func() {
		defer close(f.done)
		for _, e := range f.entries {
			out <- e
		}
		<-ctx.Done()
		close(out)
	}()
	return f.err
}

func (f *fakeBrowser) assertStopped(t *testing.T) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(time.Second):
		t.Fatal("browser goroutine still running after Find returned")
	}
}

func TestScannerFind(t *testing.T) {
	stub := newEntry("bench", "bench.local.", 8000, "10.0.0.9", []string{"ws=ws://10.0.0.9:8000/ws"})
	other := newEntry("printer", "printer.local.", 80, "10.0.0.3", []string{"path=/"})
	second := newEntry("lab", "lab.local.", 8001, "10.0.0.4", []string{"ws=ws://10.0.0.4:8001/ws"})

	tests := []struct {
		name     string
		instance string
		entries  []*zeroconf.ServiceEntry
		want     string
		wantErr  string
	}{
		{"first stub", "", []*zeroconf.ServiceEntry{other, stub, second}, "bench", ""},
		{"named stub", "lab", []*zeroconf.ServiceEntry{stub, second}, "lab", ""},
		{"no stub", "", []*zeroconf.ServiceEntry{other}, "", "no OTA stub found"},
		{"named stub missing", "kitchen", []*zeroconf.ServiceEntry{stub}, "", `"kitchen" not found`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeBrowser(nil, tt.entries...)
			s := &Scanner{Timeout: 100 * time.Millisecond, browse: fake.browse}

			svc, err := s.Find(context.Background(), tt.instance)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Find() error = %v, want %q", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Find() error = %v", err)
				}
				if svc.Instance != tt.want {
					t.Errorf("Find() = %s, want %s", svc.Instance, tt.want)
				}
			}
			fake.assertStopped(t)
		})
	}
}

func TestScannerFindBrowseError(t *testing.T) {
	// An entry already in flight when the browse fails must not strand the browser
	stub := newEntry("bench", "bench.local.", 8000, "10.0.0.9", []string{"ws=ws://10.0.0.9:8000/ws"})
	fake := newFakeBrowser(errors.New("no multicast interface"), stub)
	s := &Scanner{Timeout: time.Minute, browse: fake.browse}

	_, err := s.Find(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "no multicast interface") {
		t.Errorf("Find() error = %v, want browse error", err)
	}
	fake.assertStopped(t)
}

func TestScannerFindCancelled(t *testing.T) {
	fake := newFakeBrowser(nil)
	s := &Scanner{Timeout: time.Minute, browse: fake.browse}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Find(ctx, ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Find() error = %v, want context.Canceled", err)
	}
	fake.assertStopped(t)
}
