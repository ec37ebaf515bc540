package ipresolver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/pion/stun"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"gitlab.bluewillows.net/root/porkddns/internal/metrics"
)

func TestWeb_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr bool
	}{
		{"trims trailing newline", http.StatusOK, "203.0.113.5\n", "203.0.113.5", false},
		{"trims surrounding whitespace", http.StatusOK, "  2001:db8::1 \r\n", "2001:db8::1", false},
		{"no format validation", http.StatusOK, "not-an-ip", "not-an-ip", false},
		{"empty body", http.StatusOK, "  \n", "", true},
		{"non-text body", http.StatusOK, "\xff\xfe\xfd", "", true},
		{"server error", http.StatusInternalServerError, "oops", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("unexpected method: %s", r.Method)
				}
				if r.Header.Get("Cache-Control") != "no-cache" {
					t.Errorf("expected Cache-Control no-cache, got %q", r.Header.Get("Cache-Control"))
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			got, err := NewWeb(server.URL, server.Client()).Resolve(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Resolve() = %q, want error", got)
				}
				if !errors.Is(err, ErrLookup) {
					t.Errorf("expected ErrLookup, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeb_Resolve_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewWeb(url, nil).Resolve(context.Background())
	if !errors.Is(err, ErrLookup) {
		t.Errorf("expected ErrLookup, got %v", err)
	}
}

func TestNew_Methods(t *testing.T) {
	tests := []struct {
		method  string
		want    any
		wantErr bool
	}{
		{"", &Web{}, false},
		{"http", &Web{}, false},
		{"STUN", &STUN{}, false},
		{"dns", &DNS{}, false},
		{"carrier-pigeon", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			r, err := New(Config{Method: tt.method})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown method")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error: %v", err)
			}
			inst, ok := r.(*instrumented)
			if !ok {
				t.Fatalf("expected *instrumented, got %T", r)
			}
			switch tt.want.(type) {
			case *Web:
				w, ok := inst.next.(*Web)
				if !ok {
					t.Fatalf("expected *Web, got %T", inst.next)
				}
				if w.url != DefaultURL {
					t.Errorf("url = %q, want %q", w.url, DefaultURL)
				}
			case *STUN:
				s, ok := inst.next.(*STUN)
				if !ok {
					t.Fatalf("expected *STUN, got %T", inst.next)
				}
				if s.server != DefaultSTUNServer {
					t.Errorf("server = %q, want %q", s.server, DefaultSTUNServer)
				}
			case *DNS:
				d, ok := inst.next.(*DNS)
				if !ok {
					t.Fatalf("expected *DNS, got %T", inst.next)
				}
				if d.server != DefaultDNSServer {
					t.Errorf("server = %q, want %q", d.server, DefaultDNSServer)
				}
			}
		})
	}
}

func TestNew_CountsLookups(t *testing.T) {
	metrics.IPLookupsTotal.Reset()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("198.51.100.1\n"))
	}))
	defer server.Close()

	r, err := New(Config{Method: MethodHTTP, URL: server.URL}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	ip, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if ip != "198.51.100.1" {
		t.Errorf("Resolve() = %q, want %q", ip, "198.51.100.1")
	}
	if got := testutil.ToFloat64(metrics.IPLookupsTotal.WithLabelValues("http", "success")); got != 1 {
		t.Errorf("expected 1 successful lookup, got %f", got)
	}
}

// startSTUNResponder answers one Binding Request with the given mapped address.
func startSTUNResponder(t *testing.T, mapped net.IP) string {
	t.Helper()

	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 1500)
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			return
		}
		req := &stun.Message{Raw: append([]byte(nil), buf[:n]...)}
		if err := req.Decode(); err != nil {
			return
		}
		resp, err := stun.Build(
			stun.NewTransactionIDSetter(req.TransactionID),
			stun.BindingSuccess,
			&stun.XORMappedAddress{IP: mapped, Port: 40000},
			stun.Fingerprint,
		)
		if err != nil {
			return
		}
		_, _ = pc.WriteTo(resp.Raw, addr)
	}()

	return pc.LocalAddr().String()
}

func TestSTUN_Resolve(t *testing.T) {
	addr := startSTUNResponder(t, net.IPv4(203, 0, 113, 7).To4())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := NewSTUN(addr).Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if got != "203.0.113.7" {
		t.Errorf("Resolve() = %q, want %q", got, "203.0.113.7")
	}
}

func TestSTUN_Resolve_NoResponse(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err = NewSTUN(pc.LocalAddr().String()).Resolve(ctx)
	if !errors.Is(err, ErrLookup) {
		t.Errorf("expected ErrLookup, got %v", err)
	}
}

// startDNSServer runs an in-process DNS server answering with handler.
func startDNSServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		Handler:           handler,
		NotifyStartedFunc: func() { close(started) },
	}
	go func() { _ = server.ActivateAndServe() }()
	t.Cleanup(func() { _ = server.Shutdown() })

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dns server did not start")
	}

	return pc.LocalAddr().String()
}

func TestDNS_Resolve(t *testing.T) {
	addr := startDNSServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		if r.Question[0].Name == DefaultDNSName && r.Question[0].Qtype == dns.TypeA {
			rr, _ := dns.NewRR("myip.opendns.com. 0 IN A 192.0.2.44")
			m.Answer = append(m.Answer, rr)
		}
		_ = w.WriteMsg(m)
	})

	got, err := NewDNS(addr).Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if got != "192.0.2.44" {
		t.Errorf("Resolve() = %q, want %q", got, "192.0.2.44")
	}
}

func TestDNS_Resolve_Errors(t *testing.T) {
	tests := []struct {
		name  string
		rcode int
	}{
		{"refused", dns.RcodeRefused},
		{"no answer", dns.RcodeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := startDNSServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
				m := new(dns.Msg)
				m.SetRcode(r, tt.rcode)
				_ = w.WriteMsg(m)
			})

			_, err := NewDNS(addr).Resolve(context.Background())
			if !errors.Is(err, ErrLookup) {
				t.Errorf("expected ErrLookup, got %v", err)
			}
		})
	}
}
