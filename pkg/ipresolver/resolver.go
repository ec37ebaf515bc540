// Package ipresolver discovers the machine's current public IP address.
//
// The default method asks a plain-text "what is my IP" web service. STUN and
// DNS based lookups are available for networks where outbound HTTPS to such
// services is unreliable.
package ipresolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/porkddns/internal/metrics"
)

// ErrLookup wraps every failure to determine the public IP.
var ErrLookup = errors.New("public IP lookup failed")

// Lookup methods.
const (
	MethodHTTP = "http"
	MethodSTUN = "stun"
	MethodDNS  = "dns"
)

// Defaults for each lookup method.
const (
	DefaultURL        = "https://ifconfig.me/ip"
	DefaultSTUNServer = "stun.l.google.com:19302"
	DefaultDNSServer  = "resolver1.opendns.com:53"
	DefaultDNSName    = "myip.opendns.com."

	// defaultDialTimeout bounds STUN and DNS exchanges when the context has no deadline.
	defaultDialTimeout = 5 * time.Second
)

// Resolver returns the current public IP address as text.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Config selects and configures a lookup method.
type Config struct {
	Method     string // http, stun, dns
	URL        string // http: echo endpoint
	STUNServer string // stun: host:port
	DNSServer  string // dns: host:port
}

// Option is a functional option for New.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// WithHTTPClient sets the HTTP client used by the http method.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New builds the Resolver selected by cfg.Method. Lookups are counted in
// metrics.IPLookupsTotal.
func New(cfg Config, opts ...Option) (Resolver, error) {
	o := &options{
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	method := strings.ToLower(cfg.Method)
	if method == "" {
		method = MethodHTTP
	}

	var r Resolver
	switch method {
	case MethodHTTP:
		u := cfg.URL
		if u == "" {
			u = DefaultURL
		}
		r = NewWeb(u, o.httpClient)
	case MethodSTUN:
		server := cfg.STUNServer
		if server == "" {
			server = DefaultSTUNServer
		}
		r = NewSTUN(server)
	case MethodDNS:
		server := cfg.DNSServer
		if server == "" {
			server = DefaultDNSServer
		}
		r = NewDNS(server)
	default:
		return nil, fmt.Errorf("unknown IP lookup method %q (must be http, stun, or dns)", cfg.Method)
	}

	return &instrumented{method: method, next: r, logger: o.logger}, nil
}

type instrumented struct {
	method string
	next   Resolver
	logger *slog.Logger
}

func (i *instrumented) Resolve(ctx context.Context) (string, error) {
	ip, err := i.next.Resolve(ctx)
	if err != nil {
		metrics.IPLookupsTotal.WithLabelValues(i.method, "error").Inc()
		return "", err
	}
	metrics.IPLookupsTotal.WithLabelValues(i.method, "success").Inc()
	i.logger.Debug("resolved public IP",
		slog.String("method", i.method),
		slog.String("ip", ip),
	)
	return ip, nil
}

// deadline returns the context deadline, or now+defaultDialTimeout.
func deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(defaultDialTimeout)
}
