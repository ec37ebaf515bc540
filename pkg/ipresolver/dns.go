package ipresolver

import (
	"context"
	"fmt"

	"github.com/miekg/dns"
)

// DNS asks a resolver that echoes the querying address for a special name,
// such as OpenDNS's myip.opendns.com.
type DNS struct {
	server string
	name   string
	client *dns.Client
}

// NewDNS creates a DNS resolver that queries server (host:port) for DefaultDNSName.
func NewDNS(server string) *DNS {
	return &DNS{
		server: server,
		name:   DefaultDNSName,
		client: &dns.Client{Net: "udp", Timeout: defaultDialTimeout},
	}
}

// Resolve implements Resolver.
func (d *DNS) Resolve(ctx context.Context) (string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(d.name, dns.TypeA)
	msg.RecursionDesired = true

	resp, _, err := d.client.ExchangeContext(ctx, msg, d.server)
	if err != nil {
		return "", fmt.Errorf("%w: querying %s: %w", ErrLookup, d.server, err)
	}

	if resp.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("%w: %s answered %s", ErrLookup, d.server, dns.RcodeToString[resp.Rcode])
	}

	for _, rr := range resp.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}

	return "", fmt.Errorf("%w: no A record for %s from %s", ErrLookup, d.name, d.server)
}
