package ipresolver

import (
	"context"
	"fmt"
	"net"

	"github.com/pion/stun"
)

// STUN discovers the public address with a STUN Binding Request over UDP and
// returns the IP from the XOR-MAPPED-ADDRESS attribute.
type STUN struct {
	server string
}

// NewSTUN creates a STUN resolver for server (host:port).
func NewSTUN(server string) *STUN {
	return &STUN{server: server}
}

// Resolve implements Resolver.
func (s *STUN) Resolve(ctx context.Context) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", s.server)
	if err != nil {
		return "", fmt.Errorf("%w: connecting to STUN server %s: %w", ErrLookup, s.server, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(deadline(ctx))

	request := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	if _, err := conn.Write(request.Raw); err != nil {
		return "", fmt.Errorf("%w: sending STUN request: %w", ErrLookup, err)
	}

	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		return "", fmt.Errorf("%w: reading STUN response: %w", ErrLookup, err)
	}

	response := &stun.Message{Raw: buf[:n]}
	if err := response.Decode(); err != nil {
		return "", fmt.Errorf("%w: decoding STUN response: %w", ErrLookup, err)
	}
	if response.TransactionID != request.TransactionID {
		return "", fmt.Errorf("%w: STUN transaction ID mismatch", ErrLookup)
	}

	var xorAddr stun.XORMappedAddress
	if err := xorAddr.GetFrom(response); err != nil {
		return "", fmt.Errorf("%w: reading XOR-MAPPED-ADDRESS: %w", ErrLookup, err)
	}

	return xorAddr.IP.String(), nil
}
