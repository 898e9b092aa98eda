package resolver

import (
	"context"
	"log/slog"
	"net"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
)

// defaultUpstreamPort is the port a --server HOST flag dials when the
// caller gave a bare host, per spec's "(HOST, 53)" CLI contract.
const defaultUpstreamPort = "53"

// Forward answers every question with a single recursion-desired query to
// one fixed upstream server, trusting that server to do the real work.
type Forward struct {
	base
	client exchanger
	server string // host:port of the upstream, e.g. "9.9.9.9:53"
}

// NewForward returns a Forward resolver querying server for every
// question. server may be a bare host ("9.9.9.9"), in which case it dials
// port 53, or an explicit host:port. cache may be nil.
func NewForward(client exchanger, server string, cache Cache, logger *slog.Logger) *Forward {
	return &Forward{
		base:   base{cache: cache, logger: logger},
		client: client,
		server: withDefaultPort(server),
	}
}

// withDefaultPort appends the default DNS port to addr when it names a
// bare host with no port of its own.
func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, defaultUpstreamPort)
}

// Resolve implements Resolver.
func (f *Forward) Resolve(ctx context.Context, qname string, qtype packet.RRType) (*packet.Packet, error) {
	return f.resolve(ctx, qname, qtype, f.execute)
}

func (f *Forward) execute(ctx context.Context, qname string, qtype packet.RRType) (*packet.Packet, error) {
	f.log().Debug("forwarding query", "qname", qname, "qtype", qtype, "upstream", f.server)
	return f.client.Exchange(ctx, qname, qtype, f.server, true)
}
