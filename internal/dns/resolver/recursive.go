package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
)

// rootHints are the thirteen IANA root server addresses. Every lookup
// starts at the first one, a.root-servers.net (198.41.0.4).
var rootHints = []string{
	"198.41.0.4",
	"170.247.170.2",
	"192.33.4.12",
	"199.7.91.13",
	"192.203.230.10",
	"192.5.5.241",
	"192.112.36.4",
	"198.97.190.53",
	"192.36.148.17",
	"192.58.128.30",
	"193.0.14.129",
	"199.7.83.42",
	"202.12.27.33",
}

// maxReferrals bounds how many nameserver hops a single question may take
// before the walk gives up with SERVFAIL. Mandatory per the design notes;
// no source material this implementation is grounded on enforces one.
const maxReferrals = 16

// maxCNAMEChase bounds how many CNAME links a type-A query will follow
// before giving up.
const maxCNAMEChase = 8

// Recursive walks the referral chain itself, starting from the root
// hints, until it gets an authoritative answer, NXDOMAIN, or runs out of
// patience.
type Recursive struct {
	base
	client exchanger
}

// NewRecursive returns a Recursive resolver. cache may be nil.
func NewRecursive(client exchanger, cache Cache, logger *slog.Logger) *Recursive {
	return &Recursive{base: base{cache: cache, logger: logger}, client: client}
}

// Resolve implements Resolver.
func (r *Recursive) Resolve(ctx context.Context, qname string, qtype packet.RRType) (*packet.Packet, error) {
	return r.resolve(ctx, qname, qtype, r.execute)
}

func (r *Recursive) execute(ctx context.Context, qname string, qtype packet.RRType) (*packet.Packet, error) {
	result, err := r.lookup(ctx, qname, qtype, 0)
	if err != nil {
		return nil, err
	}
	if qtype != packet.TypeA {
		return result, nil
	}
	return r.chaseCNAME(ctx, qname, result, 0)
}

// chaseCNAME follows a chain of CNAME answers for a type-A query: if the
// authoritative answer we got back is a CNAME rather than the address
// itself, resolve the alias target and splice its answers onto ours.
func (r *Recursive) chaseCNAME(ctx context.Context, qname string, result *packet.Packet, depth int) (*packet.Packet, error) {
	if depth >= maxCNAMEChase {
		return nil, fmt.Errorf("resolver: %w: cname chain for %q exceeded %d links", errResolverExhausted, qname, maxCNAMEChase)
	}

	var alias string
	hasA := false
	for _, a := range result.Answers {
		if a.Type == packet.TypeA {
			hasA = true
		}
		if a.Type == packet.TypeCNAME && alias == "" {
			alias = a.Host
		}
	}
	if hasA || alias == "" {
		return result, nil
	}

	r.log().Debug("chasing cname", "qname", qname, "alias", alias, "depth", depth)
	aliasResult, err := r.lookup(ctx, alias, packet.TypeA, 0)
	if err != nil {
		return nil, err
	}
	chased, err := r.chaseCNAME(ctx, alias, aliasResult, depth+1)
	if err != nil {
		return nil, err
	}
	result.Answers = append(result.Answers, chased.Answers...)
	result.Header.Rcode = chased.Header.Rcode
	return result, nil
}

// lookup performs the iterative referral walk for a single (qname,
// qtype) pair: start at a root hint, and at each step either accept the
// answer, accept NXDOMAIN, follow a glued referral directly, or resolve
// an unglued NS host name (recursively, as type A) and follow that.
func (r *Recursive) lookup(ctx context.Context, qname string, qtype packet.RRType, depth int) (*packet.Packet, error) {
	ns := rootHints[0]

	for hop := 0; ; hop++ {
		if hop >= maxReferrals {
			return nil, fmt.Errorf("resolver: %w: %q took more than %d referrals", errResolverExhausted, qname, maxReferrals)
		}

		r.log().Debug("recursive lookup", "qname", qname, "qtype", qtype, "ns", ns, "hop", hop)
		resp, err := r.client.Exchange(ctx, qname, qtype, net.JoinHostPort(ns, "53"), false)
		if err != nil {
			return nil, fmt.Errorf("resolver: query ns %s for %q: %w", ns, qname, err)
		}

		if len(resp.Answers) > 0 && resp.Header.Rcode == packet.RcodeNoError {
			return resp, nil
		}
		if resp.Header.Rcode == packet.RcodeNXDomain {
			return resp, nil
		}

		if glue, ok := resp.ResolvedNS(qname); ok {
			ns = glue.String()
			continue
		}

		nsHost, ok := resp.UnresolvedNS(qname)
		if !ok {
			// No referral offered anything further to follow; this is
			// the best answer available.
			return resp, nil
		}

		if depth >= maxReferrals {
			return nil, fmt.Errorf("resolver: %w: glueless referral chain for %q too deep", errResolverExhausted, qname)
		}
		nsAddrs, err := r.lookup(ctx, nsHost, packet.TypeA, depth+1)
		if err != nil {
			return nil, err
		}
		addr, ok := nsAddrs.RandomA()
		if !ok {
			return resp, nil
		}
		ns = addr.String()
	}
}
