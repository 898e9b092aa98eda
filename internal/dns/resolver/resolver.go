// Package resolver implements the two ways this server can answer a
// question it does not have a local answer for: Forward it to a single
// fixed upstream, or walk the referral chain from the root ourselves.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
)

// Cache is the optional lookup hook a Resolver checks before doing any
// real work. A nil Cache (the default) makes every resolve a no-op miss,
// matching the core behavior this server ships with.
type Cache interface {
	Get(ctx context.Context, qname string, qtype packet.RRType) (*packet.Packet, bool)
	Set(ctx context.Context, qname string, qtype packet.RRType, answer *packet.Packet)
}

// exchanger is the subset of transport.Client a Resolver needs; declared
// here so tests can substitute a stub without a real socket.
type exchanger interface {
	Exchange(ctx context.Context, qname string, qtype packet.RRType, server string, recursionDesired bool) (*packet.Packet, error)
}

// Resolver answers one question per call. Both variants share the same
// pre-dispatch behavior: an unsupported query type short-circuits to a
// synthetic NOTIMP response, and a configured Cache is always consulted
// first.
type Resolver interface {
	Resolve(ctx context.Context, qname string, qtype packet.RRType) (*packet.Packet, error)
}

// base holds the behavior common to every Resolver implementation.
type base struct {
	cache  Cache
	logger *slog.Logger
}

func notImplemented(qname string, qtype packet.RRType) *packet.Packet {
	p := packet.NewPacket()
	p.Header.Rcode = packet.RcodeNotImp
	p.Questions = []packet.Question{{Name: qname, Type: qtype}}
	return p
}

// resolve runs the hooks every Resolver shares, then calls execute for
// anything that isn't handled generically: an unknown/unsupported qtype
// never reaches execute, and a cache hit short-circuits it entirely.
func (b *base) resolve(ctx context.Context, qname string, qtype packet.RRType, execute func(context.Context, string, packet.RRType) (*packet.Packet, error)) (*packet.Packet, error) {
	if !isSupportedType(qtype) {
		return notImplemented(qname, qtype), nil
	}

	// Local authority is out of scope for this core; there is no zone
	// data to consult. The cache hook, when configured, is checked here.
	if b.cache != nil {
		if hit, ok := b.cache.Get(ctx, qname, qtype); ok {
			return hit, nil
		}
	}

	result, err := execute(ctx, qname, qtype)
	if err != nil {
		return nil, err
	}

	if b.cache != nil && result != nil {
		b.cache.Set(ctx, qname, qtype, result)
	}
	return result, nil
}

func isSupportedType(qtype packet.RRType) bool {
	switch qtype {
	case packet.TypeA, packet.TypeAAAA, packet.TypeNS, packet.TypeCNAME, packet.TypeMX:
		return true
	default:
		return false
	}
}

func (b *base) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}

var errResolverExhausted = fmt.Errorf("resolver: exceeded iteration bound without a final answer")
