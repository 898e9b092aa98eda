package resolver

import (
	"context"
	"net"
	"testing"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
	"github.com/stretchr/testify/require"
)

// stubExchanger answers Exchange calls from a queue of canned responses,
// keyed by the server address queried, letting a test script a referral
// chain without any real sockets.
type stubExchanger struct {
	byServer map[string][]*packet.Packet
	calls    int
}

func (s *stubExchanger) Exchange(_ context.Context, qname string, qtype packet.RRType, server string, _ bool) (*packet.Packet, error) {
	s.calls++
	queue := s.byServer[server]
	if len(queue) == 0 {
		return nil, errStubExhausted
	}
	next := queue[0]
	s.byServer[server] = queue[1:]
	_ = qname
	_ = qtype
	return next, nil
}

var errStubExhausted = &stubError{"stub: no more responses queued for this server"}

type stubError struct{ msg string }

func (e *stubError) Error() string { return e.msg }

func TestForwardResolveAnswers(t *testing.T) {
	want := &packet.Packet{
		Header:  packet.Header{Rcode: packet.RcodeNoError},
		Answers: []packet.Record{{Name: "example.com.", Type: packet.TypeA, IP: net.ParseIP("1.2.3.4")}},
	}
	stub := &stubExchanger{byServer: map[string][]*packet.Packet{"9.9.9.9:53": {want}}}

	f := NewForward(stub, "9.9.9.9:53", nil, nil)
	got, err := f.Resolve(context.Background(), "example.com.", packet.TypeA)
	require.NoError(t, err)
	require.Len(t, got.Answers, 1)
	require.True(t, got.Answers[0].IP.Equal(net.ParseIP("1.2.3.4")))
}

func TestForwardDefaultsBareHostToPort53(t *testing.T) {
	want := &packet.Packet{Header: packet.Header{Rcode: packet.RcodeNoError}}
	stub := &stubExchanger{byServer: map[string][]*packet.Packet{"9.9.9.9:53": {want}}}

	f := NewForward(stub, "9.9.9.9", nil, nil)
	_, err := f.Resolve(context.Background(), "example.com.", packet.TypeA)
	require.NoError(t, err)
	require.Equal(t, 1, stub.calls, "expected the bare host to be dialed on the default port")
}

func TestResolveUnknownTypeIsNotImplemented(t *testing.T) {
	stub := &stubExchanger{byServer: map[string][]*packet.Packet{}}
	f := NewForward(stub, "9.9.9.9:53", nil, nil)

	got, err := f.Resolve(context.Background(), "example.com.", packet.RRType(999))
	require.NoError(t, err)
	require.Equal(t, packet.RcodeNotImp, got.Header.Rcode)
	require.Zero(t, stub.calls, "an unsupported qtype must never reach the transport")
}

func TestRecursiveResolveFollowsGluedReferral(t *testing.T) {
	root := rootHints[0]
	tldAddr := "192.0.2.53"

	rootReferral := &packet.Packet{
		Header:      packet.Header{Rcode: packet.RcodeNoError},
		Authorities: []packet.Record{{Name: "com.", Type: packet.TypeNS, Host: "a.gtld-servers.net."}},
		Additional:  []packet.Record{{Name: "a.gtld-servers.net.", Type: packet.TypeA, IP: net.ParseIP(tldAddr)}},
	}
	finalAnswer := &packet.Packet{
		Header:  packet.Header{Rcode: packet.RcodeNoError},
		Answers: []packet.Record{{Name: "example.com.", Type: packet.TypeA, IP: net.ParseIP("93.184.216.34")}},
	}

	stub := &stubExchanger{byServer: map[string][]*packet.Packet{
		net.JoinHostPort(root, "53"):     {rootReferral},
		net.JoinHostPort(tldAddr, "53"): {finalAnswer},
	}}

	r := NewRecursive(stub, nil, nil)
	got, err := r.Resolve(context.Background(), "example.com.", packet.TypeA)
	require.NoError(t, err)
	require.Len(t, got.Answers, 1)
	require.True(t, got.Answers[0].IP.Equal(net.ParseIP("93.184.216.34")))
}

func TestRecursiveResolveExhaustsAfterTooManyReferrals(t *testing.T) {
	root := rootHints[0]
	// Every hop refers to a nameserver whose own A record points right
	// back at itself, forming an infinite (but non-cyclic-by-name)
	// referral chain that must trip the iteration cap.
	loop := &packet.Packet{
		Header:      packet.Header{Rcode: packet.RcodeNoError},
		Authorities: []packet.Record{{Name: "example.com.", Type: packet.TypeNS, Host: "ns.example.com."}},
		Additional:  []packet.Record{{Name: "ns.example.com.", Type: packet.TypeA, IP: net.ParseIP(root)}},
	}

	stub := &stubExchanger{byServer: map[string][]*packet.Packet{}}
	for i := 0; i < maxReferrals+2; i++ {
		stub.byServer[net.JoinHostPort(root, "53")] = append(stub.byServer[net.JoinHostPort(root, "53")], loop)
	}

	r := NewRecursive(stub, nil, nil)
	_, err := r.Resolve(context.Background(), "example.com.", packet.TypeA)
	require.ErrorIs(t, err, errResolverExhausted)
}
