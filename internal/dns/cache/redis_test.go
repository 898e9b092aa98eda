package cache

import (
	"context"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
)

func newTestCache(t *testing.T) *Redis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return NewRedis(mr.Addr(), "", 0)
}

func TestRedisCacheMissThenHit(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "example.com.", packet.TypeA)
	require.False(t, ok)

	answer := &packet.Packet{
		Header:    packet.Header{Rcode: packet.RcodeNoError},
		Questions: []packet.Question{{Name: "example.com.", Type: packet.TypeA}},
		Answers:   []packet.Record{{Name: "example.com.", Type: packet.TypeA, TTL: 60, IP: net.ParseIP("1.2.3.4")}},
	}
	c.Set(ctx, "example.com.", packet.TypeA, answer)

	got, ok := c.Get(ctx, "example.com.", packet.TypeA)
	require.True(t, ok)
	require.Len(t, got.Answers, 1)
	require.True(t, got.Answers[0].IP.Equal(net.ParseIP("1.2.3.4")))
}

func TestRedisCacheKeysByType(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	mx := &packet.Packet{
		Answers: []packet.Record{{Name: "example.com.", Type: packet.TypeMX, Priority: 10, Host: "mail.example.com."}},
	}
	c.Set(ctx, "example.com.", packet.TypeMX, mx)

	_, ok := c.Get(ctx, "example.com.", packet.TypeA)
	require.False(t, ok, "an MX entry must not satisfy an A lookup for the same name")
}
