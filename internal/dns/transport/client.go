// Package transport sends a single DNS query to a single upstream server
// and returns its answer, falling back from UDP to TCP on truncation.
package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
	"github.com/poyrazK/cloudDNS/internal/metrics"
)

// ErrTransactionMismatch is returned when a reply's transaction ID does
// not match the one the query was sent with, most likely a spoofed or
// stray packet arriving on the ephemeral socket.
var ErrTransactionMismatch = errors.New("transport: reply transaction id does not match query")

// DefaultTimeout is the receive deadline applied to both the UDP and TCP
// legs of an exchange when the caller's context carries none.
const DefaultTimeout = 5 * time.Second

// Client sends outbound DNS queries. Per-exchange it opens a fresh
// ephemeral socket rather than sharing one client socket across
// concurrent callers — see DESIGN.md's Transport Client section — so Client
// itself holds no mutable per-query state and is safe for concurrent use
// without any locking.
type Client struct{}

// NewClient returns a ready-to-use transport Client.
func NewClient() *Client {
	return &Client{}
}

// Exchange sends qname/qtype to server (host, port), waits for and parses
// the reply, and follows up over TCP if the UDP reply was truncated. It
// does not retry on timeout or transport error; that policy belongs to
// the resolver.
func (c *Client) Exchange(ctx context.Context, qname string, qtype packet.RRType, server string, recursionDesired bool) (*packet.Packet, error) {
	id := packet.NextTransactionID()
	req := &packet.Packet{
		Header: packet.Header{
			ID:               id,
			RecursionDesired: recursionDesired,
		},
		Questions: []packet.Question{{Name: qname, Type: qtype}},
	}

	reply, err := c.exchangeUDP(ctx, req, server)
	if err != nil {
		return nil, err
	}
	if !reply.Header.Truncated {
		return reply, nil
	}
	return c.exchangeTCP(ctx, req, server)
}

func deadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		return dl
	}
	return time.Now().Add(DefaultTimeout)
}

func (c *Client) exchangeUDP(ctx context.Context, req *packet.Packet, server string) (*packet.Packet, error) {
	reply, err := c.doExchangeUDP(ctx, req, server)
	if err != nil {
		metrics.TransportExchanges.WithLabelValues("udp", "error").Inc()
		return nil, err
	}
	metrics.TransportExchanges.WithLabelValues("udp", "ok").Inc()
	return reply, nil
}

func (c *Client) doExchangeUDP(ctx context.Context, req *packet.Packet, server string) (*packet.Packet, error) {
	data, err := req.WriteUDP()
	if err != nil {
		return nil, fmt.Errorf("transport: serialize query: %w", err)
	}

	conn, err := net.Dial("udp", server)
	if err != nil {
		return nil, fmt.Errorf("transport: dial udp %s: %w", server, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline(ctx)); err != nil {
		return nil, fmt.Errorf("transport: set deadline: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("transport: send udp query: %w", err)
	}

	buf := make([]byte, packet.MaxUDPSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("transport: read udp reply: %w", err)
	}

	reply, err := packet.ParseUDP(buf[:n])
	if err != nil {
		return nil, fmt.Errorf("transport: parse udp reply: %w", err)
	}
	if reply.Header.ID != req.Header.ID {
		return nil, ErrTransactionMismatch
	}
	return reply, nil
}

func (c *Client) exchangeTCP(ctx context.Context, req *packet.Packet, server string) (*packet.Packet, error) {
	reply, err := c.doExchangeTCP(ctx, req, server)
	if err != nil {
		metrics.TransportExchanges.WithLabelValues("tcp", "error").Inc()
		return nil, err
	}
	metrics.TransportExchanges.WithLabelValues("tcp", "ok").Inc()
	return reply, nil
}

func (c *Client) doExchangeTCP(ctx context.Context, req *packet.Packet, server string) (*packet.Packet, error) {
	data, err := req.WriteTCP()
	if err != nil {
		return nil, fmt.Errorf("transport: serialize tcp query: %w", err)
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", server)
	if err != nil {
		return nil, fmt.Errorf("transport: dial tcp %s: %w", server, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline(ctx)); err != nil {
		return nil, fmt.Errorf("transport: set deadline: %w", err)
	}

	var lenPrefix [2]byte
	binary.BigEndian.PutUint16(lenPrefix[:], uint16(len(data)))
	if _, err := conn.Write(lenPrefix[:]); err != nil {
		return nil, fmt.Errorf("transport: send tcp length prefix: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("transport: send tcp query: %w", err)
	}

	if _, err := io.ReadFull(conn, lenPrefix[:]); err != nil {
		return nil, fmt.Errorf("transport: read tcp length prefix: %w", err)
	}
	replyLen := binary.BigEndian.Uint16(lenPrefix[:])
	replyData := make([]byte, replyLen)
	if _, err := io.ReadFull(conn, replyData); err != nil {
		return nil, fmt.Errorf("transport: read tcp reply: %w", err)
	}

	reply, err := packet.ParseTCP(replyData)
	if err != nil {
		return nil, fmt.Errorf("transport: parse tcp reply: %w", err)
	}
	if reply.Header.ID != req.Header.ID {
		return nil, ErrTransactionMismatch
	}
	return reply, nil
}
