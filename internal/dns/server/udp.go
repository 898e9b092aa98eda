package server

import (
	"context"
	"net"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
	"github.com/poyrazK/cloudDNS/internal/dns/workerpool"
)

// ServeUDP runs the UDP accept loop on conn until ctx is canceled. Each
// datagram is handed to the worker pool; conn itself is the one shared
// socket every worker's reply goes back out on. net.UDPConn's methods are
// documented safe for concurrent use, so concurrent replies from
// different pool workers never need an extra lock here.
func ServeUDP(ctx context.Context, sc *Context, conn *net.UDPConn) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, packet.MaxUDPSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sc.log().Warn("udp read failed", "error", err)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		replyTo := addr

		submitted := sc.Pool.Submit(workerpool.Task(func() {
			response, err := handleQuery(ctx, sc, data, "udp")
			if err != nil {
				return
			}
			if _, err := conn.WriteToUDP(response, replyTo); err != nil {
				sc.log().Warn("udp write failed", "error", err)
			}
		}))
		if !submitted {
			return nil
		}
	}
}
