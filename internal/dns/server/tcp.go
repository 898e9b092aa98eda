package server

import (
	"context"
	"encoding/binary"
	"io"
	"net"

	"github.com/poyrazK/cloudDNS/internal/dns/packet"
	"github.com/poyrazK/cloudDNS/internal/dns/workerpool"
)

// ServeTCP runs the TCP accept loop on ln until ctx is canceled, handing
// each accepted connection to the worker pool. Unlike the UDP path, a TCP
// connection is private to the client that opened it, so there is no
// shared-socket interleaving concern here: each connection's own
// goroutine owns its writes.
func ServeTCP(ctx context.Context, sc *Context, ln *net.TCPListener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.AcceptTCP()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sc.log().Warn("tcp accept failed", "error", err)
			continue
		}

		submitted := sc.Pool.Submit(workerpool.Task(func() {
			handleTCPConn(ctx, sc, conn)
		}))
		if !submitted {
			conn.Close()
			return nil
		}
	}
}

func handleTCPConn(ctx context.Context, sc *Context, conn *net.TCPConn) {
	defer conn.Close()

	var lenPrefix [2]byte
	if _, err := io.ReadFull(conn, lenPrefix[:]); err != nil {
		return
	}
	msgLen := binary.BigEndian.Uint16(lenPrefix[:])
	if msgLen == 0 || int(msgLen) > packet.MaxTCPSize {
		return
	}

	data := make([]byte, msgLen)
	if _, err := io.ReadFull(conn, data); err != nil {
		return
	}

	response, err := handleQuery(ctx, sc, data, "tcp")
	if err != nil {
		return
	}

	binary.BigEndian.PutUint16(lenPrefix[:], uint16(len(response)))
	if _, err := conn.Write(lenPrefix[:]); err != nil {
		return
	}
	if _, err := conn.Write(response); err != nil {
		sc.log().Warn("tcp write failed", "error", err)
	}
}
