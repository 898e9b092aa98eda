//go:build !windows

package server

import (
	"net"

	"golang.org/x/sys/unix"
)

// socketBufferBytes is the SO_RCVBUF/SO_SNDBUF size requested on the
// shared UDP socket. The kernel only ever honors this as an upper bound
// and commonly doubles it for bookkeeping, but raising it past the
// default matters once query volume outpaces the socket's recv queue:
// datagrams drop silently there, before they ever reach ReadFromUDP.
const socketBufferBytes = 4 << 20 // 4MiB

// TuneSocketBuffers raises the kernel send/receive buffer sizes on the
// server's shared UDP socket so a burst of concurrent queries doesn't
// overflow it under load. Failures are non-fatal: the socket still
// works, just with whatever buffer size the OS defaulted to.
func TuneSocketBuffers(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, socketBufferBytes); e != nil {
			sockErr = e
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, socketBufferBytes)
	})
	if err != nil {
		return err
	}
	return sockErr
}
