//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package socket

import "syscall"

// The runtime already enables SO_BROADCAST on datagram sockets; address
// reuse is left at the platform default.
func controlReuse(network, address string, c syscall.RawConn) error {
	return nil
}

func controlBroadcast(network, address string, c syscall.RawConn) error {
	return nil
}
