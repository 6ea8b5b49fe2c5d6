//go:build unix

package responder

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlSocket sets SO_REUSEADDR before bind so a restarted responder
// does not race the kernel releasing the previous socket.
func controlSocket(network, address string, c syscall.RawConn) error {
	var opErr error
	if err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return opErr
}
