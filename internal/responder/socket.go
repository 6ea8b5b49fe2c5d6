package responder

import (
	"context"
	"net"
)

// listenUDP binds the responder's datagram socket with the platform
// socket options applied before bind.
func listenUDP(network, address string) (net.PacketConn, error) {
	lc := net.ListenConfig{Control: controlSocket}
	return lc.ListenPacket(context.Background(), network, address)
}
