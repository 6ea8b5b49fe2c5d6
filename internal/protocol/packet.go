package protocol

import (
	"encoding/binary"

	"github.com/tinmesh/pongd/internal/checksum"
)

// DiscardReason classifies why an inbound datagram was dropped.
// Discards are normal traffic filtering, not faults; the sender is never
// told.
type DiscardReason string

const (
	DiscardNone     DiscardReason = ""
	DiscardShort    DiscardReason = "short"
	DiscardMagic    DiscardReason = "magic"
	DiscardChecksum DiscardReason = "checksum"
)

// Packet is a decoded inbound 2ping packet. It is ephemeral: a value
// exists only for the duration of one responder loop iteration.
type Packet struct {
	MessageID MessageID
	Flags     uint16

	// ReplyRequested mirrors bit 0 of Flags. When unset the packet is
	// structurally valid but warrants no action.
	ReplyRequested bool
}

// Decode validates datagram against the header layout and extracts the
// responder-relevant fields. The second return value reports acceptance;
// rejected datagrams carry a DiscardReason and produce no error because
// silent discard is the protocol's failure mode.
//
// A zero checksum field means no checksum was supplied. A non-zero field
// must verify over the datagram with the field zeroed. Unknown flag bits
// and trailing opcode segment data are ignored for forward compatibility.
func Decode(datagram []byte) (Packet, bool, DiscardReason) {
	if len(datagram) < HeaderSize {
		return Packet{}, false, DiscardShort
	}
	if binary.BigEndian.Uint16(datagram[offMagic:offMagic+2]) != Magic {
		return Packet{}, false, DiscardMagic
	}

	if sum := binary.BigEndian.Uint16(datagram[offChecksum : offChecksum+2]); sum != 0 {
		if !checksum.Verify(datagram, offChecksum, sum) {
			return Packet{}, false, DiscardChecksum
		}
	}

	var p Packet
	copy(p.MessageID[:], datagram[offMessageID:offMessageID+6])
	p.Flags = binary.BigEndian.Uint16(datagram[offFlags : offFlags+2])
	p.ReplyRequested = p.Flags&OpReplyRequested != 0

	return p, true, DiscardNone
}
