package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/tinmesh/pongd/internal/checksum"
	"github.com/tinmesh/pongd/internal/entropy"
)

// Encoder builds reply datagrams into a single fixed-capacity buffer that
// is zeroed and rewritten on every call. The buffer is owned exclusively
// by the encoder; callers must transmit or copy the returned slice before
// the next Encode. This bounded-memory design follows the reference
// responder's one-reusable-buffer approach for constrained devices.
//
// Not safe for concurrent use. The responder's single-threaded loop is
// the only caller.
type Encoder struct {
	buf    [ReplySize]byte
	banner []byte
	src    entropy.Source
}

// NewEncoder validates the banner against the fixed buffer capacity and
// returns an encoder drawing reply identifiers from src. An oversized
// banner is a configuration fault surfaced here, at startup, never per
// packet.
func NewEncoder(banner []byte, src entropy.Source) (*Encoder, error) {
	if len(banner) > MaxBannerLen {
		return nil, fmt.Errorf("program banner is %d bytes, maximum is %d", len(banner), MaxBannerLen)
	}
	b := make([]byte, len(banner))
	copy(b, banner)
	return &Encoder{banner: b, src: src}, nil
}

// Encode builds a reply to the packet whose message id was inReplyTo.
// The returned slice aliases the encoder's reusable buffer and is valid
// only until the next call.
//
// The reply carries a freshly generated message id (unrelated to
// inReplyTo by construction), the fixed In-Reply-To + Extended flag
// pattern, the original id in the In-Reply-To segment, the program
// banner in the Extended segment, and a checksum over the whole buffer.
func (e *Encoder) Encode(inReplyTo MessageID) ([]byte, error) {
	id, err := e.src.Bytes(6)
	if err != nil {
		return nil, fmt.Errorf("generate reply message id: %w", err)
	}

	buf := e.buf[:]
	for i := range buf {
		buf[i] = 0
	}

	binary.BigEndian.PutUint16(buf[offMagic:], Magic)
	// Checksum field stays zero until the rest of the buffer is written.
	copy(buf[offMessageID:offMessageID+6], id)
	binary.BigEndian.PutUint16(buf[offFlags:], replyFlags)

	// In-Reply-To segment: length then the original id verbatim.
	binary.BigEndian.PutUint16(buf[offInReplyToLen:], 6)
	copy(buf[offInReplyToID:offInReplyToID+6], inReplyTo[:])

	// Extended segment: length covers the extension id plus the
	// length-prefixed banner.
	binary.BigEndian.PutUint16(buf[offExtendedLen:], uint16(4+2+len(e.banner)))
	binary.BigEndian.PutUint32(buf[offExtendedID:], ExtIDProgramVersion)
	binary.BigEndian.PutUint16(buf[offBannerLen:], uint16(len(e.banner)))
	copy(buf[offBanner:], e.banner)

	// Optional per the protocol, always filled in here.
	binary.BigEndian.PutUint16(buf[offChecksum:], checksum.Sum(buf))

	return buf, nil
}

// Banner returns the configured program banner.
func (e *Encoder) Banner() []byte {
	return e.banner
}
