// Package protocol implements the 2ping wire format subset spoken by the
// responder: header validation and decoding of inbound datagrams, and
// construction of reply datagrams carrying an In-Reply-To opcode segment
// and a program-version extended segment.
//
// All multi-byte fields are big-endian. Layout of the 12-byte header:
//
//	Offset  Size  Field
//	0       2     magic = 0x3250
//	2       2     checksum (0 = absent)
//	4       6     message id
//	10      2     opcode flags
//	12+     var   opcode segment data (ignored on receive)
package protocol

const (
	// Magic is the 2-byte protocol tag opening every packet ("2P").
	Magic = 0x3250

	// HeaderSize is the fixed inbound header region; anything shorter is
	// not a 2ping packet.
	HeaderSize = 12

	// ReplySize is the fixed reply buffer capacity. The responder
	// transmits the whole zero-padded buffer, as the reference responder
	// does.
	ReplySize = 128
)

// Header field offsets.
const (
	offMagic     = 0
	offChecksum  = 2
	offMessageID = 4
	offFlags     = 10
)

// Opcode flag bits. Only these three matter to a passive responder; all
// other bits belong to the full protocol and are deliberately ignored,
// not rejected.
const (
	// OpReplyRequested marks an inbound packet that wants an answer.
	OpReplyRequested = 0x0001

	// OpInReplyTo marks that an In-Reply-To segment follows.
	OpInReplyTo = 0x0002

	// OpExtended marks that an extended segment follows.
	OpExtended = 0x8000

	// replyFlags is the fixed pattern carried by every reply.
	replyFlags = OpInReplyTo | OpExtended
)

// Reply segment offsets within the 128-byte reply buffer.
const (
	offInReplyToLen = 12
	offInReplyToID  = 14
	offExtendedLen  = 20
	offExtendedID   = 22
	offBannerLen    = 26
	offBanner       = 28
)

// ExtIDProgramVersion tags the extended segment carrying the responder's
// program banner ("2PVN").
const ExtIDProgramVersion = 0x3250564E

// MaxBannerLen bounds the program banner so the extended segment fits the
// fixed reply buffer.
const MaxBannerLen = ReplySize - offBanner

// MessageID is the 6-byte opaque correlation token carried by every
// packet. It has no internal structure.
type MessageID [6]byte

// String renders the id as lowercase hex for logs.
func (id MessageID) String() string {
	const hexdigits = "0123456789abcdef"
	var out [12]byte
	for i, b := range id {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0x0F]
	}
	return string(out[:])
}
