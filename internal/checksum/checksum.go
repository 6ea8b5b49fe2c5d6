// Package checksum implements the 2ping one's-complement checksum.
//
// The algorithm is the RFC 1071 internet checksum with two 2ping-specific
// quirks: the carry fold is always applied exactly twice, and a result of
// zero is substituted with 0xFFFF because the protocol reserves a zero
// checksum field to mean "no checksum supplied". Both quirks are part of
// the wire format and must not be simplified away.
package checksum

// Sum computes the checksum over data.
//
// Bytes are summed as big-endian 16-bit words; a trailing odd byte
// contributes as the high byte of a final word. The result is never zero.
func Sum(data []byte) uint16 {
	var sum uint32

	for i := 0; i < len(data)-1; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}

	// The double fold guarantees convergence for any input under 64 KiB,
	// even when the first fold itself produces a carry.
	sum = (sum >> 16) + (sum & 0xFFFF)
	sum = (sum >> 16) + (sum & 0xFFFF)

	c := ^uint16(sum)
	if c == 0 {
		return 0xFFFF
	}
	return c
}

// Verify recomputes the checksum over packet with the 16-bit field at
// offset off treated as zero, and compares it to want. This is how a
// received checksum field is validated without mutating the packet.
func Verify(packet []byte, off int, want uint16) bool {
	if off < 0 || off+2 > len(packet) {
		return false
	}
	zeroed := make([]byte, len(packet))
	copy(zeroed, packet)
	zeroed[off] = 0
	zeroed[off+1] = 0
	return Sum(zeroed) == want
}
