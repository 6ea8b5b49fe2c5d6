package entropy

import "encoding/binary"

// MT19937 tempering and twist constants from the reference algorithm.
const (
	mtStateSize  = 624
	mtShiftSize  = 397
	mtInitMult   = 1812433253
	mtMatrixA    = 0x9908B0DF
	mtUpperMask  = 0x80000000
	mtLowerMask  = 0x7FFFFFFF
	mtTemperingB = 0x9D2C5680
	mtTemperingC = 0xEFC60000
)

// MT19937 is the canonical 32-bit Mersenne Twister. It is the deterministic
// fallback Source for platforms without an OS entropy pool. Output is
// bit-exact against the reference implementation, which keeps identifier
// generation reproducible under a fixed seed.
//
// Not cryptographically secure; the protocol only needs low collision
// probability for correlation identifiers.
type MT19937 struct {
	state [mtStateSize]uint32
	index int
}

// NewMT19937 creates a generator seeded with a single 32-bit word.
func NewMT19937(seed uint32) *MT19937 {
	m := &MT19937{index: mtStateSize}
	m.state[0] = seed
	for i := 1; i < mtStateSize; i++ {
		prev := m.state[i-1]
		m.state[i] = mtInitMult*(prev^(prev>>30)) + uint32(i)
	}
	return m
}

// Uint32 extracts the next tempered 32-bit word.
func (m *MT19937) Uint32() uint32 {
	if m.index >= mtStateSize {
		m.twist()
	}

	y := m.state[m.index]
	m.index++

	y ^= y >> 11
	y ^= y << 7 & mtTemperingB
	y ^= y << 15 & mtTemperingC
	y ^= y >> 18

	return y
}

// twist regenerates all 624 state words and resets the cursor.
func (m *MT19937) twist() {
	for i := 0; i < mtStateSize; i++ {
		y := (m.state[i] & mtUpperMask) | (m.state[(i+1)%mtStateSize] & mtLowerMask)
		next := m.state[(i+mtShiftSize)%mtStateSize] ^ (y >> 1)
		if y&1 != 0 {
			next ^= mtMatrixA
		}
		m.state[i] = next
	}
	m.index = 0
}

// Bytes serializes extracted words big-endian to produce exactly n bytes.
// A 1-3 byte remainder consumes one extra word and takes its trailing
// bytes, matching the reference responder's byte stream word for word.
// The error is always nil; it exists to satisfy Source.
func (m *MT19937) Bytes(n int) ([]byte, error) {
	out := make([]byte, n)
	for i := 0; i+4 <= n; i += 4 {
		binary.BigEndian.PutUint32(out[i:i+4], m.Uint32())
	}
	if r := n % 4; r != 0 {
		var word [4]byte
		binary.BigEndian.PutUint32(word[:], m.Uint32())
		copy(out[n-r:], word[4-r:])
	}
	return out, nil
}

// Name identifies the source in logs and status output.
func (m *MT19937) Name() string {
	return "mt19937"
}
