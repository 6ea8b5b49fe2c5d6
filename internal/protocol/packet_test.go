package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/tinmesh/pongd/internal/checksum"
)

func pingDatagram(id MessageID, flags uint16, withChecksum bool) []byte {
	d := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(d[0:2], Magic)
	copy(d[4:10], id[:])
	binary.BigEndian.PutUint16(d[10:12], flags)
	if withChecksum {
		binary.BigEndian.PutUint16(d[2:4], checksum.Sum(d))
	}
	return d
}

func TestDecodeAccepts(t *testing.T) {
	id := MessageID{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}

	tests := []struct {
		name          string
		datagram      []byte
		wantRequested bool
	}{
		{"no checksum, reply requested", pingDatagram(id, OpReplyRequested, false), true},
		{"valid checksum", pingDatagram(id, OpReplyRequested, true), true},
		{"reply not requested", pingDatagram(id, 0, false), false},
		{"unknown flag bits ignored", pingDatagram(id, 0x4F00|OpReplyRequested, true), true},
		{"unknown flags without bit 0", pingDatagram(id, 0x4F00, true), false},
		{"trailing segment data ignored", append(pingDatagram(id, OpReplyRequested, false), 0xDE, 0xAD, 0xBE, 0xEF), true},
	}

	for _, tt := range tests {
		p, ok, reason := Decode(tt.datagram)
		if !ok {
			t.Errorf("%s: discarded (%s), want accept", tt.name, reason)
			continue
		}
		if p.MessageID != id {
			t.Errorf("%s: MessageID = %s, want %s", tt.name, p.MessageID, id)
		}
		if p.ReplyRequested != tt.wantRequested {
			t.Errorf("%s: ReplyRequested = %v, want %v", tt.name, p.ReplyRequested, tt.wantRequested)
		}
	}
}

func TestDecodeDiscards(t *testing.T) {
	id := MessageID{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}

	wrongMagic := pingDatagram(id, OpReplyRequested, false)
	wrongMagic[0], wrongMagic[1] = 0x00, 0x00

	corrupted := pingDatagram(id, OpReplyRequested, true)
	corrupted[7] ^= 0x01

	badField := pingDatagram(id, OpReplyRequested, true)
	binary.BigEndian.PutUint16(badField[2:4], binary.BigEndian.Uint16(badField[2:4])^0x1234)

	tests := []struct {
		name     string
		datagram []byte
		want     DiscardReason
	}{
		{"empty", nil, DiscardShort},
		{"truncated header", pingDatagram(id, OpReplyRequested, false)[:11], DiscardShort},
		{"wrong magic", wrongMagic, DiscardMagic},
		{"corrupted payload byte", corrupted, DiscardChecksum},
		{"wrong checksum field", badField, DiscardChecksum},
	}

	for _, tt := range tests {
		if _, ok, reason := Decode(tt.datagram); ok || reason != tt.want {
			t.Errorf("%s: ok=%v reason=%q, want discard %q", tt.name, ok, reason, tt.want)
		}
	}
}

func TestDecodeWrongMagicAnyPayload(t *testing.T) {
	// A wrong magic must discard regardless of the rest of the packet.
	for seed := byte(0); seed < 8; seed++ {
		d := bytes.Repeat([]byte{seed}, 64)
		d[0], d[1] = 0x00, 0x00
		if _, ok, _ := Decode(d); ok {
			t.Fatalf("accepted packet with zero magic and fill byte 0x%02X", seed)
		}
	}
}

func TestMessageIDString(t *testing.T) {
	id := MessageID{0x01, 0x23, 0xAB, 0xCD, 0xEF, 0x00}
	if got, want := id.String(), "0123abcdef00"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
