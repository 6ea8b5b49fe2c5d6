package responder

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tinmesh/pongd/internal/checksum"
	"github.com/tinmesh/pongd/internal/config"
	"github.com/tinmesh/pongd/internal/logging"
	"github.com/tinmesh/pongd/internal/metrics"
)

// pingAAAA is the canonical test datagram: magic, no checksum,
// message id AAAAAAAAAAAA, reply requested.
var pingAAAA = []byte{
	0x32, 0x50, 0x00, 0x00,
	0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA,
	0x00, 0x01,
}

type testResponder struct {
	r *Responder
	m *metrics.Metrics
}

func startResponder(t *testing.T, mutate func(*config.Config)) (*testResponder, *net.UDPConn) {
	t.Helper()

	cfg := config.Default()
	cfg.Listener.Host = "127.0.0.1"
	cfg.Listener.Port = 0
	if mutate != nil {
		mutate(cfg)
	}

	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	r, err := New(cfg, logging.NopLogger(), m)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run returned %v", err)
		}
	})

	client, err := net.DialUDP("udp4", nil, r.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })

	return &testResponder{r: r, m: m}, client
}

func readReply(t *testing.T, client *net.UDPConn) []byte {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("no reply: %v", err)
	}
	return buf[:n]
}

func expectNoReply(t *testing.T, client *net.UDPConn) {
	t.Helper()
	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 256)
	if n, err := client.Read(buf); err == nil {
		t.Fatalf("unexpected reply: % X", buf[:n])
	}
}

func TestEndToEndReply(t *testing.T) {
	tr, client := startResponder(t, nil)

	if _, err := client.Write(pingAAAA); err != nil {
		t.Fatal(err)
	}

	reply := readReply(t, client)
	if len(reply) != 128 {
		t.Fatalf("reply length = %d, want 128", len(reply))
	}
	if !bytes.Equal(reply[10:12], []byte{0x80, 0x02}) {
		t.Errorf("opcode flags = % X, want 80 02", reply[10:12])
	}
	if !bytes.Equal(reply[14:20], []byte{0xAA, 0xAA, 0xAA, 0xAA, 0xAA, 0xAA}) {
		t.Errorf("in-reply-to = % X, want AA AA AA AA AA AA", reply[14:20])
	}
	field := binary.BigEndian.Uint16(reply[2:4])
	if !checksum.Verify(reply, 2, field) {
		t.Error("reply checksum does not validate")
	}

	stats := tr.r.Stats()
	if stats.Received != 1 || stats.Replied != 1 {
		t.Errorf("stats received=%d replied=%d, want 1/1", stats.Received, stats.Replied)
	}
	if got := testutil.ToFloat64(tr.m.RepliesSent); got != 1 {
		t.Errorf("RepliesSent metric = %v, want 1", got)
	}
}

func TestEndToEndChecksummedPing(t *testing.T) {
	_, client := startResponder(t, nil)

	ping := make([]byte, len(pingAAAA))
	copy(ping, pingAAAA)
	binary.BigEndian.PutUint16(ping[2:4], checksum.Sum(ping))

	if _, err := client.Write(ping); err != nil {
		t.Fatal(err)
	}
	readReply(t, client)
}

func TestWrongMagicNoReply(t *testing.T) {
	tr, client := startResponder(t, nil)

	bad := make([]byte, len(pingAAAA))
	copy(bad, pingAAAA)
	bad[0], bad[1] = 0x00, 0x00

	if _, err := client.Write(bad); err != nil {
		t.Fatal(err)
	}
	expectNoReply(t, client)

	if got := tr.r.Stats().Discarded; got != 1 {
		t.Errorf("Discarded = %d, want 1", got)
	}
	if got := testutil.ToFloat64(tr.m.PacketsDiscarded.WithLabelValues("magic")); got != 1 {
		t.Errorf("PacketsDiscarded{magic} = %v, want 1", got)
	}
}

func TestCorruptedChecksumNoReply(t *testing.T) {
	tr, client := startResponder(t, nil)

	ping := make([]byte, len(pingAAAA))
	copy(ping, pingAAAA)
	binary.BigEndian.PutUint16(ping[2:4], checksum.Sum(ping))
	ping[6] ^= 0x01 // corrupt one message id byte after checksumming

	if _, err := client.Write(ping); err != nil {
		t.Fatal(err)
	}
	expectNoReply(t, client)

	if got := testutil.ToFloat64(tr.m.PacketsDiscarded.WithLabelValues("checksum")); got != 1 {
		t.Errorf("PacketsDiscarded{checksum} = %v, want 1", got)
	}
}

func TestNoReplyRequested(t *testing.T) {
	tr, client := startResponder(t, nil)

	quiet := make([]byte, len(pingAAAA))
	copy(quiet, pingAAAA)
	quiet[10], quiet[11] = 0x00, 0x00

	if _, err := client.Write(quiet); err != nil {
		t.Fatal(err)
	}
	expectNoReply(t, client)

	stats := tr.r.Stats()
	if stats.Ignored != 1 || stats.Replied != 0 {
		t.Errorf("stats ignored=%d replied=%d, want 1/0", stats.Ignored, stats.Replied)
	}
}

func TestReplyRateLimit(t *testing.T) {
	tr, client := startResponder(t, func(c *config.Config) {
		c.Limits.ReplyRate = 0.001 // effectively one token, then nothing
		c.Limits.ReplyBurst = 2
		c.Limits.MaxPeers = 16
	})

	for i := 0; i < 5; i++ {
		if _, err := client.Write(pingAAAA); err != nil {
			t.Fatal(err)
		}
	}

	// Burst of two replies, then suppression.
	readReply(t, client)
	readReply(t, client)
	expectNoReply(t, client)

	deadline := time.Now().Add(2 * time.Second)
	for tr.r.Stats().Suppressed < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := tr.r.Stats().Suppressed; got != 3 {
		t.Errorf("Suppressed = %d, want 3", got)
	}
}

func TestSubscribeStreamsEvents(t *testing.T) {
	tr, client := startResponder(t, nil)

	events, cancel := tr.r.Subscribe(8)
	defer cancel()

	if _, err := client.Write(pingAAAA); err != nil {
		t.Fatal(err)
	}
	readReply(t, client)

	select {
	case ev := <-events:
		if ev.Kind != EventReply {
			t.Errorf("event kind = %q, want %q", ev.Kind, EventReply)
		}
		if ev.MessageID != "aaaaaaaaaaaa" {
			t.Errorf("event message id = %q, want aaaaaaaaaaaa", ev.MessageID)
		}
		if ev.ReplyID == "" {
			t.Error("event reply id is empty")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Listener.Host = "127.0.0.1"
	cfg.Listener.Port = 0

	m := metrics.NewMetricsWithRegistry(prometheus.NewRegistry())
	r, err := New(cfg, logging.NopLogger(), m)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Wait for the loop to come up, then cancel.
	deadline := time.Now().Add(2 * time.Second)
	for !r.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v after cancel, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if r.IsRunning() {
		t.Error("IsRunning() = true after Run returned")
	}
}

func TestStatsSnapshot(t *testing.T) {
	tr, _ := startResponder(t, func(c *config.Config) {
		c.Responder.Banner = "stats test"
	})

	stats := tr.r.Stats()
	if stats.Banner != "stats test" {
		t.Errorf("Banner = %q", stats.Banner)
	}
	if stats.EntropySource == "" {
		t.Error("EntropySource is empty")
	}
	if stats.ListenAddr == "" {
		t.Error("ListenAddr is empty")
	}
	if stats.Started.IsZero() {
		t.Error("Started is zero")
	}
}
