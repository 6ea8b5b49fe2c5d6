// Package responder implements the pongd event loop: a single-threaded,
// blocking-receive UDP loop that decodes inbound 2ping datagrams and
// answers the ones that request a reply.
//
// Each datagram is processed to completion before the next is read.
// There is no per-peer session state; the only mutable state shared
// across iterations is the entropy source and the encoder's reusable
// reply buffer, both touched exclusively from the loop goroutine.
package responder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinmesh/pongd/internal/config"
	"github.com/tinmesh/pongd/internal/entropy"
	"github.com/tinmesh/pongd/internal/indicator"
	"github.com/tinmesh/pongd/internal/logging"
	"github.com/tinmesh/pongd/internal/metrics"
	"github.com/tinmesh/pongd/internal/protocol"
)

// maxDatagramSize bounds a single receive. The protocol subset we speak
// fits comfortably; larger datagrams are truncated by the kernel and then
// fail validation.
const maxDatagramSize = 1024

// Responder owns the UDP socket and all protocol engine state.
type Responder struct {
	conn    net.PacketConn
	enc     *protocol.Encoder
	limiter *peerLimiter
	ind     indicator.Indicator
	metrics *metrics.Metrics
	logger  *slog.Logger
	hub     eventHub

	started     time.Time
	entropyName string
	banner      string

	running   atomic.Bool
	closeOnce sync.Once

	received   atomic.Uint64
	replied    atomic.Uint64
	ignored    atomic.Uint64
	discarded  atomic.Uint64
	suppressed atomic.Uint64
}

// Stats is a snapshot of responder counters for status output.
type Stats struct {
	Started       time.Time `json:"started"`
	ListenAddr    string    `json:"listen_addr"`
	Banner        string    `json:"banner"`
	EntropySource string    `json:"entropy_source"`
	Received      uint64    `json:"received"`
	Replied       uint64    `json:"replied"`
	Ignored       uint64    `json:"ignored"`
	Discarded     uint64    `json:"discarded"`
	Suppressed    uint64    `json:"suppressed"`
}

// New binds the UDP socket and assembles the protocol engine from cfg.
// Configuration faults (oversized banner, missing LED, bind failure)
// surface here so a misconfigured responder never starts.
func New(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Responder, error) {
	log := logger.With(slog.String(logging.KeyComponent, "responder"))

	ind, err := indicator.New(indicator.Config{
		Enabled:   cfg.Indicator.Enabled,
		LEDPath:   cfg.Indicator.LEDPath,
		ActiveLow: cfg.Indicator.ActiveLow,
	})
	if err != nil {
		return nil, err
	}

	src := entropy.Select(log)
	m.SetEntropySource(src.Name())

	enc, err := protocol.NewEncoder([]byte(cfg.Responder.Banner), src)
	if err != nil {
		return nil, err
	}

	conn, err := listenUDP(cfg.Network(), cfg.ListenAddr())
	if err != nil {
		return nil, fmt.Errorf("bind %s %s: %w", cfg.Network(), cfg.ListenAddr(), err)
	}

	r := &Responder{
		conn:        conn,
		enc:         enc,
		ind:         ind,
		metrics:     m,
		logger:      log,
		started:     time.Now(),
		entropyName: src.Name(),
		banner:      cfg.Responder.Banner,
	}
	if cfg.Limits.ReplyRate > 0 {
		r.limiter = newPeerLimiter(cfg.Limits.ReplyRate, cfg.Limits.ReplyBurst, cfg.Limits.MaxPeers)
	}

	return r, nil
}

// Run executes the receive loop until ctx is cancelled or the transport
// fails. Cancellation closes the socket to unblock the pending read and
// returns nil; transport faults propagate to the caller, which owns the
// restart-or-terminate decision.
func (r *Responder) Run(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)

	stop := context.AfterFunc(ctx, func() { _ = r.Close() })
	defer stop()

	r.logger.Info("listening",
		logging.KeyAddress, r.conn.LocalAddr().String(),
		logging.KeySource, r.entropyName)

	buf := make([]byte, maxDatagramSize)
	for {
		n, peer, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}
		r.handle(buf[:n], peer)
	}
}

// handle processes one datagram to completion. Every outcome is silent
// on the wire except a requested reply; that is the protocol's design,
// not an error path.
func (r *Responder) handle(datagram []byte, peer net.Addr) {
	start := time.Now()
	r.ind.On()
	defer r.ind.Off()

	r.received.Add(1)
	r.metrics.RecordReceived(len(datagram))

	p, ok, reason := protocol.Decode(datagram)
	if !ok {
		r.discarded.Add(1)
		r.metrics.RecordDiscard(string(reason))
		r.logger.Debug("datagram discarded",
			logging.KeyPeer, peer.String(),
			logging.KeyReason, string(reason),
			logging.KeyBytes, len(datagram))
		r.hub.publish(PacketEvent{
			Time: start, Peer: peer.String(), Kind: EventDiscard, Reason: string(reason), Bytes: len(datagram),
		})
		return
	}

	if !p.ReplyRequested {
		r.ignored.Add(1)
		r.metrics.RecordIgnored()
		r.logger.Debug("no reply requested",
			logging.KeyPeer, peer.String(),
			logging.KeyMessageID, p.MessageID.String())
		r.hub.publish(PacketEvent{
			Time: start, Peer: peer.String(), Kind: EventIgnored,
			MessageID: p.MessageID.String(), Bytes: len(datagram),
		})
		return
	}

	if r.limiter != nil && !r.limiter.Allow(peerKey(peer)) {
		r.suppressed.Add(1)
		r.metrics.RecordSuppressed()
		r.logger.Debug("reply suppressed by rate limit",
			logging.KeyPeer, peer.String(),
			logging.KeyMessageID, p.MessageID.String())
		r.hub.publish(PacketEvent{
			Time: start, Peer: peer.String(), Kind: EventSuppressed,
			MessageID: p.MessageID.String(), Bytes: len(datagram),
		})
		return
	}

	reply, err := r.enc.Encode(p.MessageID)
	if err != nil {
		r.logger.Error("reply encoding failed", logging.KeyError, err.Error())
		return
	}

	if _, err := r.conn.WriteTo(reply, peer); err != nil {
		r.logger.Warn("reply send failed",
			logging.KeyPeer, peer.String(),
			logging.KeyError, err.Error())
		return
	}

	replyID := replyMessageID(reply)
	r.replied.Add(1)
	r.metrics.RecordReply(len(reply), time.Since(start).Seconds())
	r.logger.Debug("reply sent",
		logging.KeyPeer, peer.String(),
		logging.KeyMessageID, p.MessageID.String(),
		logging.KeyReplyID, replyID.String())
	r.hub.publish(PacketEvent{
		Time: start, Peer: peer.String(), Kind: EventReply,
		MessageID: p.MessageID.String(), ReplyID: replyID.String(), Bytes: len(reply),
	})
}

// Close releases the socket. Safe to call more than once and
// concurrently with Run.
func (r *Responder) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.conn.Close()
	})
	return err
}

// IsRunning reports whether the receive loop is active.
func (r *Responder) IsRunning() bool {
	return r.running.Load()
}

// LocalAddr returns the bound socket address.
func (r *Responder) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// Stats returns a snapshot of the responder counters.
func (r *Responder) Stats() Stats {
	return Stats{
		Started:       r.started,
		ListenAddr:    r.conn.LocalAddr().String(),
		Banner:        r.banner,
		EntropySource: r.entropyName,
		Received:      r.received.Load(),
		Replied:       r.replied.Load(),
		Ignored:       r.ignored.Load(),
		Discarded:     r.discarded.Load(),
		Suppressed:    r.suppressed.Load(),
	}
}

// peerKey reduces a peer address to its host for rate limiting, so one
// source cannot dodge the limiter by rotating ports.
func peerKey(peer net.Addr) string {
	host, _, err := net.SplitHostPort(peer.String())
	if err != nil {
		return peer.String()
	}
	return host
}

// replyMessageID extracts the fresh id from an encoded reply for logging.
func replyMessageID(reply []byte) protocol.MessageID {
	var id protocol.MessageID
	copy(id[:], reply[4:10])
	return id
}
