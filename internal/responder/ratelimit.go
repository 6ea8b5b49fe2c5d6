package responder

import (
	"sync"

	"golang.org/x/time/rate"
)

// peerLimiter applies a token-bucket reply budget per source host. It
// bounds the amplification a spoofed source can extract from the
// responder without affecting well-behaved peers.
type peerLimiter struct {
	mu       sync.Mutex
	perPeer  rate.Limit
	burst    int
	maxPeers int
	peers    map[string]*rate.Limiter
}

func newPeerLimiter(perSecond float64, burst, maxPeers int) *peerLimiter {
	return &peerLimiter{
		perPeer:  rate.Limit(perSecond),
		burst:    burst,
		maxPeers: maxPeers,
		peers:    make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a reply to peer fits its budget right now.
// Tokens are never waited for: a datagram over budget is dropped, not
// queued, because the peer will simply send another ping.
func (l *peerLimiter) Allow(peer string) bool {
	l.mu.Lock()
	lim, ok := l.peers[peer]
	if !ok {
		if len(l.peers) >= l.maxPeers {
			l.evictLocked()
		}
		lim = rate.NewLimiter(l.perPeer, l.burst)
		l.peers[peer] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}

// evictLocked drops one tracked peer to stay within maxPeers. Which one
// is irrelevant: an evicted-then-returning peer merely gets a fresh
// bucket. Must be called with mu held.
func (l *peerLimiter) evictLocked() {
	for peer := range l.peers {
		delete(l.peers, peer)
		return
	}
}

// tracked returns the number of peers currently holding a bucket.
func (l *peerLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.peers)
}
