package responder

import (
	"fmt"
	"testing"
)

func TestPeerLimiterBurst(t *testing.T) {
	l := newPeerLimiter(0.001, 3, 16)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d denied inside burst", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("request allowed after burst exhausted")
	}
}

func TestPeerLimiterIsolatesPeers(t *testing.T) {
	l := newPeerLimiter(0.001, 1, 16)

	if !l.Allow("10.0.0.1") {
		t.Fatal("first peer denied")
	}
	if l.Allow("10.0.0.1") {
		t.Error("first peer's second request allowed")
	}
	// A different peer has its own bucket.
	if !l.Allow("10.0.0.2") {
		t.Error("second peer denied by first peer's bucket")
	}
}

func TestPeerLimiterEviction(t *testing.T) {
	l := newPeerLimiter(1, 1, 4)

	for i := 0; i < 10; i++ {
		l.Allow(fmt.Sprintf("10.0.0.%d", i))
	}
	if got := l.tracked(); got > 4 {
		t.Errorf("tracked peers = %d, want at most 4", got)
	}
}

func TestPeerLimiterRefill(t *testing.T) {
	// High rate: the bucket refills between calls.
	l := newPeerLimiter(1e6, 1, 16)

	if !l.Allow("10.0.0.1") {
		t.Fatal("first request denied")
	}
	if !l.Allow("10.0.0.1") {
		t.Error("request denied despite effectively instant refill")
	}
}
