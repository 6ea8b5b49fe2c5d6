// Package entropy supplies the random byte sequences used for reply
// message identifiers.
//
// Two Source variants exist: HardwareSource reads the OS entropy pool,
// and MT19937 is a deterministic pseudo-random fallback for constrained
// platforms without one. Select probes the environment once at startup;
// the choice is never re-evaluated per call.
package entropy

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"
)

// Source produces random byte sequences. Implementations are stateful and
// not safe for concurrent use; the responder's single-threaded loop is the
// only caller in production wiring.
type Source interface {
	// Bytes returns exactly n random bytes.
	Bytes(n int) ([]byte, error)

	// Name identifies the source for logs and status output.
	Name() string
}

// HardwareSource reads the platform entropy pool.
type HardwareSource struct{}

// Bytes returns n bytes from the OS entropy pool.
func (HardwareSource) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read entropy pool: %w", err)
	}
	return b, nil
}

// Name identifies the source in logs and status output.
func (HardwareSource) Name() string {
	return "hardware"
}

// Select performs the one-time capability probe and returns the preferred
// available Source: the OS entropy pool when it answers, otherwise an
// MT19937 generator seeded from the wall clock.
func Select(logger *slog.Logger) Source {
	var probe [1]byte
	if _, err := rand.Read(probe[:]); err == nil {
		return HardwareSource{}
	} else if logger != nil {
		logger.Warn("hardware entropy unavailable, using mt19937 fallback",
			slog.String("error", err.Error()))
	}
	return NewMT19937(uint32(time.Now().Unix()))
}
