// Package indicator drives the optional activity light that blinks while
// a datagram is being processed.
//
// Signaling is purely observational: it never affects protocol behavior,
// and write failures after startup are deliberately ignored so a flaky
// LED cannot take down the responder.
package indicator

import (
	"fmt"
	"os"
)

// Config holds configuration for the activity indicator.
type Config struct {
	// Enabled controls whether an indicator is driven at all.
	Enabled bool

	// LEDPath is the sysfs brightness file of the LED to drive,
	// e.g. /sys/class/leds/led0/brightness.
	LEDPath string

	// ActiveLow inverts the on/off values for LEDs wired active-low.
	ActiveLow bool
}

// Indicator signals datagram processing activity.
type Indicator interface {
	On()
	Off()
}

// New selects an implementation from cfg: a sysfs LED when enabled, a
// no-op otherwise. A missing LED path is a startup fault.
func New(cfg Config) (Indicator, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewLED(cfg.LEDPath, cfg.ActiveLow)
}

// Noop is the indicator used when none is configured.
type Noop struct{}

func (Noop) On()  {}
func (Noop) Off() {}

// LED drives a sysfs LED brightness file.
type LED struct {
	path string
	on   []byte
	off  []byte
}

// NewLED verifies the brightness file exists and returns an LED driver.
func NewLED(path string, activeLow bool) (*LED, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("indicator led %s: %w", path, err)
	}
	l := &LED{path: path, on: []byte("1"), off: []byte("0")}
	if activeLow {
		l.on, l.off = l.off, l.on
	}
	// Start dark.
	l.Off()
	return l, nil
}

// On lights the LED. Errors are ignored.
func (l *LED) On() {
	_ = os.WriteFile(l.path, l.on, 0644)
}

// Off darkens the LED. Errors are ignored.
func (l *LED) Off() {
	_ = os.WriteFile(l.path, l.off, 0644)
}
