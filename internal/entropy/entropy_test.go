package entropy

import "testing"

func TestHardwareSourceBytes(t *testing.T) {
	src := HardwareSource{}
	for _, n := range []int{0, 1, 6, 32} {
		b, err := src.Bytes(n)
		if err != nil {
			t.Fatalf("Bytes(%d): %v", n, err)
		}
		if len(b) != n {
			t.Errorf("Bytes(%d) returned %d bytes", n, len(b))
		}
	}
}

func TestSourceNames(t *testing.T) {
	if got := (HardwareSource{}).Name(); got != "hardware" {
		t.Errorf("HardwareSource.Name() = %q", got)
	}
	if got := NewMT19937(1).Name(); got != "mt19937" {
		t.Errorf("MT19937.Name() = %q", got)
	}
}

func TestSelectPrefersHardware(t *testing.T) {
	// On any platform the test suite runs on, the OS pool is available.
	src := Select(nil)
	if src.Name() != "hardware" {
		t.Errorf("Select() chose %q, want hardware", src.Name())
	}
}
