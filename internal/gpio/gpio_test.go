package gpio

import (
	"errors"
	"testing"
)

func TestBCMDefaultPins(t *testing.T) {
	want := [8]int{4, 18, 27, 22, 23, 24, 25, 11}
	for i, b := range DefaultPins {
		got, err := BCM(b)
		if err != nil {
			t.Fatalf("BCM(%d): %v", b, err)
		}
		if got != want[i] {
			t.Errorf("BCM(%d) = %d, want %d", b, got, want[i])
		}
	}
}

func TestBCMRejectsPowerPins(t *testing.T) {
	for _, b := range []int{1, 2, 6, 39, 41} {
		if _, err := BCM(b); !errors.Is(err, ErrUnknownPin) {
			t.Errorf("BCM(%d) error = %v, want ErrUnknownPin", b, err)
		}
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	_ = r.WriteDigital(7, High)
	_ = r.WriteDigital(7, Low)
	_ = r.WriteDigital(7, High)
	_ = r.WriteDigital(12, High)

	if r.Level(7) != High {
		t.Error("pin 7 should be HIGH")
	}
	if n := r.Rises(7); n != 2 {
		t.Errorf("Rises(7) = %d, want 2", n)
	}
	if n := len(r.Writes()); n != 4 {
		t.Errorf("recorded %d writes, want 4", n)
	}

	fault := errors.New("line stuck")
	r.FailPin(12, fault)
	if err := r.WriteDigital(12, Low); !errors.Is(err, fault) {
		t.Errorf("write error = %v, want injected fault", err)
	}
	if r.Level(12) != High {
		t.Error("failed write changed the level")
	}
	r.FailPin(12, nil)
	if err := r.WriteDigital(12, Low); err != nil {
		t.Errorf("cleared fault still failing: %v", err)
	}
}
