package sensor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// scriptedIMU replays readings; an empty script reads a fixed valid sample.
type scriptedIMU struct {
	mu       sync.Mutex
	script   [][6]float64
	readErr  error
	reinitFn func(n int) error
	reinits  int
}

var validSample = [6]float64{0.01, -0.02, 0.03, 0.1, 0.2, 9.8}

func (s *scriptedIMU) ReadInertial() ([6]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return [6]float64{}, s.readErr
	}
	if len(s.script) == 0 {
		return validSample, nil
	}
	v := s.script[0]
	s.script = s.script[1:]
	return v, nil
}

func (s *scriptedIMU) Reinit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reinits++
	if s.reinitFn != nil {
		return s.reinitFn(s.reinits)
	}
	return nil
}

func (s *scriptedIMU) Close() error { return nil }

func zeros(n int) [][6]float64 { return make([][6]float64, n) }

func newTestIMU(s InertialSensor) *IMU {
	return NewIMU(s, IMUConfig{ReinitBackoff: time.Millisecond, Logger: zerolog.Nop()})
}

func TestIMUReinitAfterZeroRun(t *testing.T) {
	dev := &scriptedIMU{script: append(zeros(5), validSample)}
	m := newTestIMU(dev)

	for i := 0; i < 4; i++ {
		m.poll()
	}
	if dev.reinits != 0 {
		t.Fatalf("reinit after %d zero reads", 4)
	}
	if m.zeroRun != 4 {
		t.Errorf("zero run = %d, want 4", m.zeroRun)
	}

	m.poll()
	if dev.reinits != 1 || m.Reinits() != 1 {
		t.Errorf("reinits = %d/%d after 5 zero reads, want exactly 1", dev.reinits, m.Reinits())
	}
	if m.zeroRun != 0 {
		t.Errorf("zero run = %d after reinit, want 0", m.zeroRun)
	}

	m.poll()
	if s, ok := m.Get(); !ok || s.Accel[2] != 9.8 {
		t.Errorf("valid sample not published: %+v %v", s, ok)
	}
}

func TestIMUValidReadResetsCounter(t *testing.T) {
	script := append(zeros(4), validSample)
	script = append(script, zeros(4)...)
	dev := &scriptedIMU{script: script}
	m := newTestIMU(dev)

	for i := 0; i < 9; i++ {
		m.poll()
	}
	if dev.reinits != 0 {
		t.Errorf("reinit triggered by non-consecutive zero reads")
	}
	if m.zeroRun != 4 {
		t.Errorf("zero run = %d, want 4", m.zeroRun)
	}
}

func TestIMUZeroReadsKeepLastSample(t *testing.T) {
	dev := &scriptedIMU{script: [][6]float64{validSample, {}, {}}}
	m := newTestIMU(dev)
	m.poll()
	first, _ := m.Get()
	m.poll()
	m.poll()
	if got, _ := m.Get(); got != first {
		t.Error("all-zero read replaced the published sample")
	}
}

func TestIMUReadErrorReinitBounded(t *testing.T) {
	dev := &scriptedIMU{
		readErr:  errors.New("i2c nack"),
		reinitFn: func(int) error { return errors.New("no device") },
	}
	m := newTestIMU(dev)
	m.poll()
	if dev.reinits != DefaultReinitAttempts {
		t.Errorf("device reinit attempts = %d, want %d", dev.reinits, DefaultReinitAttempts)
	}
	if m.Reinits() != 1 {
		t.Errorf("pipeline reinits = %d, want 1", m.Reinits())
	}
}

func TestIMUReinitRecovers(t *testing.T) {
	dev := &scriptedIMU{
		readErr:  errors.New("i2c nack"),
		reinitFn: func(n int) error {
			if n < 2 {
				return errors.New("busy")
			}
			return nil
		},
	}
	m := newTestIMU(dev)
	if err := m.reinit(); err != nil {
		t.Errorf("reinit: %v", err)
	}
	if dev.reinits != 2 {
		t.Errorf("attempts = %d, want 2", dev.reinits)
	}
}

func TestIMUStartStop(t *testing.T) {
	dev := &scriptedIMU{}
	m := NewIMU(dev, IMUConfig{Rate: 200, Logger: zerolog.Nop()})
	m.Start()
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := m.Get(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no sample within 1s")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := m.Stop(time.Second); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if r, _ := m.Orientation(); r == 0 {
		t.Error("roll from tilted sample is zero")
	}
}

func TestDecodeMotion(t *testing.T) {
	b := make([]byte, 12)
	// gyro x = 164 lsb = 10 dps
	b[0], b[1] = 164, 0
	// accel z = 16384 lsb = 1 g
	b[10], b[11] = 0x00, 0x40
	// accel x = -16384
	b[6], b[7] = 0x00, 0xC0

	v := decodeMotion(b)
	if d := v[0] - 10*3.141592653589793/180; d > 1e-9 || d < -1e-9 {
		t.Errorf("gyro x = %v rad/s", v[0])
	}
	if d := v[5] - standardG; d > 1e-9 || d < -1e-9 {
		t.Errorf("accel z = %v", v[5])
	}
	if d := v[3] + standardG; d > 1e-9 || d < -1e-9 {
		t.Errorf("accel x = %v", v[3])
	}
}
