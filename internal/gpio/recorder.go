package gpio

import (
	"sync"
	"time"
)

// Write is one recorded output transition.
type Write struct {
	Pin   int
	Level Level
	At    time.Time
}

// Recorder is an in-memory Writer. It keeps every write and the last level per
// pin. Pins listed in Fail return that error instead of switching.
type Recorder struct {
	mu     sync.Mutex
	levels map[int]Level
	writes []Write
	fail   map[int]error
}

func NewRecorder() *Recorder {
	return &Recorder{levels: make(map[int]Level), fail: make(map[int]error)}
}

// FailPin makes writes to pin return err. A nil err clears the fault.
func (r *Recorder) FailPin(pin int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, pin)
		return
	}
	r.fail[pin] = err
}

func (r *Recorder) WriteDigital(pin int, level Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[pin]; err != nil {
		return err
	}
	r.levels[pin] = level
	r.writes = append(r.writes, Write{Pin: pin, Level: level, At: time.Now()})
	return nil
}

// Level returns the last level written to pin.
func (r *Recorder) Level(pin int) Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels[pin]
}

// Writes returns a copy of the write history.
func (r *Recorder) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Write, len(r.writes))
	copy(out, r.writes)
	return out
}

// Rises counts LOW to HIGH transitions on pin.
func (r *Recorder) Rises(pin int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	prev := Low
	for _, w := range r.writes {
		if w.Pin != pin {
			continue
		}
		if w.Level == High && prev == Low {
			n++
		}
		prev = w.Level
	}
	return n
}
