package mission

import "fmt"

// Sequencer maps elapsed mission time to a phase index. The cursor starts
// before phase 0 and only moves forward.
type Sequencer struct {
	starts []float64
	total  float64
	cur    int

	// OnEnter runs once for every phase the cursor reaches, in order.
	OnEnter func(phase int, at float64)
}

// NewSequencer precomputes the start time of each phase.
func NewSequencer(durations []float64) (*Sequencer, error) {
	if len(durations) == 0 {
		return nil, ErrEmptyMission
	}
	s := &Sequencer{starts: make([]float64, len(durations)), cur: -1}
	for i, d := range durations {
		if !(d > 0) {
			return nil, fmt.Errorf("%w: phase %d = %g", ErrInvalidDuration, i, d)
		}
		s.starts[i] = s.total
		s.total += d
	}
	return s, nil
}

// Track advances the cursor to the last phase started by elapsed and returns
// it. Earlier times never move the cursor back.
func (s *Sequencer) Track(elapsed float64) int {
	next := s.cur
	for i := s.cur + 1; i < len(s.starts); i++ {
		if elapsed < s.starts[i] {
			break
		}
		next = i
	}
	for i := s.cur + 1; i <= next; i++ {
		s.cur = i
		if s.OnEnter != nil {
			s.OnEnter(i, elapsed)
		}
	}
	return s.cur
}

// Is reports whether the cursor is on phase i.
func (s *Sequencer) Is(i int) bool { return s.cur == i }

// Current returns the cursor, -1 before the first Track.
func (s *Sequencer) Current() int { return s.cur }

// Terminal reports whether the cursor is on the last phase.
func (s *Sequencer) Terminal() bool { return s.cur == len(s.starts)-1 }

// Done reports whether elapsed has run past the end of the last phase.
func (s *Sequencer) Done(elapsed float64) bool { return elapsed >= s.total }

// Total is the summed duration of all phases.
func (s *Sequencer) Total() float64 { return s.total }

// Starts returns a copy of the phase start times.
func (s *Sequencer) Starts() []float64 {
	return append([]float64(nil), s.starts...)
}

// Reset puts the cursor back before phase 0.
func (s *Sequencer) Reset() { s.cur = -1 }
