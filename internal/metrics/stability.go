package metrics

import "math"

// Stability is the fraction of controlled samples within threshold metres of
// the setpoint.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x Sample) {
	if !x.Enabled {
		return
	}
	s.samples++
	e := x.State.Error(x.Target)
	if math.Hypot(e[0], e[1]) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// TrackingError is the RMS position error over controlled samples.
type TrackingError struct {
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (t *TrackingError) Name() string { return "tracking_error" }

func (t *TrackingError) Observe(x Sample) {
	if !x.Enabled {
		return
	}
	e := x.State.Error(x.Target)
	t.sumSq += e[0]*e[0] + e[1]*e[1]
	t.samples++
}

func (t *TrackingError) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return math.Sqrt(t.sumSq / float64(t.samples))
}

func (t *TrackingError) Reset() {
	t.sumSq = 0
	t.samples = 0
}
