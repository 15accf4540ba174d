// Package metrics scores a run from its per-tick samples and exports loop
// timing through OpenTelemetry.
package metrics

import "github.com/san-kum/spotlab/internal/dynamo"

// Sample is what one platform did during one tick.
type Sample struct {
	Time     float64
	State    dynamo.State
	Target   dynamo.State
	Signal   dynamo.Signal
	Duty     dynamo.Duty
	Channels dynamo.Channels
	Enabled  bool
}

// Metric accumulates a scalar score over a run.
type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Standard returns the metric set recorded for every active platform.
func Standard(mass, inertia float64) []Metric {
	return []Metric{
		NewControlEffort(),
		NewTrackingError(),
		NewDutyUtilisation(),
		NewStability(0.05),
		NewEnergy(mass, inertia),
	}
}
