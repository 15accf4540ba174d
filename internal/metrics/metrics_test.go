package metrics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/san-kum/spotlab/internal/dynamo"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	m.Observe(Sample{Signal: dynamo.Signal{Achievable: dynamo.Control{1, -2, 0.5}}})
	m.Observe(Sample{})
	if got := m.Value(); math.Abs(got-1.75) > 1e-12 {
		t.Errorf("control effort = %v, want 1.75", got)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("reset did not clear effort")
	}
}

func TestTrackingErrorSkipsDisabled(t *testing.T) {
	m := NewTrackingError()
	m.Observe(Sample{State: dynamo.State{X: 100}, Enabled: false})
	m.Observe(Sample{State: dynamo.State{X: 3, Y: 4}, Enabled: true})
	if got := m.Value(); math.Abs(got-5) > 1e-12 {
		t.Errorf("tracking error = %v, want 5", got)
	}
}

func TestStability(t *testing.T) {
	m := NewStability(0.1)
	if m.Value() != 1 {
		t.Error("empty stability should be 1")
	}
	target := dynamo.State{X: 1}
	m.Observe(Sample{State: dynamo.State{X: 1.05}, Target: target, Enabled: true})
	m.Observe(Sample{State: dynamo.State{X: 2}, Target: target, Enabled: true})
	if got := m.Value(); got != 0.5 {
		t.Errorf("stability = %v, want 0.5", got)
	}
}

func TestDutyUtilisation(t *testing.T) {
	m := NewDutyUtilisation()
	m.Observe(Sample{Duty: dynamo.Duty{1, 1, 1, 1, 0, 0, 0, 0}})
	m.Observe(Sample{})
	if got := m.Value(); got != 0.25 {
		t.Errorf("utilisation = %v, want 0.25", got)
	}
}

func TestEnergy(t *testing.T) {
	m := NewEnergy(2, 0.5)
	m.Observe(Sample{State: dynamo.State{VX: 1, VY: 1, YawRate: 2}})
	// 0.5·2·2 + 0.5·0.5·4
	if got := m.Value(); math.Abs(got-3) > 1e-12 {
		t.Errorf("energy = %v, want 3", got)
	}
}

func TestStandardNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Standard(1, 1) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %q", m.Name())
		}
		seen[m.Name()] = true
	}
}

func TestInstrumentsOverrun(t *testing.T) {
	in, err := NewInstruments(noop.Meter{}, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if in.RecordTick(ctx, 10*time.Millisecond, "simulation") {
		t.Error("short tick reported as overrun")
	}
	if !in.RecordTick(ctx, 60*time.Millisecond, "simulation") {
		t.Error("long tick not reported as overrun")
	}
	in.SetPhase(3)
	if in.phase.Load() != 3 {
		t.Error("phase gauge not updated")
	}
}
