package metrics

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/san-kum/spotlab/internal/metrics"

// Instruments export control-loop timing. With no SDK installed the global
// provider is a no-op.
type Instruments struct {
	tick     metric.Float64Histogram
	overruns metric.Int64Counter
	ticks    metric.Int64Counter
	phase    atomic.Int64
	budget   time.Duration
}

// NewInstruments registers the loop instruments on m. A nil meter uses the
// global provider. budget is the tick period; longer ticks count as overruns.
func NewInstruments(m metric.Meter, budget time.Duration) (*Instruments, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	in := &Instruments{budget: budget}
	in.phase.Store(-1)

	var err error
	in.tick, err = m.Float64Histogram(
		"spot.loop.tick.duration",
		metric.WithDescription("Wall time spent computing one control tick"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick histogram: %w", err)
	}

	in.overruns, err = m.Int64Counter(
		"spot.loop.overruns",
		metric.WithDescription("Ticks that took longer than the control period"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating overrun counter: %w", err)
	}

	in.ticks, err = m.Int64Counter(
		"spot.loop.ticks",
		metric.WithDescription("Control ticks executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}

	phase, err := m.Int64ObservableGauge(
		"spot.mission.phase",
		metric.WithDescription("Current mission phase index"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating phase gauge: %w", err)
	}
	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(phase, in.phase.Load())
			return nil
		},
		phase,
	)
	if err != nil {
		return nil, fmt.Errorf("registering phase callback: %w", err)
	}

	return in, nil
}

// RecordTick records one tick's compute time and reports whether it overran.
func (in *Instruments) RecordTick(ctx context.Context, d time.Duration, mode string) bool {
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	in.tick.Record(ctx, d.Seconds(), attrs)
	in.ticks.Add(ctx, 1, attrs)
	if in.budget > 0 && d > in.budget {
		in.overruns.Add(ctx, 1, attrs)
		return true
	}
	return false
}

// SetPhase updates the phase gauge.
func (in *Instruments) SetPhase(p int) { in.phase.Store(int64(p)) }
