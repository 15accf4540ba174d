package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/san-kum/spotlab/internal/dynamo"
	"github.com/san-kum/spotlab/internal/metrics"
	"github.com/san-kum/spotlab/internal/mission"
	"github.com/san-kum/spotlab/internal/storage"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoPlatforms  = errors.New("sim: no platforms")
	ErrNoPoseSource = errors.New("sim: experiment mode needs a pose source")
	ErrNoBody       = errors.New("sim: simulation mode needs a dynamics body per platform")
	ErrNoMission    = errors.New("sim: no mission")
)

// Config wires a Loop.
type Config struct {
	Mode string
	// Dt is the control period in seconds.
	Dt        float64
	Mission   *mission.Mission
	Platforms []*Platform

	Poses    PoseProvider
	Inertial InertialProvider
	Sensors  []Sensor

	Log         *storage.Log
	Sinks       []storage.Sink
	Meta        storage.RunMetadata
	Instruments *metrics.Instruments
	Observers   []Observer

	// Pacer defaults to FreeRun. Use Periodic for real-time simulation and
	// Acquisition in experiment mode.
	Pacer             Pacer
	SensorJoinTimeout time.Duration
	Now               func() time.Time
	Logger            zerolog.Logger
}

// Loop is the main control loop. A Loop runs once.
type Loop struct {
	cfg Config
	seq *mission.Sequencer
	log zerolog.Logger

	ticks    int
	skipped  int
	overruns int
	elapsed  float64
}

func New(cfg Config) (*Loop, error) {
	if len(cfg.Platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	if cfg.Mission == nil {
		return nil, ErrNoMission
	}
	if err := cfg.Mission.Validate(); err != nil {
		return nil, err
	}
	if !(cfg.Dt > 0) {
		return nil, fmt.Errorf("sim: dt must be positive, got %f", cfg.Dt)
	}
	switch cfg.Mode {
	case "", ModeSimulation:
		cfg.Mode = ModeSimulation
		for _, p := range cfg.Platforms {
			if p.Body == nil {
				return nil, fmt.Errorf("%w: %s", ErrNoBody, p.Name)
			}
		}
	case ModeExperiment:
		if cfg.Poses == nil {
			return nil, ErrNoPoseSource
		}
	default:
		return nil, fmt.Errorf("sim: unknown mode %q", cfg.Mode)
	}
	if cfg.Pacer == nil {
		cfg.Pacer = FreeRun{}
	}
	if cfg.SensorJoinTimeout <= 0 {
		cfg.SensorJoinTimeout = DefaultSensorJoinTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	seq, err := mission.NewSequencer(cfg.Mission.Durations())
	if err != nil {
		return nil, err
	}
	l := &Loop{
		cfg: cfg,
		seq: seq,
		log: cfg.Logger.With().Str("component", "loop").Str("mode", cfg.Mode).Logger(),
	}
	seq.OnEnter = l.enterPhase
	return l, nil
}

func (l *Loop) enterPhase(phase int, at float64) {
	name := l.cfg.Mission.Phases[phase].Name
	l.log.Info().Int("phase", phase).Str("name", name).Float64("t", at).
		Bool("control", l.cfg.Mission.ControlEnabled(phase)).Msg("phase entered")
	if l.cfg.Instruments != nil {
		l.cfg.Instruments.SetPhase(phase)
	}
	for _, o := range l.cfg.Observers {
		o.OnPhase(phase, name, at)
	}
}

// Run starts the actuators and sensors, ticks until the mission ends or ctx
// is cancelled, then shuts everything down and flushes the log. Shutdown
// runs however the loop ended.
func (l *Loop) Run(ctx context.Context) (res *Result, err error) {
	defer func() {
		if res == nil {
			res = l.result(false)
		}
		res.Metrics = l.collectMetrics()
		if l.cfg.Log != nil {
			res.Rows = l.cfg.Log.Len()
		}
		if serr := l.shutdown(res); serr != nil {
			err = errors.Join(err, serr)
		}
	}()

	if err := l.start(ctx); err != nil {
		return nil, err
	}
	l.log.Info().Int("platforms", len(l.cfg.Platforms)).Float64("dt", l.cfg.Dt).
		Float64("duration", l.seq.Total()).Msg("control loop started")

	missionStart := l.cfg.Now()
	waiting := false
	for {
		tickStart := l.cfg.Now()
		if ctx.Err() != nil {
			l.log.Warn().Msg("interrupted")
			return l.result(true), nil
		}

		states, ok := l.acquire()
		if !ok {
			// the mission clock starts on first contact
			l.skipped++
			waiting = true
			l.seq.Reset()
			if err := l.cfg.Pacer.Wait(ctx, tickStart); err != nil && ctx.Err() == nil {
				return nil, err
			}
			continue
		}
		if waiting {
			missionStart = tickStart
			waiting = false
		}

		elapsed := float64(l.ticks) * l.cfg.Dt
		if l.cfg.Mode == ModeExperiment {
			elapsed = tickStart.Sub(missionStart).Seconds()
		}

		phase := l.seq.Track(elapsed)
		if l.seq.Done(elapsed) {
			l.elapsed = elapsed
			l.log.Info().Int("ticks", l.ticks).Float64("t", elapsed).Msg("mission complete")
			return l.result(false), nil
		}

		if err := l.tick(ctx, elapsed, phase, states); err != nil {
			return nil, err
		}
		l.elapsed = elapsed
		l.ticks++

		if in := l.cfg.Instruments; in != nil {
			if in.RecordTick(ctx, l.cfg.Now().Sub(tickStart), l.cfg.Mode) {
				l.overruns++
				l.log.Debug().Int("tick", l.ticks).Msg("tick overran control period")
			}
		}

		if err := l.cfg.Pacer.Wait(ctx, tickStart); err != nil && ctx.Err() == nil {
			return nil, err
		}
	}
}

// start launches sensors and then all actuators concurrently.
func (l *Loop) start(ctx context.Context) error {
	for _, s := range l.cfg.Sensors {
		s.Start()
	}
	g, _ := errgroup.WithContext(ctx)
	for _, p := range l.cfg.Platforms {
		if p.Actuator == nil {
			continue
		}
		g.Go(func() error {
			if err := p.Actuator.Start(); err != nil {
				return fmt.Errorf("starting %s actuator: %w", p.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// acquire reads every platform's state. It reports false when an active
// platform has not been seen by the tracker yet.
func (l *Loop) acquire() ([]dynamo.State, bool) {
	states := make([]dynamo.State, len(l.cfg.Platforms))
	for i, p := range l.cfg.Platforms {
		if l.cfg.Mode == ModeSimulation {
			states[i] = p.Body.State()
			continue
		}
		snap, ok := l.cfg.Poses.Get(p.Name)
		if !ok {
			l.log.Warn().Str("platform", string(p.Name)).Msg("no pose yet, holding mission clock")
			return nil, false
		}
		states[i] = snap.State
	}
	return states, true
}

func (l *Loop) tick(ctx context.Context, t float64, phase int, states []dynamo.State) error {
	enabled := l.cfg.Mission.ControlEnabled(phase)
	out := Tick{Index: l.ticks, Time: t, Phase: phase, Platforms: make([]PlatformTick, len(l.cfg.Platforms))}
	entries := make([]storage.Entry, len(l.cfg.Platforms))

	var inertial *[6]float64
	if l.cfg.Inertial != nil {
		if s, ok := l.cfg.Inertial.Get(); ok {
			v := [6]float64{s.Gyro[0], s.Gyro[1], s.Gyro[2], s.Accel[0], s.Accel[1], s.Accel[2]}
			inertial = &v
		}
	}

	for i, p := range l.cfg.Platforms {
		state := states[i]
		target := l.cfg.Mission.Target(phase, p.Poses)

		p.Controller.SetEnabled(enabled)
		duty, err := p.Controller.Compute(state, target)
		if err != nil {
			return &dynamo.TickError{Tick: l.ticks, Time: t, Platform: string(p.Name), Wrapped: err}
		}
		signal := p.Controller.Signal()

		var channels dynamo.Channels
		if p.Actuator != nil {
			p.Actuator.SetAll(duty)
			channels = p.Actuator.States()
		}

		if l.cfg.Mode == ModeSimulation {
			p.Body.ApplyControl(signal.Achievable)
			p.Body.Update(l.cfg.Dt)
		}

		pt := PlatformTick{
			Platform: p.Name,
			State:    state,
			Target:   target,
			Signal:   signal,
			Duty:     duty,
			Channels: channels,
			Enabled:  enabled,
		}
		out.Platforms[i] = pt
		entries[i] = storage.Entry{Platform: p.Name, State: state, Duty: duty, Channels: channels, Inertial: inertial}

		sample := metrics.Sample{Time: t, State: state, Target: target, Signal: signal, Duty: duty, Channels: channels, Enabled: enabled}
		for _, m := range p.Metrics {
			m.Observe(sample)
		}
	}

	if l.cfg.Log != nil {
		if err := l.cfg.Log.Append(t, phase, entries...); err != nil {
			return err
		}
	}
	for _, o := range l.cfg.Observers {
		o.OnTick(out)
	}
	return nil
}

func (l *Loop) result(interrupted bool) *Result {
	return &Result{
		Ticks:       l.ticks,
		Skipped:     l.skipped,
		Overruns:    l.overruns,
		Elapsed:     l.elapsed,
		Phase:       l.seq.Current(),
		Interrupted: interrupted,
	}
}

func (l *Loop) collectMetrics() map[string]float64 {
	out := make(map[string]float64)
	for _, p := range l.cfg.Platforms {
		for _, m := range p.Metrics {
			out[fmt.Sprintf("%s.%s", p.Name, m.Name())] = m.Value()
		}
	}
	return out
}
