package actuator

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/san-kum/spotlab/internal/dynamo"
	"github.com/san-kum/spotlab/internal/gpio"
)

var (
	ErrChannel             = errors.New("actuator: channel out of range")
	ErrFrequency           = errors.New("actuator: pwm frequency must be positive")
	ErrJoinTimeout         = errors.New("actuator: worker did not exit within grace period")
	ErrWorkerAlive         = errors.New("actuator: previous worker still running")
	ErrRealtimeUnavailable = errors.New("actuator: real-time scheduling unavailable")
)

const (
	DefaultFrequency = 5.0
	DefaultPriority  = 99
	DefaultStopGrace = time.Second
)

// Config configures a PWM actuator.
type Config struct {
	Frequency float64
	// Pins are the output lines for channels 0..7.
	Pins [dynamo.NumThrusters]int
	// Writer drives the lines. Nil runs in simulation mode: channel states
	// are tracked but no line is touched.
	Writer gpio.Writer
	// Priority is the SCHED_FIFO priority requested by the worker; 0 skips it.
	Priority  int
	StopGrace time.Duration
	Logger    zerolog.Logger
}

// Stats summarises worker timing since Start.
type Stats struct {
	Cycles      int
	MeanPeriod  time.Duration
	MaxLateness time.Duration
	WriteErrors int
	// Skipped counts periods dropped after the worker stalled past a boundary.
	Skipped     int
	Realtime    bool
}

// PWM drives eight on/off channels with software pulse-width modulation.
type PWM struct {
	cfg    Config
	period time.Duration
	log    zerolog.Logger

	// mu guards the duty buffers and channel states.
	mu      sync.Mutex
	pending dynamo.Duty
	dirty   bool
	applied dynamo.Duty
	states  dynamo.Channels

	// hw serialises line writes. stopped discards worker writes once the
	// owner has forced the outputs low.
	hw      sync.Mutex
	stopped atomic.Bool

	// life serialises Start and Stop and guards quit and done.
	life    sync.Mutex
	running atomic.Bool
	quit    chan struct{}
	done    chan struct{}

	statsMu    sync.Mutex
	cycles     int
	firstCycle time.Time
	lastCycle  time.Time
	maxLate    time.Duration
	writeErrs  int
	skipped    int
	realtime   bool
}

func New(cfg Config) (*PWM, error) {
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultFrequency
	}
	if !(cfg.Frequency > 0) {
		return nil, fmt.Errorf("%w: %g", ErrFrequency, cfg.Frequency)
	}
	if cfg.Pins == ([dynamo.NumThrusters]int{}) {
		cfg.Pins = gpio.DefaultPins
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	mode := "simulation"
	if cfg.Writer != nil {
		mode = "hardware"
	}
	p := &PWM{
		cfg:    cfg,
		period: time.Duration(float64(time.Second) / cfg.Frequency),
		log:    cfg.Logger.With().Str("component", "pwm").Str("mode", mode).Logger(),
	}
	p.stopped.Store(true)
	return p, nil
}

// Period returns the PWM period.
func (p *PWM) Period() time.Duration { return p.period }

// Simulated reports whether no output lines are driven.
func (p *PWM) Simulated() bool { return p.cfg.Writer == nil }

// SetDutyCycle requests a duty for one channel, clamped to [0, 1]. The value
// takes effect at the next period boundary.
func (p *PWM) SetDutyCycle(ch int, duty float64) error {
	if ch < 0 || ch >= dynamo.NumThrusters {
		return fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	p.mu.Lock()
	p.pending[ch] = dynamo.Clamp(duty, 0, 1)
	p.dirty = true
	p.mu.Unlock()
	return nil
}

// SetAll requests a full duty vector, clamped to [0, 1].
func (p *PWM) SetAll(d dynamo.Duty) {
	d = d.Clamped()
	p.mu.Lock()
	p.pending = d
	p.dirty = true
	p.mu.Unlock()
}

// State reports whether a channel is currently ON.
func (p *PWM) State(ch int) (bool, error) {
	if ch < 0 || ch >= dynamo.NumThrusters {
		return false, fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states[ch], nil
}

// States returns a copy of all channel states.
func (p *PWM) States() dynamo.Channels {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.states
}

// DutyCycles returns the duty vector the worker is currently pulsing.
func (p *PWM) DutyCycles() dynamo.Duty {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied
}

func (p *PWM) Running() bool { return p.running.Load() }

// Start zeroes all outputs and launches the worker.
func (p *PWM) Start() error {
	p.life.Lock()
	defer p.life.Unlock()
	if p.running.Load() {
		return nil
	}
	if p.done != nil {
		select {
		case <-p.done:
		default:
			return ErrWorkerAlive
		}
	}

	p.mu.Lock()
	p.applied = dynamo.Duty{}
	p.states = dynamo.Channels{}
	p.mu.Unlock()

	p.stopped.Store(false)
	p.allLow()

	p.statsMu.Lock()
	p.cycles, p.maxLate, p.writeErrs, p.skipped = 0, 0, 0, 0
	p.realtime = false
	p.statsMu.Unlock()

	p.quit = make(chan struct{})
	p.done = make(chan struct{})
	p.running.Store(true)

	go p.run(p.quit, p.done)
	p.log.Info().Dur("period", p.period).Msg("pwm started")
	return nil
}

// Stop halts the worker, waits up to the grace period for it to exit, then
// drives every output LOW. After Stop every channel reports OFF. A worker
// that misses the grace period is abandoned; its later writes are discarded.
func (p *PWM) Stop() error {
	p.life.Lock()
	defer p.life.Unlock()
	if !p.running.CompareAndSwap(true, false) {
		p.forceLow()
		return nil
	}
	close(p.quit)

	var err error
	timer := time.NewTimer(p.cfg.StopGrace)
	select {
	case <-p.done:
		timer.Stop()
	case <-timer.C:
		err = ErrJoinTimeout
		p.log.Warn().Dur("grace", p.cfg.StopGrace).Msg("pwm worker did not exit, abandoning it")
	}

	p.forceLow()
	p.log.Info().Int("cycles", p.Stats().Cycles).Msg("pwm stopped")
	return err
}

// Stats returns timing statistics of the current or last run.
func (p *PWM) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	s := Stats{
		Cycles:      p.cycles,
		MaxLateness: p.maxLate,
		WriteErrors: p.writeErrs,
		Skipped:     p.skipped,
		Realtime:    p.realtime,
	}
	if p.cycles > 1 {
		s.MeanPeriod = p.lastCycle.Sub(p.firstCycle) / time.Duration(p.cycles-1+p.skipped)
	}
	return s
}

func (p *PWM) run(quit <-chan struct{}, done chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)

	if err := requestRealtime(p.cfg.Priority); err != nil {
		p.log.Warn().Err(err).Msg("running pwm at best-effort priority")
	} else if p.cfg.Priority > 0 {
		p.statsMu.Lock()
		p.realtime = true
		p.statsMu.Unlock()
	}

	var order [dynamo.NumThrusters]int
	t0 := time.Now()
	for k := 0; ; k++ {
		boundary := t0.Add(time.Duration(k) * p.period)
		// after a stall, resume at the current period instead of replaying
		// the missed ones as zero-width pulses
		if behind := time.Since(boundary); behind > p.period {
			missed := int(behind / p.period)
			k += missed
			boundary = t0.Add(time.Duration(k) * p.period)
			p.markSkipped(missed)
		}
		if !waitUntil(boundary, spinWindow, quit) {
			return
		}
		p.markCycle(boundary)

		duty := p.swap()
		for i, d := range duty {
			p.set(i, d > 0)
			order[i] = i
		}
		sort.Slice(order[:], func(a, b int) bool { return duty[order[a]] < duty[order[b]] })

		for _, i := range order {
			d := duty[i]
			if d <= 0 || d >= 1 {
				continue
			}
			off := boundary.Add(time.Duration(d * float64(p.period)))
			if !waitUntil(off, spinWindow, quit) {
				return
			}
			p.set(i, false)
		}
	}
}

// swap applies a pending update if one is waiting.
func (p *PWM) swap() dynamo.Duty {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty {
		p.applied = p.pending
		p.dirty = false
	}
	return p.applied
}

func (p *PWM) set(ch int, on bool) {
	p.hw.Lock()
	defer p.hw.Unlock()
	if p.stopped.Load() {
		return
	}

	if w := p.cfg.Writer; w != nil {
		level := gpio.Low
		if on {
			level = gpio.High
		}
		pin := p.cfg.Pins[ch]
		if err := w.WriteDigital(pin, level); err != nil {
			p.log.Error().Err(err).Int("channel", ch).Int("pin", pin).Msg("output write failed")
			p.statsMu.Lock()
			p.writeErrs++
			p.statsMu.Unlock()
			on = false
		}
		// a stop landed while the write was in flight
		if p.stopped.Load() {
			if on {
				_ = w.WriteDigital(pin, gpio.Low)
			}
			return
		}
	}

	p.mu.Lock()
	p.states[ch] = on
	p.mu.Unlock()
}

func (p *PWM) allLow() {
	for ch := range p.cfg.Pins {
		p.set(ch, false)
	}
}

// forceLow drives every line LOW from the owner's side. If a hung worker
// holds the write lock past the grace period the lines are left to that
// worker, which drops them as soon as its write returns.
func (p *PWM) forceLow() {
	p.stopped.Store(true)

	locked := p.hw.TryLock()
	for deadline := time.Now().Add(p.cfg.StopGrace); !locked && time.Now().Before(deadline); {
		time.Sleep(time.Millisecond)
		locked = p.hw.TryLock()
	}
	if locked {
		if w := p.cfg.Writer; w != nil {
			for ch, pin := range p.cfg.Pins {
				if err := w.WriteDigital(pin, gpio.Low); err != nil {
					p.log.Error().Err(err).Int("channel", ch).Int("pin", pin).Msg("forcing output low failed")
				}
			}
		}
		p.hw.Unlock()
	} else {
		p.log.Error().Msg("output lines held by hung worker, could not force low")
	}

	p.mu.Lock()
	p.states = dynamo.Channels{}
	p.applied = dynamo.Duty{}
	p.mu.Unlock()
}

func (p *PWM) markSkipped(n int) {
	p.statsMu.Lock()
	p.skipped += n
	p.statsMu.Unlock()
	p.log.Warn().Int("periods", n).Msg("pwm worker stalled, skipping missed periods")
}

func (p *PWM) markCycle(boundary time.Time) {
	now := time.Now()
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	if p.cycles == 0 {
		p.firstCycle = now
	}
	p.lastCycle = now
	p.cycles++
	if late := now.Sub(boundary); late > p.maxLate {
		p.maxLate = late
	}
	if p.cycles%1000 == 0 {
		p.log.Debug().Int("cycles", p.cycles).Dur("max_lateness", p.maxLate).Msg("pwm timing")
	}
}
