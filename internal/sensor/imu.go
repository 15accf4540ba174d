package sensor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var ErrReinitFailed = errors.New("sensor: inertial reinitialisation failed")

const (
	DefaultIMURate        = 100.0
	DefaultMaxZeroReads   = 5
	DefaultReinitAttempts = 3
	DefaultReinitBackoff  = time.Second
)

// InertialSensor is a 6-axis gyro/accelerometer.
type InertialSensor interface {
	// ReadInertial returns gx, gy, gz (rad/s) and ax, ay, az (m/s²).
	ReadInertial() ([6]float64, error)
	// Reinit resets the device and restores its configuration.
	Reinit() error
	Close() error
}

// Inertial is one accepted inertial sample.
type Inertial struct {
	Gyro  [3]float64
	Accel [3]float64
	At    time.Time
}

// IMUConfig configures an IMU pipeline.
type IMUConfig struct {
	Rate           float64
	MaxZeroReads   int
	ReinitAttempts int
	ReinitBackoff  time.Duration
	Now            func() time.Time
	Logger         zerolog.Logger
}

// IMU polls an InertialSensor at a fixed rate and keeps the latest sample.
//
// A run of MaxZeroReads all-zero samples is taken as a wedged device and
// triggers one reinitialisation, after which the run counter starts over.
// Read errors also trigger a reinitialisation.
type IMU struct {
	sensor InertialSensor
	cfg    IMUConfig
	log    zerolog.Logger

	// owned by the polling goroutine
	zeroRun int

	mu      sync.Mutex
	latest  Inertial
	has     bool
	reinits int

	quit chan struct{}
	done chan struct{}
}

func NewIMU(sensor InertialSensor, cfg IMUConfig) *IMU {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultIMURate
	}
	if cfg.MaxZeroReads <= 0 {
		cfg.MaxZeroReads = DefaultMaxZeroReads
	}
	if cfg.ReinitAttempts <= 0 {
		cfg.ReinitAttempts = DefaultReinitAttempts
	}
	if cfg.ReinitBackoff <= 0 {
		cfg.ReinitBackoff = DefaultReinitBackoff
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &IMU{
		sensor: sensor,
		cfg:    cfg,
		log:    cfg.Logger.With().Str("component", "imu").Logger(),
		quit:   make(chan struct{}),
	}
}

func (m *IMU) Start() {
	if m.done != nil {
		return
	}
	m.done = make(chan struct{})
	go m.run()
	m.log.Info().Float64("rate_hz", m.cfg.Rate).Msg("imu started")
}

// Stop ends polling and waits up to timeout for the goroutine to exit.
func (m *IMU) Stop(timeout time.Duration) error {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
	if m.done == nil {
		return nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-m.done:
		m.log.Info().Int("reinits", m.Reinits()).Msg("imu stopped")
		return nil
	case <-timer.C:
		m.log.Warn().Dur("timeout", timeout).Msg("imu did not stop in time")
		return ErrJoinTimeout
	}
}

// Get returns the latest accepted sample.
func (m *IMU) Get() (Inertial, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.has
}

// Orientation returns roll and pitch from the latest accelerometer sample.
func (m *IMU) Orientation() (roll, pitch float64) {
	s, _ := m.Get()
	return RollPitch(s.Accel[0], s.Accel[1], s.Accel[2])
}

// Reinits counts reinitialisations triggered so far.
func (m *IMU) Reinits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reinits
}

func (m *IMU) run() {
	defer close(m.done)
	period := time.Duration(float64(time.Second) / m.cfg.Rate)
	tick := time.NewTicker(period)
	defer tick.Stop()
	for {
		m.poll()
		select {
		case <-m.quit:
			return
		case <-tick.C:
		}
	}
}

// poll performs one read and its failure handling.
func (m *IMU) poll() {
	v, err := m.sensor.ReadInertial()
	if err != nil {
		m.log.Warn().Err(err).Msg("inertial read failed")
		m.zeroRun = 0
		if err := m.reinit(); err != nil {
			m.log.Error().Err(err).Msg("imu unavailable")
		}
		return
	}

	if v == ([6]float64{}) {
		m.zeroRun++
		m.log.Warn().Int("run", m.zeroRun).Int("limit", m.cfg.MaxZeroReads).Msg("inertial sample all zero")
		if m.zeroRun >= m.cfg.MaxZeroReads {
			m.zeroRun = 0
			if err := m.reinit(); err != nil {
				m.log.Error().Err(err).Msg("imu unavailable")
			}
		}
		return
	}

	m.zeroRun = 0
	s := Inertial{
		Gyro:  [3]float64{v[0], v[1], v[2]},
		Accel: [3]float64{v[3], v[4], v[5]},
		At:    m.cfg.Now(),
	}
	m.mu.Lock()
	m.latest, m.has = s, true
	m.mu.Unlock()
}

// reinit retries the device reset a bounded number of times, backing off
// between failures.
func (m *IMU) reinit() error {
	m.mu.Lock()
	m.reinits++
	m.mu.Unlock()

	var err error
	for attempt := 1; attempt <= m.cfg.ReinitAttempts; attempt++ {
		m.log.Info().Int("attempt", attempt).Msg("reinitialising imu")
		if err = m.sensor.Reinit(); err == nil {
			return nil
		}
		m.log.Warn().Err(err).Int("attempt", attempt).Msg("imu reinit failed")
		if attempt == m.cfg.ReinitAttempts {
			break
		}
		select {
		case <-m.quit:
			return fmt.Errorf("%w: stopped: %v", ErrReinitFailed, err)
		case <-time.After(m.cfg.ReinitBackoff):
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrReinitFailed, m.cfg.ReinitAttempts, err)
}
