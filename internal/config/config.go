// Package config loads run settings and per-platform physical parameters.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/san-kum/spotlab/internal/dynamo"
	"github.com/san-kum/spotlab/internal/integrators"
	"github.com/spf13/viper"
)

const (
	ModeSimulation = "simulation"
	ModeExperiment = "experiment"

	DefaultSampleRate   = 20.0
	DefaultPWMFrequency = 5.0
	DefaultValveTime    = 0.007
	DefaultIntegrator   = "semi-implicit"
	DefaultIMURate      = 100.0
	DefaultIMUAddress   = 0x69

	EnvPrefix = "SPOT"
)

var ErrInvalidRun = errors.New("config: invalid run settings")

// Run holds everything a run needs besides the platform files.
type Run struct {
	Mode         string   `mapstructure:"mode"`
	Realtime     bool     `mapstructure:"realtime"`
	SampleRate   float64  `mapstructure:"sample_rate"`
	PWMFrequency float64  `mapstructure:"pwm_frequency"`
	ValveTime    float64  `mapstructure:"valve_time"`
	Integrator   string   `mapstructure:"integrator"`
	Allocator    string   `mapstructure:"allocator"`
	Platforms    []string `mapstructure:"platforms"`
	PlatformDir  string   `mapstructure:"platform_dir"`
	Mission      string   `mapstructure:"mission"`
	DataDir      string   `mapstructure:"data_dir"`
	LogLevel     string   `mapstructure:"log_level"`
	LogDir       string   `mapstructure:"log_dir"`
	Storage      []string `mapstructure:"storage"`
	SQLitePath   string   `mapstructure:"sqlite_path"`

	Influx   InfluxSettings   `mapstructure:"influx"`
	Pose     PoseSettings     `mapstructure:"pose"`
	IMU      IMUSettings      `mapstructure:"imu"`
	GPIO     GPIOSettings     `mapstructure:"gpio"`
	Actuator ActuatorSettings `mapstructure:"actuator"`
}

type InfluxSettings struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

type PoseSettings struct {
	Address     string         `mapstructure:"address"`
	PollTimeout time.Duration  `mapstructure:"poll_timeout"`
	Trackers    map[string]int `mapstructure:"trackers"`
}

type IMUSettings struct {
	Enabled        bool          `mapstructure:"enabled"`
	Bus            int           `mapstructure:"bus"`
	Address        int           `mapstructure:"address"`
	Rate           float64       `mapstructure:"rate"`
	MaxZeroReads   int           `mapstructure:"max_zero_reads"`
	ReinitAttempts int           `mapstructure:"reinit_attempts"`
	ReinitBackoff  time.Duration `mapstructure:"reinit_backoff"`
}

type GPIOSettings struct {
	Pins []int `mapstructure:"pins"`
}

type ActuatorSettings struct {
	StopGrace time.Duration `mapstructure:"stop_grace"`
	Priority  int           `mapstructure:"priority"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeSimulation)
	v.SetDefault("realtime", false)
	v.SetDefault("sample_rate", DefaultSampleRate)
	v.SetDefault("pwm_frequency", DefaultPWMFrequency)
	v.SetDefault("valve_time", DefaultValveTime)
	v.SetDefault("integrator", DefaultIntegrator)
	v.SetDefault("allocator", "fast")
	v.SetDefault("platforms", []string{string(dynamo.Chaser)})
	v.SetDefault("platform_dir", "")
	v.SetDefault("mission", "standard")
	v.SetDefault("data_dir", "./runs")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "./logs")
	v.SetDefault("storage", []string{"csv"})
	v.SetDefault("sqlite_path", "")

	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "spotlab")
	v.SetDefault("influx.bucket", "spot")

	v.SetDefault("pose.address", ":53673")
	v.SetDefault("pose.poll_timeout", time.Second)
	v.SetDefault("pose.trackers", map[string]int{
		string(dynamo.Chaser):   0,
		string(dynamo.Target):   2,
		string(dynamo.Obstacle): 3,
	})

	v.SetDefault("imu.enabled", false)
	v.SetDefault("imu.bus", 1)
	v.SetDefault("imu.address", DefaultIMUAddress)
	v.SetDefault("imu.rate", DefaultIMURate)
	v.SetDefault("imu.max_zero_reads", 5)
	v.SetDefault("imu.reinit_attempts", 3)
	v.SetDefault("imu.reinit_backoff", 100*time.Millisecond)

	v.SetDefault("gpio.pins", []int{7, 12, 13, 15, 16, 18, 22, 23})

	v.SetDefault("actuator.stop_grace", time.Second)
	v.SetDefault("actuator.priority", 99)
}

// DefaultRun returns the built-in settings.
func DefaultRun() *Run {
	r, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return r
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Run, error) {
	var r Run
	if err := v.Unmarshal(&r); err != nil {
		return nil, fmt.Errorf("decoding run settings: %w", err)
	}
	return &r, nil
}

// LoadRun layers defaults, the optional settings file at path (JSON, YAML or
// TOML by extension) and SPOT_* environment variables, then validates.
func LoadRun(path string) (*Run, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	r, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Run) Validate() error {
	switch r.Mode {
	case ModeSimulation, ModeExperiment:
	default:
		return fmt.Errorf("%w: mode %q", ErrInvalidRun, r.Mode)
	}
	if !(r.SampleRate > 0) {
		return fmt.Errorf("%w: sample rate %g", ErrInvalidRun, r.SampleRate)
	}
	if !(r.PWMFrequency > 0) {
		return fmt.Errorf("%w: pwm frequency %g", ErrInvalidRun, r.PWMFrequency)
	}
	if r.ValveTime < 0 || r.ValveTime*r.PWMFrequency >= 1 {
		return fmt.Errorf("%w: valve time %g at %g Hz", ErrInvalidRun, r.ValveTime, r.PWMFrequency)
	}
	if !slices.Contains(integrators.Names, r.Integrator) {
		return fmt.Errorf("%w: unknown integrator %q", ErrInvalidRun, r.Integrator)
	}
	if len(r.Platforms) == 0 {
		return fmt.Errorf("%w: no active platforms", ErrInvalidRun)
	}
	for _, p := range r.Platforms {
		if !dynamo.Platform(p).Valid() {
			return fmt.Errorf("%w: unknown platform %q", ErrInvalidRun, p)
		}
	}
	if len(r.GPIO.Pins) != dynamo.NumThrusters {
		return fmt.Errorf("%w: need %d gpio pins, got %d", ErrInvalidRun, dynamo.NumThrusters, len(r.GPIO.Pins))
	}
	for _, s := range r.Storage {
		switch s {
		case "csv", "sqlite", "influx":
		default:
			return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidRun, s)
		}
	}
	return nil
}

// Dt is the control period in seconds.
func (r *Run) Dt() float64 { return 1 / r.SampleRate }

// Simulated reports whether the dynamics surrogate feeds the state pipeline.
func (r *Run) Simulated() bool { return r.Mode == ModeSimulation }

// ActivePlatforms returns the platforms as typed values.
func (r *Run) ActivePlatforms() []dynamo.Platform {
	out := make([]dynamo.Platform, len(r.Platforms))
	for i, p := range r.Platforms {
		out[i] = dynamo.Platform(p)
	}
	return out
}

// TrackerIDs maps platforms to their rigid-body ids on the tracker.
func (r *Run) TrackerIDs() map[dynamo.Platform]int {
	ids := make(map[dynamo.Platform]int, len(r.Pose.Trackers))
	for name, id := range r.Pose.Trackers {
		ids[dynamo.Platform(name)] = id
	}
	return ids
}

// Pins returns the GPIO board pins as a fixed array.
func (r *Run) Pins() [dynamo.NumThrusters]int {
	var pins [dynamo.NumThrusters]int
	copy(pins[:], r.GPIO.Pins)
	return pins
}
