package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/spotlab/internal/control"
	"github.com/san-kum/spotlab/internal/dynamo"
	"github.com/san-kum/spotlab/internal/mission"
	"gopkg.in/yaml.v3"
)

var ErrInvalidPlatform = errors.New("config: invalid platform file")

// Platform is the physical description of one vehicle.
type Platform struct {
	Name      dynamo.Platform
	Mass      float64
	Inertia   float64
	LeverArms [dynamo.NumThrusters]float64 // mm
	Forces    [dynamo.NumThrusters]float64 // N
	Start     [3]float64
	Init      [3]float64
	Home      [3]float64
	Drop      [3]float64
}

type param[T any] struct {
	Value T `yaml:"value"`
}

// platformFile mirrors the lab's {"key": {"value": ...}} layout.
type platformFile struct {
	Mass      param[float64]   `yaml:"mass"`
	Inertia   param[float64]   `yaml:"inertia"`
	LeverArms param[[]float64] `yaml:"lever_arms"`
	Forces    param[[]float64] `yaml:"thruster_forces"`
	Start     param[[]float64] `yaml:"start_pose"`
	Init      param[[]float64] `yaml:"init_pose"`
	Home      param[[]float64] `yaml:"home_pose"`
	Drop      param[[]float64] `yaml:"drop_pose"`
}

var defaultLeverArms = [dynamo.NumThrusters]float64{83.42, -52.58, 55.94, -60.05, 54.08, -53.92, 77.08, -59.42}

var defaultPoses = map[dynamo.Platform][4][3]float64{
	// start, init, home, drop
	dynamo.Chaser:   {{0.6, 1.2, 0}, {1.2, 1.2, 0}, {0.5, 1.2, 0}, {0.6, 1.2, 0}},
	dynamo.Target:   {{2.9, 1.2, math.Pi}, {2.4, 1.2, math.Pi}, {3.0, 1.2, math.Pi}, {2.9, 1.2, math.Pi}},
	dynamo.Obstacle: {{1.75, 0.6, 0}, {1.75, 0.6, 0}, {1.75, 0.4, 0}, {1.75, 0.6, 0}},
}

// DefaultPlatform returns the built-in description of p.
func DefaultPlatform(p dynamo.Platform) Platform {
	poses := defaultPoses[p]
	pl := Platform{
		Name:      p,
		Mass:      16.9,
		Inertia:   0.2,
		LeverArms: defaultLeverArms,
		Start:     poses[0],
		Init:      poses[1],
		Home:      poses[2],
		Drop:      poses[3],
	}
	for i := range pl.Forces {
		pl.Forces[i] = 0.25
	}
	return pl
}

// ParsePlatform decodes a platform file. JSON and YAML are both accepted.
// Missing keys keep the built-in values for p.
func ParsePlatform(p dynamo.Platform, data []byte) (Platform, error) {
	pl := DefaultPlatform(p)
	f := platformFile{
		Mass:      param[float64]{pl.Mass},
		Inertia:   param[float64]{pl.Inertia},
		LeverArms: param[[]float64]{pl.LeverArms[:]},
		Forces:    param[[]float64]{pl.Forces[:]},
		Start:     param[[]float64]{pl.Start[:]},
		Init:      param[[]float64]{pl.Init[:]},
		Home:      param[[]float64]{pl.Home[:]},
		Drop:      param[[]float64]{pl.Drop[:]},
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Platform{}, fmt.Errorf("%w: %v", ErrInvalidPlatform, err)
	}

	pl.Mass = f.Mass.Value
	pl.Inertia = f.Inertia.Value
	fields := []struct {
		name string
		src  []float64
		dst  []float64
	}{
		{"lever_arms", f.LeverArms.Value, pl.LeverArms[:]},
		{"thruster_forces", f.Forces.Value, pl.Forces[:]},
		{"start_pose", f.Start.Value, pl.Start[:]},
		{"init_pose", f.Init.Value, pl.Init[:]},
		{"home_pose", f.Home.Value, pl.Home[:]},
		{"drop_pose", f.Drop.Value, pl.Drop[:]},
	}
	for _, fd := range fields {
		if len(fd.src) != len(fd.dst) {
			return Platform{}, fmt.Errorf("%w: %s has %d values, want %d", ErrInvalidPlatform, fd.name, len(fd.src), len(fd.dst))
		}
		copy(fd.dst, fd.src)
	}
	if err := pl.Validate(); err != nil {
		return Platform{}, err
	}
	return pl, nil
}

// LoadPlatform reads <dir>/<p>.json. An empty dir yields the built-in values.
func LoadPlatform(dir string, p dynamo.Platform) (Platform, error) {
	if !p.Valid() {
		return Platform{}, fmt.Errorf("%w: unknown platform %q", ErrInvalidPlatform, p)
	}
	if dir == "" {
		return DefaultPlatform(p), nil
	}
	return LoadPlatformFile(filepath.Join(dir, string(p)+".json"), p)
}

// LoadPlatformFile reads a platform description from an explicit path.
func LoadPlatformFile(path string, p dynamo.Platform) (Platform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Platform{}, err
	}
	pl, err := ParsePlatform(p, data)
	if err != nil {
		return Platform{}, fmt.Errorf("%s: %w", path, err)
	}
	return pl, nil
}

func (p Platform) Validate() error {
	if !(p.Mass > 0) || !(p.Inertia > 0) {
		return fmt.Errorf("%w: mass %g and inertia %g must be positive", ErrInvalidPlatform, p.Mass, p.Inertia)
	}
	for i, f := range p.Forces {
		if !(f > 0) {
			return fmt.Errorf("%w: thruster %d force %g", ErrInvalidPlatform, i, f)
		}
	}
	for i, a := range p.LeverArms {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return fmt.Errorf("%w: lever arm %d is %g", ErrInvalidPlatform, i, a)
		}
	}
	return nil
}

// Poses returns the setpoint poses a mission can name.
func (p Platform) Poses() mission.Poses {
	return mission.Poses{Drop: p.Drop, Init: p.Init, Home: p.Home}
}

// ControlParams builds controller parameters for this platform under run.
func (p Platform) ControlParams(run *Run) control.Params {
	return control.Params{
		Mass:         p.Mass,
		Inertia:      p.Inertia,
		LeverArms:    p.LeverArms,
		Forces:       p.Forces,
		Period:       run.Dt(),
		PWMFrequency: run.PWMFrequency,
		ValveTime:    run.ValveTime,
		Method:       control.Method(run.Allocator),
	}
}
