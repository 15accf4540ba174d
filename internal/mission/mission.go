// Package mission sequences the phases of a run: which setpoint each
// platform tracks and whether feedback control is active.
package mission

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/san-kum/spotlab/internal/dynamo"
	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyMission    = errors.New("mission: no phases")
	ErrInvalidDuration = errors.New("mission: phase duration must be positive")
	ErrUnknownSetpoint = errors.New("mission: unknown setpoint kind")
	ErrUnknownMission  = errors.New("mission: unknown mission")
)

// Setpoint selects which configured pose a phase tracks.
type Setpoint string

const (
	SetpointZero Setpoint = "zero"
	SetpointDrop Setpoint = "drop"
	SetpointInit Setpoint = "init"
	SetpointHome Setpoint = "home"
)

func (s Setpoint) Valid() bool {
	switch s {
	case SetpointZero, SetpointDrop, SetpointInit, SetpointHome:
		return true
	}
	return false
}

// Phase is one segment of the timeline.
type Phase struct {
	Name     string   `yaml:"name" json:"name"`
	Duration float64  `yaml:"duration" json:"duration"`
	Control  bool     `yaml:"control" json:"control"`
	Setpoint Setpoint `yaml:"setpoint" json:"setpoint"`
}

// Mission is an ordered list of phases.
type Mission struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Phases      []Phase `yaml:"phases" json:"phases"`
}

// Poses are the per-platform reference poses {x, y, yaw} a setpoint can name.
type Poses struct {
	Drop [3]float64
	Init [3]float64
	Home [3]float64
}

// Load reads a mission from a YAML file.
func Load(path string) (*Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Mission
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("mission: parse %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Save writes the mission as YAML.
func (m *Mission) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve returns a preset by name, or loads name as a file path.
func Resolve(name string) (*Mission, error) {
	if name == "" {
		name = DefaultPreset
	}
	if p, ok := Presets[name]; ok {
		return p.Clone(), nil
	}
	if _, err := os.Stat(name); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMission, name)
	}
	return Load(name)
}

func (m *Mission) Validate() error {
	if len(m.Phases) == 0 {
		return ErrEmptyMission
	}
	for i, p := range m.Phases {
		if !(p.Duration > 0) || math.IsInf(p.Duration, 0) {
			return fmt.Errorf("%w: phase %d (%s) = %g", ErrInvalidDuration, i, p.Name, p.Duration)
		}
		if p.Setpoint == "" {
			m.Phases[i].Setpoint = SetpointZero
		} else if !p.Setpoint.Valid() {
			return fmt.Errorf("%w: phase %d (%s) = %q", ErrUnknownSetpoint, i, p.Name, p.Setpoint)
		}
	}
	return nil
}

func (m *Mission) Clone() *Mission {
	c := *m
	c.Phases = append([]Phase(nil), m.Phases...)
	return &c
}

func (m *Mission) Durations() []float64 {
	d := make([]float64, len(m.Phases))
	for i, p := range m.Phases {
		d[i] = p.Duration
	}
	return d
}

// Duration is the total mission length in seconds.
func (m *Mission) Duration() float64 {
	total := 0.0
	for _, p := range m.Phases {
		total += p.Duration
	}
	return total
}

// ControlEnabled reports whether feedback runs during phase i. Before the
// first phase starts control is off.
func (m *Mission) ControlEnabled(i int) bool {
	if i < 0 || i >= len(m.Phases) {
		return false
	}
	return m.Phases[i].Control
}

// Target returns the setpoint of phase i for a platform with poses.
// Velocities of every setpoint are zero.
func (m *Mission) Target(i int, poses Poses) dynamo.State {
	if i < 0 || i >= len(m.Phases) {
		return dynamo.State{}
	}
	switch m.Phases[i].Setpoint {
	case SetpointDrop:
		return dynamo.StateFromPose(poses.Drop)
	case SetpointInit:
		return dynamo.StateFromPose(poses.Init)
	case SetpointHome:
		return dynamo.StateFromPose(poses.Home)
	default:
		return dynamo.State{}
	}
}
