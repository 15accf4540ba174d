// Package sim runs the fixed-rate control loop that ties sensing, the
// mission timeline, control, actuation and logging together.
package sim

import (
	"time"

	"github.com/san-kum/spotlab/internal/control"
	"github.com/san-kum/spotlab/internal/dynamo"
	"github.com/san-kum/spotlab/internal/metrics"
	"github.com/san-kum/spotlab/internal/mission"
	"github.com/san-kum/spotlab/internal/physics"
	"github.com/san-kum/spotlab/internal/sensor"
)

const (
	ModeSimulation = "simulation"
	ModeExperiment = "experiment"

	DefaultSensorJoinTimeout = time.Second
)

// Actuator turns duty cycles into thruster output.
type Actuator interface {
	Start() error
	SetAll(d dynamo.Duty)
	States() dynamo.Channels
	Stop() error
}

// Sensor is a background acquisition pipeline.
type Sensor interface {
	Start()
	Stop(timeout time.Duration) error
}

// PoseProvider returns the latest tracked state of a platform.
type PoseProvider interface {
	Get(p dynamo.Platform) (sensor.Snapshot, bool)
}

// InertialProvider returns the latest inertial sample.
type InertialProvider interface {
	Get() (sensor.Inertial, bool)
}

// Platform is one controlled vehicle.
type Platform struct {
	Name       dynamo.Platform
	Controller *control.Controller
	Actuator   Actuator
	// Body is the dynamics surrogate. It feeds the state in simulation and
	// is ignored in experiment mode.
	Body    *physics.Spacecraft
	Poses   mission.Poses
	Metrics []metrics.Metric
}

// PlatformTick is what one platform did during a tick.
type PlatformTick struct {
	Platform dynamo.Platform
	State    dynamo.State
	Target   dynamo.State
	Signal   dynamo.Signal
	Duty     dynamo.Duty
	Channels dynamo.Channels
	Enabled  bool
}

// Tick is passed to observers after every executed tick.
type Tick struct {
	Index     int
	Time      float64
	Phase     int
	Platforms []PlatformTick
}

// Observer watches the loop. OnTick runs on the loop goroutine and must not
// block.
type Observer interface {
	OnTick(t Tick)
	OnPhase(phase int, name string, at float64)
}

// Result summarises a finished run.
type Result struct {
	Ticks       int
	Skipped     int
	Overruns    int
	Elapsed     float64
	Phase       int
	Interrupted bool
	// Metrics are keyed "<platform>.<metric>".
	Metrics map[string]float64
	Rows    int
}
