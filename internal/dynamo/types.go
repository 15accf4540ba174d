package dynamo

import (
	"fmt"
	"math"
)

// NumThrusters is the number of on/off cold-gas thrusters per platform.
const NumThrusters = 8

// State is a planar rigid-body state in SI units. Yaw is in radians.
type State struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Yaw     float64 `json:"yaw"`
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
	YawRate float64 `json:"yaw_rate"`
}

// StateFromPose builds a state at rest from an {x, y, yaw} pose.
func StateFromPose(pose [3]float64) State {
	return State{X: pose[0], Y: pose[1], Yaw: pose[2]}
}

func (s State) Vec() [6]float64 {
	return [6]float64{s.X, s.Y, s.Yaw, s.VX, s.VY, s.YawRate}
}

func (s State) IsValid() bool {
	for _, v := range s.Vec() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Error returns s - target with the yaw component taken along the shortest arc.
func (s State) Error(target State) [6]float64 {
	return [6]float64{
		s.X - target.X,
		s.Y - target.Y,
		WrapAngle(s.Yaw - target.Yaw),
		s.VX - target.VX,
		s.VY - target.VY,
		s.YawRate - target.YawRate,
	}
}

func (s State) String() string {
	return fmt.Sprintf("x=%.3f y=%.3f yaw=%.3f vx=%.3f vy=%.3f w=%.3f",
		s.X, s.Y, s.Yaw, s.VX, s.VY, s.YawRate)
}

// Control is a force/torque triple {Fx, Fy, Tz}.
type Control [3]float64

// Force returns the translational part.
func (c Control) Force() [2]float64 { return [2]float64{c[0], c[1]} }

// Torque returns the rotational part.
func (c Control) Torque() float64 { return c[2] }

// Signal is the control output of a single tick.
//
// Inertial is the commanded force/torque in the world frame, Body the same
// command rotated into the vehicle frame. AchievableBody is what the
// allocated duty cycles actually produce, and Achievable is that signal
// rotated back to the world frame for the dynamics surrogate.
type Signal struct {
	Inertial       Control
	Body           Control
	AchievableBody Control
	Achievable     Control
}

// Duty holds one duty cycle per thruster channel.
type Duty [NumThrusters]float64

// Active returns the number of channels with a non-zero duty cycle.
func (d Duty) Active() int {
	n := 0
	for _, v := range d {
		if v > 0 {
			n++
		}
	}
	return n
}

// Sum returns the total duty across all channels.
func (d Duty) Sum() float64 {
	sum := 0.0
	for _, v := range d {
		sum += v
	}
	return sum
}

// Clamped returns a copy with every entry limited to [0, 1].
func (d Duty) Clamped() Duty {
	for i, v := range d {
		d[i] = Clamp(v, 0, 1)
	}
	return d
}

// Channels holds the physical ON/OFF state of each thruster line.
type Channels [NumThrusters]bool

// Count returns how many lines are ON.
func (c Channels) Count() int {
	n := 0
	for _, on := range c {
		if on {
			n++
		}
	}
	return n
}

// Platform names a vehicle on the table.
type Platform string

const (
	Chaser   Platform = "chaser"
	Target   Platform = "target"
	Obstacle Platform = "obstacle"
)

// Platforms lists every vehicle in logging order.
var Platforms = []Platform{Chaser, Target, Obstacle}

func (p Platform) Valid() bool {
	switch p {
	case Chaser, Target, Obstacle:
		return true
	}
	return false
}
