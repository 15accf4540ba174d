package physics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/spotlab/internal/dynamo"
	"github.com/san-kum/spotlab/internal/integrators"
)

var ErrInvalidBody = errors.New("physics: mass and inertia must be positive")

// Spacecraft is a planar rigid body on an air bearing. Forces are in the
// inertial frame. A force applied with ApplyForce acts for the next Update
// only.
type Spacecraft struct {
	Mass    float64
	Inertia float64

	integ integrators.Integrator

	mu    sync.Mutex
	state dynamo.State
	acc   [3]float64
	t     float64
}

// NewSpacecraft returns a body at rest at initial. A nil integrator selects
// semi-implicit Euler.
func NewSpacecraft(mass, inertia float64, initial dynamo.State, integ integrators.Integrator) (*Spacecraft, error) {
	if !(mass > 0) || !(inertia > 0) {
		return nil, fmt.Errorf("%w: mass=%g inertia=%g", ErrInvalidBody, mass, inertia)
	}
	if integ == nil {
		integ = integrators.NewSemiImplicitEuler()
	}
	return &Spacecraft{Mass: mass, Inertia: inertia, integ: integ, state: initial}, nil
}

// ApplyForce sets the pending linear and angular acceleration.
func (s *Spacecraft) ApplyForce(f [2]float64, torque float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acc = [3]float64{f[0] / s.Mass, f[1] / s.Mass, torque / s.Inertia}
}

// ApplyControl is ApplyForce for a force/torque triple.
func (s *Spacecraft) ApplyControl(c dynamo.Control) {
	s.ApplyForce(c.Force(), c.Torque())
}

// Update integrates dt seconds and clears the pending acceleration.
func (s *Spacecraft) Update(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.acc
	f := func(x integrators.Vector, _ float64) integrators.Vector {
		return integrators.Vector{x[3], x[4], x[5], acc[0], acc[1], acc[2]}
	}
	x := s.integ.Step(f, integrators.Vector(s.state.Vec()), s.t, dt)
	s.state = dynamo.State{X: x[0], Y: x[1], Yaw: x[2], VX: x[3], VY: x[4], YawRate: x[5]}
	s.acc = [3]float64{}
	s.t += dt
}

// State returns a copy of the current state.
func (s *Spacecraft) State() dynamo.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset places the body at state with no pending force.
func (s *Spacecraft) Reset(state dynamo.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.acc = [3]float64{}
	s.t = 0
}
