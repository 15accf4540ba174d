// Package integrators advances second-order planar rigid-body states.
//
// A state vector is {x, y, yaw, vx, vy, yaw rate}: three positions followed
// by their rates. Derivative functions return {vx, vy, w, ax, ay, α}.
package integrators

import (
	"errors"
	"fmt"
)

// Dim is the state dimension.
const Dim = 6

const half = Dim / 2

var ErrUnknown = errors.New("integrators: unknown integrator")

// Vector is a state or derivative.
type Vector [Dim]float64

// Derivative evaluates the state rate at x and time t.
type Derivative func(x Vector, t float64) Vector

// Integrator advances x by dt.
type Integrator interface {
	Step(f Derivative, x Vector, t, dt float64) Vector
}

// Names lists the integrators New accepts.
var Names = []string{"euler", "semi-implicit", "verlet", "rk4"}

// New returns an integrator by name. The empty name selects semi-implicit
// Euler.
func New(name string) (Integrator, error) {
	switch name {
	case "", "semi-implicit", "symplectic":
		return NewSemiImplicitEuler(), nil
	case "euler":
		return NewEuler(), nil
	case "verlet":
		return NewVerlet(), nil
	case "rk4":
		return NewRK4(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
}
