package control

import (
	"fmt"

	"github.com/san-kum/spotlab/internal/dynamo"
)

// Params configures a Controller for one platform.
type Params struct {
	Mass    float64
	Inertia float64
	// LeverArms are the thruster moment arms about the centre of mass in mm.
	LeverArms [dynamo.NumThrusters]float64
	// Forces are the per-thruster maximum forces in N.
	Forces [dynamo.NumThrusters]float64

	Period       float64 // control period, s
	PWMFrequency float64 // Hz
	ValveTime    float64 // minimum valve open time, s

	Weights Weights
	Method  Method
}

// Controller runs the regulator and allocator for one platform.
// It is not safe for concurrent use; the control loop owns it.
type Controller struct {
	lqr   *LQR
	alloc *Allocator

	enabled   bool
	hasSignal bool
	signal    dynamo.Signal
	duty      dynamo.Duty
	last      Allocation
}

func New(p Params) (*Controller, error) {
	w := p.Weights
	if w == (Weights{}) {
		w = DefaultWeights
	}
	lqr, err := NewLQR(p.Mass, p.Inertia, p.Period, w)
	if err != nil {
		return nil, err
	}
	if !(p.PWMFrequency > 0) {
		return nil, fmt.Errorf("%w: pwm frequency %g", ErrInvalidGeometry, p.PWMFrequency)
	}
	alloc, err := NewAllocator(p.LeverArms, p.Forces, MinDutyCycle(p.ValveTime, p.PWMFrequency), p.Method)
	if err != nil {
		return nil, err
	}
	return &Controller{lqr: lqr, alloc: alloc, enabled: true}, nil
}

// Solve forces the gain computation. Compute calls it lazily otherwise.
func (c *Controller) Solve() error { return c.lqr.Solve() }

func (c *Controller) LQR() *LQR { return c.lqr }

func (c *Controller) Allocator() *Allocator { return c.alloc }

// SetEnabled toggles feedback. A disabled controller commands zero.
func (c *Controller) SetEnabled(on bool) { c.enabled = on }

func (c *Controller) Enabled() bool { return c.enabled }

// Compute runs one control tick and returns the allocated duty cycles.
func (c *Controller) Compute(state, target dynamo.State) (dynamo.Duty, error) {
	var u dynamo.Control
	if c.enabled {
		var err error
		if u, err = c.lqr.Compute(state, target); err != nil {
			return dynamo.Duty{}, err
		}
	}

	c.signal = dynamo.Signal{
		Inertial: u,
		Body:     dynamo.ControlToBody(state.Yaw, u),
	}
	c.hasSignal = true

	duty, err := c.Allocate()
	if err != nil {
		return dynamo.Duty{}, err
	}
	c.signal.Achievable = dynamo.ControlToInertial(state.Yaw, c.signal.AchievableBody)
	return duty, nil
}

// Allocate maps the current body-frame signal onto duty cycles.
func (c *Controller) Allocate() (dynamo.Duty, error) {
	if !c.hasSignal {
		return dynamo.Duty{}, ErrUninitializedSignal
	}
	c.last = c.alloc.Allocate(c.signal.Body)
	c.duty = c.last.Duty
	c.signal.AchievableBody = c.last.Achievable
	return c.duty, nil
}

// BodySignal returns the body-frame request handed to allocation.
func (c *Controller) BodySignal() (dynamo.Control, error) {
	if !c.hasSignal {
		return dynamo.Control{}, ErrUninitializedSignal
	}
	return c.signal.Body, nil
}

func (c *Controller) Signal() dynamo.Signal { return c.signal }

func (c *Controller) Duty() dynamo.Duty { return c.duty }

// LastAllocation returns the details of the latest allocation step.
func (c *Controller) LastAllocation() Allocation { return c.last }
