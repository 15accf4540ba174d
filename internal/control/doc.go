// Package control computes thruster commands for a planar air-bearing vehicle.
//
// Three pieces cooperate each tick:
//
//   - [LQR]: fixed-gain regulator. The gain is solved once from the discrete
//     algebraic Riccati equation and cached.
//   - [Allocator]: maps a body-frame force/torque request onto eight on/off
//     thrusters through the pseudo-inverse of the thruster geometry, with a
//     thrust decay model and a minimum valve-open floor.
//   - [Controller]: ties both together, handles phase enablement and the
//     inertial/body frame rotations.
//
// # Usage
//
//	ctrl, err := control.New(control.Params{
//		Mass: 16.9, Inertia: 0.2, LeverArms: arms, Forces: forces,
//		Period: 0.05, PWMFrequency: 5, ValveTime: 0.007,
//	})
//	duty, err := ctrl.Compute(state, target)
//	sig := ctrl.Signal() // inertial, body and achievable force/torque
package control
