// Package dynamo provides the core value types shared by the control stack.
//
// The package defines the fundamental planar quantities exchanged between the
// sensing, control and actuation layers:
//
//   - [State]: planar rigid-body state {x, y, yaw, vx, vy, yaw rate}
//   - [Control]: force/torque triple {Fx, Fy, Tz}
//   - [Signal]: one tick of control output in inertial, body and achievable form
//   - [Duty]: eight per-thruster duty cycles in [0, 1]
//   - [Channels]: eight physical ON/OFF thruster line states
//
// # Ownership
//
// All types are plain values. Producers hand out copies, never references, so a
// consumer can never observe a half-written update.
package dynamo
