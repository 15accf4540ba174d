// Package physics provides the dynamics surrogate used when no tracker is
// connected.
//
// [Spacecraft] integrates inertial force and torque into a planar rigid-body
// state:
//
//	sc, _ := physics.NewSpacecraft(mass, inertia, start, nil)
//	sc.ApplyControl(signal.Achievable)
//	sc.Update(period)
//	state := sc.State()
package physics
