// Package sensor turns raw motion-capture and inertial samples into state
// snapshots.
//
// Both pipelines run on their own goroutine and publish the latest value
// under a mutex. Readers get copies, so a snapshot is never observed half
// written. A pipeline that has not heard from its source yet reports ok=false
// from its getter instead of a zero state.
package sensor
