// Package actuator turns duty-cycle commands into timed thruster pulses.
//
// A [PWM] owns one goroutine locked to its own OS thread. It asks the kernel
// for SCHED_FIFO priority and keeps running best effort when refused. Duty
// updates are double buffered: writers fill a pending vector under a lock and
// raise a dirty flag, the worker swaps it in only at period boundaries, so
// every pulse of a period comes from one consistent vector.
//
// Periods are scheduled against absolute deadlines (t0 + k·T). Waits sleep
// on a timer until the last millisecond and spin the residual.
package actuator
