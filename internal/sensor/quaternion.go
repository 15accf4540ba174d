package sensor

import "math"

// Yaw extracts the heading of a unit quaternion (w, x, y, z).
func Yaw(q0, q1, q2, q3 float64) float64 {
	return math.Atan2(2*(q0*q3+q1*q2), 1-2*(q2*q2+q3*q3))
}

// RollPitch estimates tilt from a gravity-dominated accelerometer vector.
// A zero vector yields (0, 0).
func RollPitch(ax, ay, az float64) (roll, pitch float64) {
	n := math.Sqrt(ax*ax + ay*ay + az*az)
	if n == 0 {
		return 0, 0
	}
	ax, ay, az = ax/n, ay/n, az/n
	roll = math.Atan2(ay, az)
	pitch = math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
	return roll, pitch
}
