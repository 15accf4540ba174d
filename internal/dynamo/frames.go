package dynamo

import "math"

// WrapAngle maps an angle into (-π, π].
func WrapAngle(a float64) float64 {
	w := math.Mod(a+math.Pi, 2*math.Pi)
	if w <= 0 {
		w += 2 * math.Pi
	}
	return w - math.Pi
}

// ToBody rotates an inertial-frame vector into the body frame of a vehicle at yaw.
func ToBody(yaw float64, v [2]float64) [2]float64 {
	sin, cos := math.Sincos(yaw)
	return [2]float64{
		cos*v[0] + sin*v[1],
		-sin*v[0] + cos*v[1],
	}
}

// ToInertial is the inverse of ToBody.
func ToInertial(yaw float64, v [2]float64) [2]float64 {
	sin, cos := math.Sincos(yaw)
	return [2]float64{
		cos*v[0] - sin*v[1],
		sin*v[0] + cos*v[1],
	}
}

// ControlToBody rotates the force part of c; torque passes through.
func ControlToBody(yaw float64, c Control) Control {
	f := ToBody(yaw, c.Force())
	return Control{f[0], f[1], c[2]}
}

// ControlToInertial rotates the force part of c; torque passes through.
func ControlToInertial(yaw float64, c Control) Control {
	f := ToInertial(yaw, c.Force())
	return Control{f[0], f[1], c[2]}
}

// Clamp bounds x into [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
