package integrators

// RK4 is the classic fourth-order Runge-Kutta method.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(f Derivative, x Vector, t, dt float64) Vector {
	var scratch Vector

	k1 := f(x, t)

	for i := range x {
		scratch[i] = x[i] + dt*0.5*k1[i]
	}
	k2 := f(scratch, t+dt*0.5)

	for i := range x {
		scratch[i] = x[i] + dt*0.5*k2[i]
	}
	k3 := f(scratch, t+dt*0.5)

	for i := range x {
		scratch[i] = x[i] + dt*k3[i]
	}
	k4 := f(scratch, t+dt)

	var result Vector
	dt6 := dt / 6.0
	for i := range x {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return result
}
