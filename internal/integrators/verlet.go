package integrators

// Verlet is velocity Verlet. Rates at the new position are averaged with the
// old acceleration.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(f Derivative, x Vector, t, dt float64) Vector {
	var result Vector
	dx := f(x, t)
	dt2 := dt * dt

	for i := 0; i < half; i++ {
		result[i] = x[i] + x[half+i]*dt + 0.5*dx[half+i]*dt2
	}

	var mid Vector
	for i := 0; i < half; i++ {
		mid[i] = result[i]
		mid[half+i] = x[half+i]
	}
	dxNew := f(mid, t+dt)

	for i := 0; i < half; i++ {
		result[half+i] = x[half+i] + 0.5*(dx[half+i]+dxNew[half+i])*dt
	}
	return result
}
