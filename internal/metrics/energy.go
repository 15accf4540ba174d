package metrics

// Energy is the mean kinetic energy of the vehicle, translational plus
// rotational.
type Energy struct {
	name        string
	mass        float64
	inertia     float64
	samples     int
	totalEnergy float64
}

func NewEnergy(mass, inertia float64) *Energy {
	return &Energy{
		name:    "kinetic_energy",
		mass:    mass,
		inertia: inertia,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s Sample) {
	v := s.State
	ke := 0.5*e.mass*(v.VX*v.VX+v.VY*v.VY) + 0.5*e.inertia*v.YawRate*v.YawRate
	e.totalEnergy += ke
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}
