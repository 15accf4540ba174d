package integrators

import "testing"

func benchmarkStep(b *testing.B, integ Integrator) {
	x := Vector{1, 0, 0, 0, 1, 0}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integ.Step(oscillator, x, 0, 0.01)
	}
}

func BenchmarkEuler(b *testing.B)             { benchmarkStep(b, NewEuler()) }
func BenchmarkSemiImplicitEuler(b *testing.B) { benchmarkStep(b, NewSemiImplicitEuler()) }
func BenchmarkVerlet(b *testing.B)            { benchmarkStep(b, NewVerlet()) }
func BenchmarkRK4(b *testing.B)               { benchmarkStep(b, NewRK4()) }
