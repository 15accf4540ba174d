package control

import (
	"errors"
	"fmt"

	"github.com/san-kum/spotlab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUninitializedSignal = errors.New("control: body-frame signal requested before any control computation")
	ErrInvalidGeometry     = errors.New("control: invalid thruster geometry")
)

// Method selects how a body-frame request is mapped onto duty cycles.
type Method string

const (
	// MethodFast clips the pseudo-inverse solution.
	MethodFast Method = "fast"
	// MethodBounded refines the clipped pseudo-inverse with projected gradient
	// steps on the box-constrained least-squares problem.
	MethodBounded Method = "bounded"
)

const (
	MinDecay       = 0.8
	decayPerDuty   = 0.15
	boundedMaxIter = 100
	boundedTol     = 1e-9
	seedFloor      = 1e-6
	fallbackSeed   = 0.1
)

// thruster push directions in the body frame
var (
	dirX = [dynamo.NumThrusters]float64{-1, -1, 0, 0, 1, 1, 0, 0}
	dirY = [dynamo.NumThrusters]float64{0, 0, 1, 1, 0, 0, -1, -1}
)

// Allocation is the outcome of one allocation step.
type Allocation struct {
	Duty dynamo.Duty
	// DecayUsed scaled the geometry the duty cycles were solved against.
	DecayUsed float64
	// Decay is recomputed from Duty and feeds the next allocation.
	Decay float64
	// Achievable is the body-frame force/torque Duty produces at Decay.
	Achievable dynamo.Control
}

// Allocator maps body-frame force/torque onto eight thruster duty cycles.
//
// The decay factor is carried between calls: allocation k solves against the
// decay computed from allocation k-1's duty cycles.
type Allocator struct {
	method  Method
	minDuty float64

	h1    *mat.Dense // geometry at decay 1, 3x8
	pinv1 *mat.Dense // pseudo-inverse of h1, 8x3
	lip   float64    // gradient Lipschitz constant of |h1 x - u|² at decay 1

	decay float64
}

// NewAllocator builds an allocator. leverArms are in millimetres, forces in
// newtons. minDuty is the smallest duty a valve can honour.
func NewAllocator(leverArms, forces [dynamo.NumThrusters]float64, minDuty float64, method Method) (*Allocator, error) {
	if minDuty < 0 || minDuty >= 1 {
		return nil, fmt.Errorf("%w: min duty %g", ErrInvalidGeometry, minDuty)
	}
	for i, f := range forces {
		if !(f > 0) {
			return nil, fmt.Errorf("%w: thruster %d force %g", ErrInvalidGeometry, i, f)
		}
	}
	switch method {
	case "":
		method = MethodFast
	case MethodFast, MethodBounded:
	default:
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidGeometry, method)
	}

	h1 := mat.NewDense(controlDim, dynamo.NumThrusters, nil)
	for j := 0; j < dynamo.NumThrusters; j++ {
		half := forces[j] / 2
		h1.Set(0, j, dirX[j]*half)
		h1.Set(1, j, dirY[j]*half)
		h1.Set(2, j, leverArms[j]/1000*half)
	}

	pinv, smax, err := pseudoInverse(h1)
	if err != nil {
		return nil, err
	}

	return &Allocator{
		method:  method,
		minDuty: minDuty,
		h1:      h1,
		pinv1:   pinv,
		lip:     2 * smax * smax,
		decay:   1,
	}, nil
}

// MinDuty returns the minimum on-time fraction.
func (a *Allocator) MinDuty() float64 { return a.minDuty }

// Decay returns the decay factor the next allocation will use.
func (a *Allocator) Decay() float64 { return a.decay }

// Reset restores an undegraded decay factor.
func (a *Allocator) Reset() { a.decay = 1 }

// Geometry returns H(decay), mapping duty cycles to body force/torque.
func (a *Allocator) Geometry(decay float64) *mat.Dense {
	var h mat.Dense
	h.Scale(decay, a.h1)
	return &h
}

// Achievable returns H(decay)·duty.
func (a *Allocator) Achievable(duty dynamo.Duty, decay float64) dynamo.Control {
	var out dynamo.Control
	for i := 0; i < controlDim; i++ {
		for j, d := range duty {
			out[i] += a.h1.At(i, j) * decay * d
		}
	}
	return out
}

// Allocate solves for duty cycles and advances the decay state.
func (a *Allocator) Allocate(desired dynamo.Control) Allocation {
	used := a.decay

	var duty dynamo.Duty
	switch a.method {
	case MethodBounded:
		duty = a.solveBounded(desired, used)
	default:
		duty = a.solveFast(desired, used)
	}

	duty = duty.Clamped()
	for i, d := range duty {
		if d < a.minDuty {
			duty[i] = 0
		}
	}

	a.decay = DecayFactor(duty)
	return Allocation{
		Duty:       duty,
		DecayUsed:  used,
		Decay:      a.decay,
		Achievable: a.Achievable(duty, a.decay),
	}
}

// pinv(H(decay)) = pinv(H(1)) / decay
func (a *Allocator) solveFast(u dynamo.Control, decay float64) dynamo.Duty {
	var duty dynamo.Duty
	for j := range duty {
		s := 0.0
		for i := 0; i < controlDim; i++ {
			s += a.pinv1.At(j, i) * u[i]
		}
		duty[j] = s / decay
	}
	return duty
}

func (a *Allocator) solveBounded(u dynamo.Control, decay float64) dynamo.Duty {
	if u == (dynamo.Control{}) {
		return dynamo.Duty{}
	}
	x := a.solveFast(u, decay).Clamped()

	seeded := false
	for _, v := range x {
		if v >= seedFloor {
			seeded = true
			break
		}
	}
	if !seeded {
		for i := range x {
			x[i] = fallbackSeed
		}
	}

	step := 1 / (a.lip * decay * decay)
	for iter := 0; iter < boundedMaxIter; iter++ {
		r := a.Achievable(x, decay)
		for i := range r {
			r[i] -= u[i]
		}

		moved := 0.0
		for j := range x {
			g := 0.0
			for i := 0; i < controlDim; i++ {
				g += 2 * a.h1.At(i, j) * decay * r[i]
			}
			next := dynamo.Clamp(x[j]-step*g, 0, 1)
			if d := next - x[j]; d > moved {
				moved = d
			} else if -d > moved {
				moved = -d
			}
			x[j] = next
		}
		if moved < boundedTol {
			break
		}
	}
	return x
}

// DecayFactor models thrust loss from the mean duty of the active channels.
// It is 1 when no channel is active.
func DecayFactor(duty dynamo.Duty) float64 {
	n := duty.Active()
	if n == 0 {
		return 1
	}
	mean := duty.Sum() / float64(n)
	return max(MinDecay, 1-decayPerDuty*mean)
}

// MinDutyCycle converts a valve open time into a duty fraction at the PWM
// frequency.
func MinDutyCycle(valveTime, pwmFrequency float64) float64 {
	return valveTime * pwmFrequency
}

func pseudoInverse(h *mat.Dense) (*mat.Dense, float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDThin); !ok {
		return nil, 0, fmt.Errorf("%w: svd failed", ErrInvalidGeometry)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	r, c := h.Dims()
	smax := sv[0]
	tol := float64(max(r, c)) * smax * 2.220446049250313e-16

	inv := make([]float64, len(sv))
	for i, s := range sv {
		if s > tol {
			inv[i] = 1 / s
		}
	}

	// V Σ⁺ Uᵀ
	var vs mat.Dense
	vs.Mul(&v, mat.NewDiagDense(len(inv), inv))
	out := mat.NewDense(c, r, nil)
	out.Mul(&vs, u.T())
	return out, smax, nil
}
