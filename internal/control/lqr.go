package control

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/spotlab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrRiccatiDiverged = errors.New("control: riccati iteration did not converge")
	ErrSingularWeights = errors.New("control: singular weight or iteration matrix")
	ErrInvalidPlant    = errors.New("control: mass, inertia and period must be positive")
)

const (
	stateDim   = 6
	controlDim = 3

	doublingMaxIter = 100
	doublingTol     = 1e-13
)

// Weights are the diagonal entries of the LQR state and input cost matrices.
type Weights struct {
	Q [stateDim]float64
	R [controlDim]float64
}

// DefaultWeights penalise translation and velocity heavily and heading lightly.
var DefaultWeights = Weights{
	Q: [stateDim]float64{1, 1, 0.05, 10, 10, 1},
	R: [controlDim]float64{6, 6, 6},
}

// LQR is a discrete-time linear quadratic regulator for a planar double
// integrator driven by inertial force and torque.
type LQR struct {
	Mass    float64
	Inertia float64
	Period  float64
	Weights Weights

	once sync.Once
	k    *mat.Dense
	p    *mat.Dense
	ad   *mat.Dense
	bd   *mat.Dense
	err  error
}

func NewLQR(mass, inertia, period float64, w Weights) (*LQR, error) {
	if !(mass > 0) || !(inertia > 0) || !(period > 0) {
		return nil, fmt.Errorf("%w: mass=%g inertia=%g period=%g", ErrInvalidPlant, mass, inertia, period)
	}
	return &LQR{Mass: mass, Inertia: inertia, Period: period, Weights: w}, nil
}

// Plant returns the continuous state and input matrices.
func (l *LQR) Plant() (a, b *mat.Dense) {
	a = mat.NewDense(stateDim, stateDim, nil)
	a.Set(0, 3, 1)
	a.Set(1, 4, 1)
	a.Set(2, 5, 1)

	b = mat.NewDense(stateDim, controlDim, nil)
	b.Set(3, 0, 1/l.Mass)
	b.Set(4, 1, 1/l.Mass)
	b.Set(5, 2, 1/l.Inertia)
	return a, b
}

// Solve computes and caches the gain. Later calls return the cached result.
func (l *LQR) Solve() error {
	l.once.Do(func() {
		a, b := l.Plant()
		l.ad, l.bd = discretize(a, b, l.Period)

		q := mat.NewDiagDense(stateDim, l.Weights.Q[:])
		r := mat.NewDiagDense(controlDim, l.Weights.R[:])

		p, err := solveDARE(l.ad, l.bd, mat.DenseCopyOf(q), mat.DenseCopyOf(r))
		if err != nil {
			l.err = err
			return
		}
		l.p = p

		var rinv mat.Dense
		if err := rinv.Inverse(r); err != nil {
			l.err = fmt.Errorf("%w: %v", ErrSingularWeights, err)
			return
		}
		k := mat.NewDense(controlDim, stateDim, nil)
		k.Product(&rinv, l.bd.T(), p)
		l.k = k
	})
	return l.err
}

// Gain returns K with u = -K e.
func (l *LQR) Gain() ([controlDim][stateDim]float64, error) {
	var out [controlDim][stateDim]float64
	if err := l.Solve(); err != nil {
		return out, err
	}
	for i := range out {
		for j := range out[i] {
			out[i][j] = l.k.At(i, j)
		}
	}
	return out, nil
}

// Riccati returns the stabilising DARE solution.
func (l *LQR) Riccati() (*mat.Dense, error) {
	if err := l.Solve(); err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(l.p), nil
}

// Discrete returns the zero-order-hold discretisation used by the solve.
func (l *LQR) Discrete() (ad, bd *mat.Dense, err error) {
	if err := l.Solve(); err != nil {
		return nil, nil, err
	}
	return mat.DenseCopyOf(l.ad), mat.DenseCopyOf(l.bd), nil
}

// Compute returns the inertial force/torque -K(state - target).
func (l *LQR) Compute(state, target dynamo.State) (dynamo.Control, error) {
	if err := l.Solve(); err != nil {
		return dynamo.Control{}, err
	}
	e := state.Error(target)
	var u dynamo.Control
	for i := range u {
		for j := range e {
			u[i] -= l.k.At(i, j) * e[j]
		}
	}
	return u, nil
}

// discretize applies a zero-order hold through the exponential of the
// augmented matrix [[A B] [0 0]]·dt.
func discretize(a, b *mat.Dense, dt float64) (ad, bd *mat.Dense) {
	n, _ := a.Dims()
	_, m := b.Dims()

	aug := mat.NewDense(n+m, n+m, nil)
	aug.Slice(0, n, 0, n).(*mat.Dense).Scale(dt, a)
	aug.Slice(0, n, n, n+m).(*mat.Dense).Scale(dt, b)

	var e mat.Dense
	e.Exp(aug)
	return mat.DenseCopyOf(e.Slice(0, n, 0, n)), mat.DenseCopyOf(e.Slice(0, n, n, n+m))
}

// solveDARE solves AᵀPA - P - AᵀPB(R+BᵀPB)⁻¹BᵀPA + Q = 0 with the structured
// doubling algorithm.
func solveDARE(a, b, q, r *mat.Dense) (*mat.Dense, error) {
	n, _ := a.Dims()

	var rinv mat.Dense
	if err := rinv.Inverse(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularWeights, err)
	}

	g := mat.NewDense(n, n, nil)
	g.Product(b, &rinv, b.T())

	ak := mat.DenseCopyOf(a)
	gk := g
	hk := mat.DenseCopyOf(q)
	eye := identity(n)

	for iter := 0; iter < doublingMaxIter; iter++ {
		w := mat.NewDense(n, n, nil)
		w.Mul(gk, hk)
		w.Add(w, eye)

		var wa, wg mat.Dense
		if err := wa.Solve(w, ak); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSingularWeights, err)
		}
		if err := wg.Solve(w, gk); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSingularWeights, err)
		}

		aNext := mat.NewDense(n, n, nil)
		aNext.Mul(ak, &wa)

		gNext := mat.NewDense(n, n, nil)
		gNext.Product(ak, &wg, ak.T())
		gNext.Add(gk, gNext)

		hNext := mat.NewDense(n, n, nil)
		hNext.Product(ak.T(), hk, &wa)
		hNext.Add(hk, hNext)

		var diff mat.Dense
		diff.Sub(hNext, hk)
		ak, gk, hk = aNext, gNext, hNext

		if mat.Norm(&diff, 1) <= doublingTol*mat.Norm(hk, 1) {
			return symmetrize(hk), nil
		}
		if math.IsNaN(mat.Norm(hk, 1)) {
			break
		}
	}
	return nil, ErrRiccatiDiverged
}

func identity(n int) *mat.Dense {
	eye := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		eye.Set(i, i, 1)
	}
	return eye
}

func symmetrize(p *mat.Dense) *mat.Dense {
	n, _ := p.Dims()
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out.Set(i, j, 0.5*(p.At(i, j)+p.At(j, i)))
		}
	}
	return out
}
