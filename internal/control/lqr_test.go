package control

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/san-kum/spotlab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

func newTestLQR(t *testing.T) *LQR {
	t.Helper()
	l, err := NewLQR(16.9, 0.2, 0.05, DefaultWeights)
	if err != nil {
		t.Fatalf("NewLQR: %v", err)
	}
	return l
}

func TestNewLQRRejectsBadPlant(t *testing.T) {
	for _, p := range [][3]float64{{0, 1, 1}, {1, -1, 1}, {1, 1, 0}, {math.NaN(), 1, 1}} {
		if _, err := NewLQR(p[0], p[1], p[2], DefaultWeights); err == nil {
			t.Errorf("NewLQR(%v) accepted invalid plant", p)
		}
	}
}

func TestDiscretizeDoubleIntegrator(t *testing.T) {
	g := NewWithT(t)
	l := newTestLQR(t)
	ad, bd, err := l.Discrete()
	g.Expect(err).NotTo(HaveOccurred())

	dt := 0.05
	for i := 0; i < 3; i++ {
		g.Expect(ad.At(i, i)).To(BeNumerically("~", 1, 1e-12))
		g.Expect(ad.At(i, i+3)).To(BeNumerically("~", dt, 1e-12))
	}
	g.Expect(bd.At(0, 0)).To(BeNumerically("~", dt*dt/2/16.9, 1e-12))
	g.Expect(bd.At(3, 0)).To(BeNumerically("~", dt/16.9, 1e-12))
	g.Expect(bd.At(2, 2)).To(BeNumerically("~", dt*dt/2/0.2, 1e-12))
	g.Expect(bd.At(5, 2)).To(BeNumerically("~", dt/0.2, 1e-12))
}

func TestRiccatiResidual(t *testing.T) {
	l := newTestLQR(t)
	p, err := l.Riccati()
	if err != nil {
		t.Fatalf("Riccati: %v", err)
	}
	ad, bd, _ := l.Discrete()
	q := mat.NewDiagDense(stateDim, DefaultWeights.Q[:])
	r := mat.NewDiagDense(controlDim, DefaultWeights.R[:])

	// AᵀPA - AᵀPB(R+BᵀPB)⁻¹BᵀPA + Q - P
	var apa, bpa, s, sinv, corr, res mat.Dense
	apa.Product(ad.T(), p, ad)
	bpa.Product(bd.T(), p, ad)
	s.Product(bd.T(), p, bd)
	s.Add(&s, r)
	if err := sinv.Inverse(&s); err != nil {
		t.Fatalf("inverse: %v", err)
	}
	corr.Product(bpa.T(), &sinv, &bpa)
	res.Sub(&apa, &corr)
	res.Add(&res, q)
	res.Sub(&res, p)

	if n := mat.Norm(&res, 1) / mat.Norm(p, 1); n > 1e-9 {
		t.Errorf("relative DARE residual %g too large", n)
	}
	if !mat.EqualApprox(p, p.T(), 1e-9) {
		t.Error("riccati solution not symmetric")
	}
}

func TestGainDeterministic(t *testing.T) {
	k1, err := newTestLQR(t).Gain()
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := newTestLQR(t).Gain()
	if k1 != k2 {
		t.Errorf("gain differs between solves:\n%v\n%v", k1, k2)
	}

	l := newTestLQR(t)
	a, _ := l.Gain()
	if err := l.Solve(); err != nil {
		t.Fatal(err)
	}
	b, _ := l.Gain()
	if a != b {
		t.Error("re-solving changed the cached gain")
	}
}

func TestGainStructure(t *testing.T) {
	g := NewWithT(t)
	k, err := newTestLQR(t).Gain()
	g.Expect(err).NotTo(HaveOccurred())

	// axes decouple
	for i := 0; i < controlDim; i++ {
		for j := 0; j < stateDim; j++ {
			if j == i || j == i+3 {
				g.Expect(k[i][j]).To(BeNumerically(">", 0), "K[%d][%d]", i, j)
				continue
			}
			g.Expect(k[i][j]).To(BeNumerically("~", 0, 1e-9), "K[%d][%d]", i, j)
		}
	}
	// x and y share mass and weights
	g.Expect(k[0][0]).To(BeNumerically("~", k[1][1], 1e-12))
	g.Expect(k[0][3]).To(BeNumerically("~", k[1][4], 1e-12))
}

func TestComputePushesTowardTarget(t *testing.T) {
	l := newTestLQR(t)
	u, err := l.Compute(dynamo.State{X: 1, Y: -1}, dynamo.State{})
	if err != nil {
		t.Fatal(err)
	}
	if u[0] >= 0 || u[1] <= 0 {
		t.Errorf("force %v does not point back to the origin", u)
	}

	u, _ = l.Compute(dynamo.State{}, dynamo.State{})
	if u != (dynamo.Control{}) {
		t.Errorf("non-zero control %v at target", u)
	}
}

func TestComputeUsesShortestYaw(t *testing.T) {
	l := newTestLQR(t)
	k, _ := l.Gain()
	u, _ := l.Compute(dynamo.State{Yaw: 3.0}, dynamo.State{Yaw: -3.0})
	want := -k[2][2] * (6.0 - 2*math.Pi)
	if math.Abs(u[2]-want) > 1e-12 {
		t.Errorf("torque = %v, want %v", u[2], want)
	}
	if u[2] <= 0 {
		t.Errorf("torque %v should turn through +pi, the short way", u[2])
	}
}
