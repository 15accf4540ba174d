package dynamo

import (
	"math"
	"testing"
)

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"small positive", 0.5, 0.5},
		{"pi stays pi", math.Pi, math.Pi},
		{"minus pi maps to pi", -math.Pi, math.Pi},
		{"just over pi", math.Pi + 0.1, -math.Pi + 0.1},
		{"two turns", 4*math.Pi + 0.2, 0.2},
		{"negative turns", -4*math.Pi - 0.2, -0.2},
		{"six radians", 6.0, 6.0 - 2*math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapAngle(tt.in)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("WrapAngle(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got <= -math.Pi || got > math.Pi {
				t.Errorf("WrapAngle(%v) = %v outside (-pi, pi]", tt.in, got)
			}
		})
	}
}

func TestStateErrorShortestYaw(t *testing.T) {
	s := State{Yaw: 3.0}
	target := State{Yaw: -3.0}
	e := s.Error(target)
	if math.Abs(e[2]-(6.0-2*math.Pi)) > 1e-12 {
		t.Errorf("yaw error = %v, want about -0.283", e[2])
	}
	if math.Abs(e[2]+0.283) > 1e-3 {
		t.Errorf("yaw error = %v, want about -0.283", e[2])
	}
}

func TestStateErrorPlainDifferences(t *testing.T) {
	s := State{X: 1, Y: 2, Yaw: 0.1, VX: 0.3, VY: -0.4, YawRate: 0.5}
	target := State{X: 0.5, Y: 3, Yaw: 0.2, VX: 0.1, VY: 0.1, YawRate: -0.5}
	want := [6]float64{0.5, -1, -0.1, 0.2, -0.5, 1}
	got := s.Error(target)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("error[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	for _, yaw := range []float64{0, 0.3, math.Pi / 2, -2.5, math.Pi} {
		v := [2]float64{1.5, -0.7}
		back := ToInertial(yaw, ToBody(yaw, v))
		if math.Abs(back[0]-v[0]) > 1e-12 || math.Abs(back[1]-v[1]) > 1e-12 {
			t.Errorf("yaw=%v: round trip %v -> %v", yaw, v, back)
		}
	}
}

func TestToBodyQuarterTurn(t *testing.T) {
	// vehicle facing +y: an inertial +y push is a body +x push
	b := ToBody(math.Pi/2, [2]float64{0, 1})
	if math.Abs(b[0]-1) > 1e-12 || math.Abs(b[1]) > 1e-12 {
		t.Errorf("ToBody = %v, want [1 0]", b)
	}
}

func TestControlRotationKeepsTorque(t *testing.T) {
	c := Control{1, 2, 0.3}
	if got := ControlToBody(1.1, c)[2]; got != 0.3 {
		t.Errorf("torque changed to %v", got)
	}
	if got := ControlToInertial(-0.4, c)[2]; got != 0.3 {
		t.Errorf("torque changed to %v", got)
	}
}

func TestDutyHelpers(t *testing.T) {
	d := Duty{0, 0.5, 1.5, -0.2, 0.25, 0, 0, 0}
	if n := d.Active(); n != 3 {
		t.Errorf("Active = %d, want 3", n)
	}
	c := d.Clamped()
	if c[2] != 1 || c[3] != 0 {
		t.Errorf("Clamped = %v", c)
	}
	if math.Abs(c.Sum()-1.75) > 1e-12 {
		t.Errorf("Sum = %v", c.Sum())
	}
}

func TestStateIsValid(t *testing.T) {
	if !(State{X: 1}).IsValid() {
		t.Error("finite state reported invalid")
	}
	if (State{VY: math.NaN()}).IsValid() {
		t.Error("NaN state reported valid")
	}
	if (State{Yaw: math.Inf(1)}).IsValid() {
		t.Error("Inf state reported valid")
	}
}
