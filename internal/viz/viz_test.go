package viz

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestASCII(t *testing.T) {
	s := Series{Name: "chaser_x", Times: []float64{0, 1, 2, 3}, Values: []float64{0, math.NaN(), 1, 2}}
	out, err := ASCII(s, 40, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "chaser_x vs time") {
		t.Errorf("caption missing:\n%s", out)
	}

	_, err = ASCII(Series{Name: "empty", Values: []float64{math.NaN()}, Times: []float64{0}}, 40, 5)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "run.png")
	err := PNG(path, "run",
		Series{Name: "x", Times: []float64{0, 1, 2}, Values: []float64{0, 0.5, 0.7}},
		Series{Name: "y", Times: []float64{0, 1, 2}, Values: []float64{1, 1, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Error("output is not a png")
	}
	if err := PNG(path, "empty"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestMetricLines(t *testing.T) {
	out := MetricLines(map[string]float64{"b.effort": 2, "a.error": 1})
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "a.error") {
		t.Errorf("unexpected metric lines %q", out)
	}
}
