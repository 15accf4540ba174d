package viz

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNoData = errors.New("viz: no data to plot")

// Series is one named column against time.
type Series struct {
	Name   string
	Times  []float64
	Values []float64
}

// finite drops NaN samples, which mark ticks where a platform had no data.
func (s Series) finite() (ts, vs []float64) {
	for i, v := range s.Values {
		if math.IsNaN(v) || i >= len(s.Times) {
			continue
		}
		ts = append(ts, s.Times[i])
		vs = append(vs, v)
	}
	return ts, vs
}

// ASCII renders a series as a terminal chart.
func ASCII(s Series, width, height int) (string, error) {
	_, vs := s.finite()
	if len(vs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoData, s.Name)
	}
	return asciigraph.Plot(vs,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(s.Name+" vs time"),
	), nil
}

// PNG writes one line plot per series into a single figure at filename.
func PNG(filename, title string, series ...Series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	lines := 0
	for i, s := range series {
		ts, vs := s.finite()
		if len(vs) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(vs))
		for j := range vs {
			pts[j].X = ts[j]
			pts[j].Y = vs[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = seriesColor(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
		lines++
	}
	if lines == 0 {
		return ErrNoData
	}
	return savePNG(p, 8, 5, filename)
}

func savePNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}
