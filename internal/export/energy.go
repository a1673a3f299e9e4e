// Package export renders recorded runs to image files: energy plots as PNG
// and scene frames as SVG.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/RazorBest/Pendulum-Sandbox/internal/metrics"
)

var ErrNoSamples = errors.New("export: no energy samples")

// Default image size in inches.
const (
	DefaultWidth  = 8.0
	DefaultHeight = 5.0
	DefaultDPI    = 96
)

var (
	kineticColor   = color.RGBA{R: 0x00, G: 0xaa, B: 0xff, A: 0xff}
	potentialColor = color.RGBA{R: 0xff, G: 0x88, B: 0x00, A: 0xff}
	totalColor     = color.RGBA{R: 0x22, G: 0xcc, B: 0x44, A: 0xff}
)

// EnergyPlot builds a line plot of kinetic, potential and total energy
// against the tick number, with time on the x axis when dt is positive.
func EnergyPlot(title string, samples []metrics.Sample, dt float64) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "tick"
	if dt > 0 {
		p.X.Label.Text = "time (s)"
	}
	p.Y.Label.Text = "energy (J)"
	p.Add(plotter.NewGrid())

	series := []struct {
		name string
		c    color.Color
		f    func(metrics.Sample) float64
	}{
		{"kinetic", kineticColor, func(s metrics.Sample) float64 { return s.Kinetic }},
		{"potential", potentialColor, func(s metrics.Sample) float64 { return s.Potential }},
		{"total", totalColor, metrics.Sample.Total},
	}

	for _, s := range series {
		pts := make(plotter.XYs, len(samples))
		for i, smp := range samples {
			pts[i].X = float64(smp.Tick)
			if dt > 0 {
				pts[i].X *= dt
			}
			pts[i].Y = s.f(smp)
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s series: %w", s.name, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = s.c
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true

	return p, nil
}

// WriteEnergyPNG draws the energy plot as a PNG of widthIn x heightIn inches.
func WriteEnergyPNG(w io.Writer, title string, samples []metrics.Sample, dt, widthIn, heightIn float64) error {
	p, err := EnergyPlot(title, samples, dt)
	if err != nil {
		return err
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(DefaultDPI),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return bw.Flush()
}

// SaveEnergyPNG writes the energy plot to path, creating parent directories.
func SaveEnergyPNG(path, title string, samples []metrics.Sample, dt float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteEnergyPNG(f, title, samples, dt, DefaultWidth, DefaultHeight); err != nil {
		return err
	}
	return f.Close()
}
