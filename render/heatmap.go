// Package render draws simulation results: a heatmap of the total field, the
// polar beam profile and a Matlab script with the raw vectors
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/wiless/phasedarray"
	"github.com/wiless/phasedarray/field"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// HeatLevels is the number of palette colours of the heatmap
const HeatLevels = 64

// LogScale compresses |v| with log1p and normalizes the result onto [0,1]. An
// all-zero field stays zero.
func LogScale(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	result := mat.NewDense(r, c, nil)
	result.Apply(func(_, _ int, v float64) float64 {
		return math.Log1p(math.Abs(v))
	}, m)
	field.Sanitize(result)
	if peak := mat.Max(result); peak > 1e-12 {
		result.Scale(1/peak, result)
	}
	return result
}

// gridXYZ lets plotter.HeatMap read a field sampled on a grid
type gridXYZ struct {
	grid *field.Grid
	z    *mat.Dense
}

func (g gridXYZ) Dims() (c, r int) {
	r, c = g.z.Dims()
	return c, r
}

func (g gridXYZ) Z(c, r int) float64 { return g.z.At(r, c) }
func (g gridXYZ) X(c int) float64    { return g.grid.X.At(0, c) }
func (g gridXYZ) Y(r int) float64    { return g.grid.Y.At(r, 0) }

// Heatmap writes the log scaled total field of sys as a PNG, with every element
// marked. Simulate sys first.
func Heatmap(sys *phasedarray.BeamSystem, w io.Writer, width, height vg.Length) error {
	p := plot.New()
	p.Title.Text = "Total field"
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	grid := sys.Grid()
	hm := plotter.NewHeatMap(gridXYZ{grid: grid, z: LogScale(sys.TotalField())}, palette.Heat(HeatLevels, 1))
	hm.Min, hm.Max = 0, 1
	p.Add(hm)

	var pts plotter.XYs
	for _, arr := range sys.Arrays() {
		for _, e := range arr.GlobalPositions() {
			pts = append(pts, plotter.XY{X: real(e), Y: imag(e)})
		}
	}
	if len(pts) > 0 {
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("render: element markers: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Color = color.White
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
	}

	p.X.Min, p.X.Max = grid.MinX, grid.MaxX
	p.Y.Min, p.Y.Max = grid.MinY, grid.MaxY
	return writePNG(p, w, width, height)
}

func writePNG(p *plot.Plot, w io.Writer, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("render: write png: %w", err)
	}
	return nil
}
