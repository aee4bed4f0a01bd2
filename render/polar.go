package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/wiless/phasedarray/antenna"
	"github.com/wiless/phasedarray/beam"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// polarRings are the normalized magnitudes drawn as reference circles
var polarRings = []float64{0.25, 0.5, 0.75, 1}

// Polar writes the normalized profile as a polar PNG with broadside pointing up
// and positive azimuth to the left
func Polar(profile beam.Profile, w io.Writer, size vg.Length) error {
	p := plot.New()
	p.Title.Text = "Beam profile"
	p.HideAxes()

	for _, r := range polarRings {
		ring, err := plotter.NewLine(arc(r, -180, 180, 361))
		if err != nil {
			return fmt.Errorf("render: ring: %w", err)
		}
		ring.LineStyle.Color = color.Gray{Y: 200}
		ring.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(ring)
	}

	norm := profile.Normalized()
	pts := make(plotter.XYs, len(norm))
	for i, m := range norm {
		pts[i] = polarPoint(profile.Angles[i], m)
	}
	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("render: profile: %w", err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = color.RGBA{R: 200, G: 40, B: 40, A: 255}
		p.Add(line)
	}

	p.X.Min, p.X.Max = -1.05, 1.05
	p.Y.Min, p.Y.Max = -1.05, 1.05
	return writePNG(p, w, size, size)
}

// polarPoint maps azimuth (from +y, positive toward -x) and radius to the plane
func polarPoint(azimuth, radius float64) plotter.XY {
	rad := antenna.Radian(azimuth)
	return plotter.XY{X: -radius * math.Sin(rad), Y: radius * math.Cos(rad)}
}

func arc(radius, start, end float64, points int) plotter.XYs {
	result := make(plotter.XYs, points)
	for i := range result {
		az := start + (end-start)*float64(i)/float64(points-1)
		result[i] = polarPoint(az, radius)
	}
	return result
}
