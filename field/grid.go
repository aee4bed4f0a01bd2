package field

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidGrid   = errors.New("field: invalid grid")
	ErrShapeMismatch = errors.New("field: grid coordinate shapes differ")
)

// Default simulation window, in metres
const (
	DefaultResolution = 300
	DefaultMinX       = -25.0
	DefaultMaxX       = 25.0
	DefaultMinY       = 0.0
	DefaultMaxY       = 40.0
)

// Grid is a square sampling of the rectangle [MinX,MaxX]x[MinY,MaxY]. Rows run
// along y and columns along x, so X.At(r, c) is the c-th x sample and Y.At(r, c)
// the r-th y sample.
type Grid struct {
	MinX, MaxX float64
	MinY, MaxY float64
	Resolution int

	X, Y *mat.Dense
}

func NewGrid(minX, maxX, minY, maxY float64, resolution int) (*Grid, error) {
	if resolution < 2 {
		return nil, fmt.Errorf("%w: resolution %d, need at least 2", ErrInvalidGrid, resolution)
	}
	for _, v := range []float64{minX, maxX, minY, maxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite bound %v", ErrInvalidGrid, v)
		}
	}
	if !(minX < maxX) || !(minY < maxY) {
		return nil, fmt.Errorf("%w: empty window x[%v,%v] y[%v,%v]", ErrInvalidGrid, minX, maxX, minY, maxY)
	}

	xs := make([]float64, resolution)
	ys := make([]float64, resolution)
	floats.Span(xs, minX, maxX)
	floats.Span(ys, minY, maxY)

	g := &Grid{
		MinX: minX, MaxX: maxX,
		MinY: minY, MaxY: maxY,
		Resolution: resolution,
		X:          mat.NewDense(resolution, resolution, nil),
		Y:          mat.NewDense(resolution, resolution, nil),
	}
	for r := 0; r < resolution; r++ {
		g.X.SetRow(r, xs)
		row := g.Y.RawRowView(r)
		for c := range row {
			row[c] = ys[r]
		}
	}
	return g, nil
}

// DefaultGrid is the 300x300 window x[-25,25] y[0,40]
func DefaultGrid() *Grid {
	g, err := NewGrid(DefaultMinX, DefaultMaxX, DefaultMinY, DefaultMaxY, DefaultResolution)
	if err != nil {
		log.Panicln("field: default grid", err)
	}
	return g
}

func (g *Grid) Dims() (rows, cols int) {
	return g.X.Dims()
}

func (g *Grid) Cells() int {
	r, c := g.Dims()
	return r * c
}

// Zeros returns a zero field shaped like the grid
func (g *Grid) Zeros() *mat.Dense {
	r, c := g.Dims()
	return mat.NewDense(r, c, nil)
}

// Locate returns the cell nearest to the world point (x,y), clamped to the grid
func (g *Grid) Locate(x, y float64) (row, col int) {
	n := float64(g.Resolution - 1)
	col = int(math.Round((x - g.MinX) / (g.MaxX - g.MinX) * n))
	row = int(math.Round((y - g.MinY) / (g.MaxY - g.MinY) * n))
	return clamp(row, g.Resolution-1), clamp(col, g.Resolution-1)
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// Sanitize replaces NaN and infinite cells by 0 and returns how many it replaced
func Sanitize(m *mat.Dense) int {
	count := 0
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[j] = 0
				count++
			}
		}
	}
	return count
}
