package deployment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wiless/phasedarray/antenna"
	"github.com/wiless/vlib"
)

type DropType int

const (
	Linear DropType = iota
	Circular
	Hexagonal
)

var DropTypes = [...]string{
	"linear",
	"circular",
	"hexagonal",
}

func (d DropType) String() string {
	if d < 0 || int(d) >= len(DropTypes) {
		return "Unknown-DropType"
	}
	return DropTypes[d]
}

var ErrUnknownDropType = errors.New("deployment: unknown drop type")

func ParseDropType(name string) (DropType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear", "rectangular":
		return Linear, nil
	case "circular", "ring":
		return Circular, nil
	case "hexagonal", "hex":
		return Hexagonal, nil
	default:
		return Linear, fmt.Errorf("%w: %q", ErrUnknownDropType, name)
	}
}

// Drop places Count copies of an array around the record's (x,y). Linear drops
// line them up Distance apart along the Rotation direction. Circular drops put
// them evenly on a ring of radius Distance starting at Rotation, hexagonal drops
// on the first Count vertices (at most 6) of a hexagon of that radius.
type Drop struct {
	Type     string  `mapstructure:"type" json:"type" yaml:"type"`
	Count    int     `mapstructure:"count" json:"count" yaml:"count"`
	Distance float64 `mapstructure:"distance" json:"distance" yaml:"distance"`
	Rotation float64 `mapstructure:"rotation" json:"rotation" yaml:"rotation"` // degree
}

// Locations returns the array centres of the drop
func (d Drop) Locations(centre complex128) (vlib.VectorC, error) {
	if d.Count < 1 {
		return nil, fmt.Errorf("%w: drop count %d", ErrInvalidRecord, d.Count)
	}
	dtype, err := ParseDropType(d.Type)
	if err != nil {
		return nil, err
	}
	switch dtype {
	case Circular:
		return RingPoints(centre, d.Distance, d.Rotation, d.Count), nil
	case Hexagonal:
		if d.Count > 6 {
			return nil, fmt.Errorf("%w: hexagonal drop of %d, at most 6", ErrInvalidRecord, d.Count)
		}
		return HexVertices(centre, d.Distance, d.Rotation)[:d.Count], nil
	default:
		return LinePoints(centre, d.Distance, d.Rotation, d.Count), nil
	}
}

// LinePoints puts N points pitch apart on a line through centre, rotated by angle degrees
func LinePoints(centre complex128, pitch, angle float64, N int) vlib.VectorC {
	result := vlib.NewVectorC(N)
	pos := 0.0
	for i := 0; i < N; i++ {
		result[i] = complex(pos, 0)
		pos += pitch
	}
	result = result.ScaleC(ejtheta(angle))
	mean := -vlib.MeanC(result) + centre
	return result.AddC(mean)
}

// RingPoints puts N points evenly on a circle of radius around centre
func RingPoints(centre complex128, radius, angle float64, N int) vlib.VectorC {
	result := vlib.NewVectorC(N)
	for i := 0; i < N; i++ {
		result[i] = ejtheta(360.0*float64(i)/float64(N)+angle)*complex(radius, 0) + centre
	}
	return result
}

// HexVertices returns the 6 vertices of a hexagon of circumradius length,
// the first one rotated by degree from +x
func HexVertices(centre complex128, length float64, degree float64) vlib.VectorC {
	result := vlib.NewVectorC(6)
	for i := 0; i < 6; i++ {
		result[i] = ejtheta(60.0*float64(i)+degree)*complex(length, 0) + centre
	}
	return result
}

// counter clockwise unit phasor
func ejtheta(degree float64) complex128 {
	return antenna.GetEJtheta(-degree)
}

// Expand replaces a dropped record by one plain record per location
func (r ArrayRecord) Expand() ([]ArrayRecord, error) {
	if r.Drop == nil {
		return []ArrayRecord{r}, nil
	}
	locations, err := r.Drop.Locations(complex(r.X, r.Y))
	if err != nil {
		return nil, err
	}
	result := make([]ArrayRecord, len(locations))
	for i, loc := range locations {
		rec := r
		rec.Drop = nil
		rec.X, rec.Y = real(loc), imag(loc)
		result[i] = rec
	}
	return result, nil
}
