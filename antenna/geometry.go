package antenna

import (
	"fmt"
	"math"
	"strings"

	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/floats"
)

const (
	// PropagationSpeed is the free space propagation speed in m/s
	PropagationSpeed float64 = 3.0e8

	// CurvedBaseline is the forward (+y) bias of a curved array so it sits ahead of
	// the linear baseline, in metres
	CurvedBaseline float64 = 0.2
)

type ArrayType int

const (
	LinearPhaseArray ArrayType = iota
	CurvedPhaseArray
)

var ArrayTypes = [...]string{
	"linear",
	"curved",
}

func (a ArrayType) String() string {
	if a < 0 || int(a) >= len(ArrayTypes) {
		return "Unknown-ArrayType"
	}
	return ArrayTypes[a]
}

// ParseArrayType maps a geometry name ("linear", "curved" or "curve") to its ArrayType.
// An empty name is linear.
func ParseArrayType(name string) (ArrayType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear":
		return LinearPhaseArray, nil
	case "curved", "curve":
		return CurvedPhaseArray, nil
	default:
		return LinearPhaseArray, fmt.Errorf("%w: %q", ErrUnknownArrayType, name)
	}
}

// GetLamda returns the wavelength in metres of a carrier at freqHz
func GetLamda(freqHz float64) float64 {
	return PropagationSpeed / freqHz
}

// Wavenumber returns 2*pi/lamda
func Wavenumber(lamda float64) float64 {
	return 2 * math.Pi / lamda
}

// LocalLayout drops N elements spaced evenly along x, centred on the array origin.
// Curved arrays bend forward as CurvedBaseline + curvature*x^2; a zero curvature
// keeps them on the linear baseline. The layout is therefore not continuous at
// curvature 0: any positive curvature, however small, shifts every element
// forward by CurvedBaseline.
func LocalLayout(N int, spacing float64, geometry ArrayType, curvature float64) vlib.VectorC {
	result := vlib.NewVectorC(N)
	if N == 0 {
		return result
	}
	xloc := make([]float64, N)
	if N > 1 {
		span := float64(N-1) * spacing
		floats.Span(xloc, -span/2.0, span/2.0)
	}
	bend := geometry == CurvedPhaseArray && curvature > 0
	for i, x := range xloc {
		var yloc float64
		if bend {
			yloc = CurvedBaseline + curvature*x*x
		}
		result[i] = complex(x, yloc)
	}
	return result
}

func checkFrequency(freqHz float64) error {
	if !(freqHz > 0) || math.IsInf(freqHz, 0) {
		return fmt.Errorf("%w: %v Hz", ErrInvalidFrequency, freqHz)
	}
	return nil
}

func checkSpacing(factor float64) error {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpacing, factor)
	}
	return nil
}

func checkGeometry(geometry ArrayType, curvature float64) error {
	if geometry < 0 || int(geometry) >= len(ArrayTypes) {
		return fmt.Errorf("%w: %d", ErrUnknownArrayType, int(geometry))
	}
	if curvature < 0 || math.IsNaN(curvature) || math.IsInf(curvature, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidCurvature, curvature)
	}
	return nil
}
