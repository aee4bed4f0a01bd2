// Package beam evaluates the far-field array factor of a phased array over azimuth
package beam

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/phasedarray/antenna"
	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/floats"
)

const (
	// NormEpsilon is the smallest peak magnitude Normalized divides by
	NormEpsilon = 1e-12
	// FloorDb bounds Db from below so nulls stay plottable
	FloorDb = -100.0

	DefaultStart  = -90.0
	DefaultEnd    = 90.0
	DefaultPoints = 361
)

var (
	ErrInvalidPointCount = errors.New("beam: point count must be at least 1")
	// DegenerateNormalization is logged, not returned: a null profile normalizes to zeros
	DegenerateNormalization = errors.New("beam: profile maximum below normalization epsilon")
)

// Profile is an array's magnitude response sampled over azimuth. Azimuth is in
// degrees from broadside (+y), positive toward -x.
type Profile struct {
	Angles     vlib.VectorF
	Magnitudes vlib.VectorF
}

// NewProfile samples points azimuths evenly over [start,end] and sums the
// planar-wave phasors of every element. Local positions are used, so the profile
// does not depend on where the array is placed.
func NewProfile(arr *antenna.PhasedArray, start, end float64, points int) (Profile, error) {
	if points < 1 {
		return Profile{}, fmt.Errorf("%w: %d", ErrInvalidPointCount, points)
	}
	angles := vlib.NewVectorF(points)
	if points == 1 {
		angles[0] = start
	} else {
		floats.Span(angles, start, end)
	}

	pos := arr.LocalPositions()
	r := vlib.NewVectorF(len(pos))
	theta := vlib.NewVectorF(len(pos))
	for i, p := range pos {
		r[i] = cmplx.Abs(p)
		theta[i] = cmplx.Phase(p)
	}
	k := arr.Wavenumbers()
	steer := arr.SteeringPhases()

	result := Profile{Angles: angles, Magnitudes: vlib.NewVectorF(points)}
	for a, az := range angles {
		phi := antenna.Radian(az + 90)
		var sum complex128
		for i := range pos {
			phase := -k[i]*r[i]*math.Cos(phi-theta[i]) + steer[i]
			sum += cmplx.Exp(complex(0, phase))
		}
		result.Magnitudes[a] = sanitize(cmplx.Abs(sum))
	}
	return result, nil
}

// DefaultProfile covers the forward half plane -90..90 in half degree steps
func DefaultProfile(arr *antenna.PhasedArray) Profile {
	p, err := NewProfile(arr, DefaultStart, DefaultEnd, DefaultPoints)
	if err != nil {
		log.Panicln("beam: default profile", err)
	}
	return p
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (p Profile) Len() int {
	return len(p.Angles)
}

// Peak returns the first azimuth holding the maximum magnitude
func (p Profile) Peak() (angle, magnitude float64) {
	if p.Len() == 0 {
		return math.NaN(), 0
	}
	indx := floats.MaxIdx(p.Magnitudes)
	return p.Angles[indx], p.Magnitudes[indx]
}

// Normalized scales the magnitudes so the peak is 1. A profile whose peak is
// below NormEpsilon normalizes to all zeros.
func (p Profile) Normalized() vlib.VectorF {
	result := vlib.NewVectorF(len(p.Magnitudes))
	if len(result) == 0 {
		return result
	}
	peak := vlib.Max(p.Magnitudes)
	if peak < NormEpsilon {
		log.WithField("component", "beam").Debug(DegenerateNormalization)
		return result
	}
	for i, m := range p.Magnitudes {
		result[i] = m / peak
	}
	return result
}

// Db returns the normalized magnitudes as 20log10, floored at FloorDb
func (p Profile) Db() vlib.VectorF {
	norm := p.Normalized()
	result := vlib.NewVectorF(len(norm))
	for i, m := range norm {
		result[i] = math.Max(vlib.Db(m*m), FloorDb)
		if math.IsNaN(result[i]) {
			result[i] = FloorDb
		}
	}
	return result
}

// MainLobeWidth is the angular width of the contiguous region around the peak
// whose normalized level stays at or above levelDb
func (p Profile) MainLobeWidth(levelDb float64) float64 {
	if p.Len() < 2 {
		return 0
	}
	db := p.Db()
	peak := floats.MaxIdx(p.Magnitudes)
	lo, hi := peak, peak
	for lo > 0 && db[lo-1] >= levelDb {
		lo--
	}
	for hi < len(db)-1 && db[hi+1] >= levelDb {
		hi++
	}
	return math.Abs(p.Angles[hi] - p.Angles[lo])
}

// HalfPowerBeamwidth is MainLobeWidth at -3 dB
func (p Profile) HalfPowerBeamwidth() float64 {
	return p.MainLobeWidth(-3)
}
