// Implements a phased array: element layout, wavelength dependent spacing and the
// progressive phase delay that steers its main lobe
package antenna

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/vlib"
)

// Offset is a manual displacement of one element, in metres, added on top of its
// generated position (calibration or placement error)
type Offset struct {
	X float64 `mapstructure:"x" json:"x" yaml:"x"`
	Y float64 `mapstructure:"y" json:"y" yaml:"y"`
}

func (o Offset) Cmplx() complex128 {
	return complex(o.X, o.Y)
}

// OffsetPolicy decides what happens to applied offsets when the element positions
// are regenerated from the geometry (frequency, spacing or geometry change).
type OffsetPolicy int

const (
	DiscardOffsets OffsetPolicy = iota
	RetainOffsets
)

var OffsetPolicies = [...]string{
	"discard",
	"retain",
}

func (o OffsetPolicy) String() string {
	if o < 0 || int(o) >= len(OffsetPolicies) {
		return "Unknown-OffsetPolicy"
	}
	return OffsetPolicies[o]
}

// Setting is the complete configuration of one array
type Setting struct {
	N               int
	Geometry        ArrayType
	Curvature       float64
	FreqHz          float64
	SpacingFactor   float64 // Factor multiplied by lamda
	Centre          vlib.Location3D
	SteeringAngle   float64 // degree
	Offsets         map[int]Offset
	FreqMultipliers map[int]float64
	OffsetPolicy    OffsetPolicy
}

func (s *Setting) SetDefault() {
	s.N = 10
	s.Geometry = LinearPhaseArray
	s.Curvature = 0
	s.FreqHz = 6.0e8
	s.SpacingFactor = 0.5
	s.Centre = vlib.Location3D{}
	s.SteeringAngle = 0
	s.Offsets = nil
	s.FreqMultipliers = nil
	s.OffsetPolicy = DiscardOffsets
}

func NewSetting() *Setting {
	result := new(Setting)
	result.SetDefault()
	return result
}

// PhasedArray keeps an array's geometry, physical constants and per-element
// overrides consistent. Every setter re-derives whatever depends on it before
// returning. A PhasedArray is not safe for concurrent mutation; hand readers a
// Snapshot instead.
type PhasedArray struct {
	n             int
	geometry      ArrayType
	curvature     float64
	freqHz        float64
	spacingFactor float64
	centre        vlib.Location3D
	steering      float64
	policy        OffsetPolicy

	lamda   float64
	k       float64
	spacing float64

	elements    vlib.VectorC
	multipliers vlib.VectorF
	offsets     map[int]complex128 // accumulated manual offsets per element

	revision uint64
}

// NewPhasedArray validates s and builds the array it describes. A zero element
// count is accepted and yields an array without elements.
func NewPhasedArray(s Setting) (*PhasedArray, error) {
	if s.N < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidElementCount, s.N)
	}
	if err := checkFrequency(s.FreqHz); err != nil {
		return nil, err
	}
	if err := checkSpacing(s.SpacingFactor); err != nil {
		return nil, err
	}
	if err := checkGeometry(s.Geometry, s.Curvature); err != nil {
		return nil, err
	}

	p := &PhasedArray{
		n:             s.N,
		geometry:      s.Geometry,
		curvature:     s.Curvature,
		freqHz:        s.FreqHz,
		spacingFactor: s.SpacingFactor,
		centre:        s.Centre,
		steering:      WrapSteering(s.SteeringAngle),
		policy:        s.OffsetPolicy,
		offsets:       make(map[int]complex128),
	}
	p.multipliers = vlib.NewVectorF(s.N)
	for i := range p.multipliers {
		p.multipliers[i] = 1.0
	}
	p.recalculate()
	p.regenerate()

	if err := p.SetFrequencyMultipliers(s.FreqMultipliers); err != nil {
		return nil, err
	}
	p.ApplyOffsets(s.Offsets)
	p.revision = 0
	return p, nil
}

// Reconfigure builds a new array from s and leaves p untouched. When s asks to
// retain offsets, the offsets accumulated on p are carried over; offsets given
// explicitly in s replace them element by element.
func (p *PhasedArray) Reconfigure(s Setting) (*PhasedArray, error) {
	if s.OffsetPolicy == RetainOffsets && len(p.offsets) > 0 {
		merged := make(map[int]Offset, len(p.offsets)+len(s.Offsets))
		for indx, d := range p.offsets {
			merged[indx] = Offset{X: real(d), Y: imag(d)}
		}
		for indx, o := range s.Offsets {
			merged[indx] = o
		}
		s.Offsets = merged
	}
	return NewPhasedArray(s)
}

// Snapshot returns a deep copy of p that later mutations of p do not affect
func (p *PhasedArray) Snapshot() *PhasedArray {
	result := *p
	result.elements = append(vlib.VectorC(nil), p.elements...)
	result.multipliers = append(vlib.VectorF(nil), p.multipliers...)
	result.offsets = make(map[int]complex128, len(p.offsets))
	for indx, d := range p.offsets {
		result.offsets[indx] = d
	}
	return &result
}

// Setting returns the configuration that rebuilds p, accumulated offsets and
// non-unit frequency multipliers included.
func (p *PhasedArray) Setting() Setting {
	s := Setting{
		N:             p.n,
		Geometry:      p.geometry,
		Curvature:     p.curvature,
		FreqHz:        p.freqHz,
		SpacingFactor: p.spacingFactor,
		Centre:        p.centre,
		SteeringAngle: p.steering,
		OffsetPolicy:  p.policy,
	}
	if len(p.offsets) > 0 {
		s.Offsets = make(map[int]Offset, len(p.offsets))
		for indx, d := range p.offsets {
			s.Offsets[indx] = Offset{X: real(d), Y: imag(d)}
		}
	}
	for indx, m := range p.multipliers {
		if m == 1 {
			continue
		}
		if s.FreqMultipliers == nil {
			s.FreqMultipliers = make(map[int]float64)
		}
		s.FreqMultipliers[indx] = m
	}
	return s
}

func (p *PhasedArray) recalculate() {
	p.lamda = GetLamda(p.freqHz)
	p.k = Wavenumber(p.lamda)
	p.spacing = p.lamda * p.spacingFactor
}

func (p *PhasedArray) regenerate() {
	p.elements = LocalLayout(p.n, p.spacing, p.geometry, p.curvature)
	if p.policy == RetainOffsets {
		for indx, d := range p.offsets {
			p.elements[indx] += d
		}
		return
	}
	if len(p.offsets) > 0 {
		log.WithFields(log.Fields{"component": "antenna", "offsets": len(p.offsets)}).Debug("regenerated layout, discarding manual offsets")
		p.offsets = make(map[int]complex128)
	}
}

// SetFrequency changes the carrier frequency; wavelength, wavenumber, spacing
// and element positions follow immediately.
func (p *PhasedArray) SetFrequency(freqHz float64) error {
	if err := checkFrequency(freqHz); err != nil {
		return err
	}
	p.freqHz = freqHz
	p.recalculate()
	p.regenerate()
	p.revision++
	return nil
}

func (p *PhasedArray) SetSpacingFactor(factor float64) error {
	if err := checkSpacing(factor); err != nil {
		return err
	}
	p.spacingFactor = factor
	p.recalculate()
	p.regenerate()
	p.revision++
	return nil
}

func (p *PhasedArray) SetGeometry(geometry ArrayType, curvature float64) error {
	if err := checkGeometry(geometry, curvature); err != nil {
		return err
	}
	p.geometry = geometry
	p.curvature = curvature
	p.regenerate()
	p.revision++
	return nil
}

// SetSteeringAngle stores degree wrapped into (-180,180]
func (p *PhasedArray) SetSteeringAngle(degree float64) {
	p.steering = WrapSteering(degree)
	p.revision++
}

func (p *PhasedArray) SetCentre(centre vlib.Location3D) {
	p.centre = centre
	p.revision++
}

// ApplyOffsets adds each offset to its element's local position. Indices outside
// [0,N) are ignored.
func (p *PhasedArray) ApplyOffsets(offsets map[int]Offset) {
	if len(offsets) == 0 {
		return
	}
	ignored := 0
	for indx, o := range offsets {
		if indx < 0 || indx >= p.n {
			ignored++
			continue
		}
		d := o.Cmplx()
		p.elements[indx] += d
		p.offsets[indx] += d
	}
	if ignored > 0 {
		log.WithFields(log.Fields{"component": "antenna", "ignored": ignored, "N": p.n}).Debug("ignored out of range element offsets")
	}
	p.revision++
}

// SetFrequencyMultipliers scales the wavenumber of individual elements. Every
// multiplier must be finite and positive, otherwise none is applied. Indices
// outside [0,N) are ignored.
func (p *PhasedArray) SetFrequencyMultipliers(multipliers map[int]float64) error {
	if len(multipliers) == 0 {
		return nil
	}
	for indx, m := range multipliers {
		if !(m > 0) || math.IsInf(m, 0) {
			return fmt.Errorf("%w: element %d has %v", ErrInvalidMultiplier, indx, m)
		}
	}
	for indx, m := range multipliers {
		if indx < 0 || indx >= p.n {
			continue
		}
		p.multipliers[indx] = m
	}
	p.revision++
	return nil
}

func (p *PhasedArray) N() int                  { return p.n }
func (p *PhasedArray) Geometry() ArrayType     { return p.geometry }
func (p *PhasedArray) Curvature() float64      { return p.curvature }
func (p *PhasedArray) Frequency() float64      { return p.freqHz }
func (p *PhasedArray) Wavelength() float64     { return p.lamda }
func (p *PhasedArray) Wavenumber() float64     { return p.k }
func (p *PhasedArray) Spacing() float64        { return p.spacing }
func (p *PhasedArray) SpacingFactor() float64  { return p.spacingFactor }
func (p *PhasedArray) SteeringAngle() float64  { return p.steering }
func (p *PhasedArray) Centre() vlib.Location3D { return p.centre }
func (p *PhasedArray) Policy() OffsetPolicy    { return p.policy }

// Revision counts the mutations applied since construction
func (p *PhasedArray) Revision() uint64 { return p.revision }

// LocalPositions returns the element positions (x + jy) relative to the array centre
func (p *PhasedArray) LocalPositions() vlib.VectorC {
	return append(vlib.VectorC(nil), p.elements...)
}

// GlobalPositions returns the element positions in world coordinates
func (p *PhasedArray) GlobalPositions() vlib.VectorC {
	centre := complex(p.centre.X, p.centre.Y)
	result := vlib.NewVectorC(p.n)
	for i, e := range p.elements {
		result[i] = e + centre
	}
	return result
}

func (p *PhasedArray) Multipliers() vlib.VectorF {
	return append(vlib.VectorF(nil), p.multipliers...)
}

// Wavenumbers returns the per-element wavenumber k*multiplier
func (p *PhasedArray) Wavenumbers() vlib.VectorF {
	result := vlib.NewVectorF(p.n)
	for i, m := range p.multipliers {
		result[i] = p.k * m
	}
	return result
}

// SteeringPhaseStep is the phase increment between adjacent elements that points
// the main lobe at the steering angle
func (p *PhasedArray) SteeringPhaseStep() float64 {
	return p.k * p.spacing * math.Sin(Radian(p.steering))
}

// SteeringPhases returns -i*SteeringPhaseStep for every element i
func (p *PhasedArray) SteeringPhases() vlib.VectorF {
	step := p.SteeringPhaseStep()
	result := vlib.NewVectorF(p.n)
	for i := range result {
		result[i] = -float64(i) * step
	}
	return result
}
