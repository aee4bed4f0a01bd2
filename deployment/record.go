// Package deployment turns loosely typed scenario records (YAML, JSON or request
// maps) into validated array settings and a ready BeamSystem
package deployment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	ms "github.com/mitchellh/mapstructure"
	log "github.com/sirupsen/logrus"
	"github.com/wiless/phasedarray/antenna"
	"github.com/wiless/vlib"
)

// CurveScale converts the UI "curve" slider into a curvature coefficient
const CurveScale = 500.0

var (
	ErrInvalidIndex  = errors.New("deployment: element index is not an integer")
	ErrInvalidRecord = errors.New("deployment: invalid array record")
)

// ArrayRecord is the transport shape of one array. Sparse maps are keyed by the
// element index written as a string.
type ArrayRecord struct {
	Count     int      `mapstructure:"count" json:"count" yaml:"count"`
	Geo       string   `mapstructure:"geo" json:"geo" yaml:"geo"`
	Curve     float64  `mapstructure:"curve" json:"curve" yaml:"curve"`
	Curvature *float64 `mapstructure:"curvature" json:"curvature,omitempty" yaml:"curvature,omitempty"`
	Frequency float64  `mapstructure:"frequency" json:"frequency" yaml:"frequency"`
	Spacing   float64  `mapstructure:"spacing" json:"spacing" yaml:"spacing"`
	X         float64  `mapstructure:"x" json:"x" yaml:"x"`
	Y         float64  `mapstructure:"y" json:"y" yaml:"y"`
	Steering  float64  `mapstructure:"steering" json:"steering" yaml:"steering"`

	AntennaOffsets  map[string]antenna.Offset `mapstructure:"antennaOffsets" json:"antennaOffsets,omitempty" yaml:"antennaOffsets,omitempty"`
	FreqMultipliers map[string]float64        `mapstructure:"freqMultipliers" json:"freqMultipliers,omitempty" yaml:"freqMultipliers,omitempty"`
	KeepOffsets     bool                      `mapstructure:"keepOffsets" json:"keepOffsets" yaml:"keepOffsets"`

	Drop *Drop `mapstructure:"drop" json:"drop,omitempty" yaml:"drop,omitempty"`
}

// NewArrayRecord returns a record holding the defaults of an absent key
func NewArrayRecord() ArrayRecord {
	def := antenna.NewSetting()
	return ArrayRecord{
		Count:     def.N,
		Geo:       def.Geometry.String(),
		Frequency: def.FreqHz,
		Spacing:   def.SpacingFactor,
	}
}

func newDecoder(target interface{}) (*ms.Decoder, error) {
	return ms.NewDecoder(&ms.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
}

// DecodeArray decodes a raw record on top of the defaults. Numbers given as
// strings and integer map keys are accepted.
func DecodeArray(raw map[string]interface{}) (ArrayRecord, error) {
	result := NewArrayRecord()
	dec, err := newDecoder(&result)
	if err != nil {
		return result, err
	}
	if err := dec.Decode(raw); err != nil {
		return result, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return result, nil
}

// CurvatureValue is the explicit curvature when given, otherwise curve/CurveScale
func (r ArrayRecord) CurvatureValue() float64 {
	if r.Curvature != nil {
		return *r.Curvature
	}
	return r.Curve / CurveScale
}

// Setting validates the record's sparse maps and converts it to an antenna
// setting. Indices outside [0,count) are dropped.
func (r ArrayRecord) Setting() (antenna.Setting, error) {
	geo, err := antenna.ParseArrayType(r.Geo)
	if err != nil {
		return antenna.Setting{}, err
	}
	s := antenna.Setting{
		N:             r.Count,
		Geometry:      geo,
		Curvature:     r.CurvatureValue(),
		FreqHz:        r.Frequency,
		SpacingFactor: r.Spacing,
		Centre:        vlib.Location3D{X: r.X, Y: r.Y},
		SteeringAngle: r.Steering,
		OffsetPolicy:  antenna.DiscardOffsets,
	}
	if r.KeepOffsets {
		s.OffsetPolicy = antenna.RetainOffsets
	}

	dropped := 0
	for key, o := range r.AntennaOffsets {
		indx, err := parseIndex(key)
		if err != nil {
			return antenna.Setting{}, err
		}
		if indx < 0 || indx >= r.Count {
			dropped++
			continue
		}
		if s.Offsets == nil {
			s.Offsets = make(map[int]antenna.Offset)
		}
		s.Offsets[indx] = o
	}
	for key, m := range r.FreqMultipliers {
		indx, err := parseIndex(key)
		if err != nil {
			return antenna.Setting{}, err
		}
		if indx < 0 || indx >= r.Count {
			dropped++
			continue
		}
		if s.FreqMultipliers == nil {
			s.FreqMultipliers = make(map[int]float64)
		}
		s.FreqMultipliers[indx] = m
	}
	if dropped > 0 {
		log.WithFields(log.Fields{"component": "deployment", "dropped": dropped, "count": r.Count}).Debug("dropped out of range element indices")
	}
	return s, nil
}

// Build returns the phased array the record describes
func (r ArrayRecord) Build() (*antenna.PhasedArray, error) {
	s, err := r.Setting()
	if err != nil {
		return nil, err
	}
	return antenna.NewPhasedArray(s)
}

// RecordOf converts an array back to its transport record
func RecordOf(arr *antenna.PhasedArray) ArrayRecord {
	s := arr.Setting()
	curvature := s.Curvature
	result := ArrayRecord{
		Count:       s.N,
		Geo:         s.Geometry.String(),
		Curvature:   &curvature,
		Frequency:   s.FreqHz,
		Spacing:     s.SpacingFactor,
		X:           s.Centre.X,
		Y:           s.Centre.Y,
		Steering:    s.SteeringAngle,
		KeepOffsets: s.OffsetPolicy == antenna.RetainOffsets,
	}
	if len(s.Offsets) > 0 {
		result.AntennaOffsets = make(map[string]antenna.Offset, len(s.Offsets))
		for indx, o := range s.Offsets {
			result.AntennaOffsets[strconv.Itoa(indx)] = o
		}
	}
	if len(s.FreqMultipliers) > 0 {
		result.FreqMultipliers = make(map[string]float64, len(s.FreqMultipliers))
		for indx, m := range s.FreqMultipliers {
			result.FreqMultipliers[strconv.Itoa(indx)] = m
		}
	}
	return result
}

func parseIndex(key string) (int, error) {
	indx, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIndex, key)
	}
	return indx, nil
}
