package deployment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/phasedarray"
	"github.com/wiless/phasedarray/beam"
	"github.com/wiless/phasedarray/field"
	"gopkg.in/yaml.v3"
)

type GridSpec struct {
	MinX       float64 `mapstructure:"minX" json:"minX" yaml:"minX"`
	MaxX       float64 `mapstructure:"maxX" json:"maxX" yaml:"maxX"`
	MinY       float64 `mapstructure:"minY" json:"minY" yaml:"minY"`
	MaxY       float64 `mapstructure:"maxY" json:"maxY" yaml:"maxY"`
	Resolution int     `mapstructure:"resolution" json:"resolution" yaml:"resolution"`
}

func DefaultGridSpec() GridSpec {
	return GridSpec{
		MinX:       field.DefaultMinX,
		MaxX:       field.DefaultMaxX,
		MinY:       field.DefaultMinY,
		MaxY:       field.DefaultMaxY,
		Resolution: field.DefaultResolution,
	}
}

func (g GridSpec) Build() (*field.Grid, error) {
	return field.NewGrid(g.MinX, g.MaxX, g.MinY, g.MaxY, g.Resolution)
}

// ProfileSpec selects the array and the azimuth sweep of the beam profile
type ProfileSpec struct {
	Array  int     `mapstructure:"array" json:"array" yaml:"array"`
	Start  float64 `mapstructure:"start" json:"start" yaml:"start"`
	End    float64 `mapstructure:"end" json:"end" yaml:"end"`
	Points int     `mapstructure:"points" json:"points" yaml:"points"`
}

func DefaultProfileSpec() ProfileSpec {
	return ProfileSpec{
		Start:  beam.DefaultStart,
		End:    beam.DefaultEnd,
		Points: beam.DefaultPoints,
	}
}

// Scenario is a grid, the arrays placed on it and the profile to report
type Scenario struct {
	Grid    GridSpec      `mapstructure:"grid" json:"grid" yaml:"grid"`
	Arrays  []ArrayRecord `mapstructure:"-" json:"arrays" yaml:"arrays"`
	Profile ProfileSpec   `mapstructure:"profile" json:"profile" yaml:"profile"`
}

func NewScenario() Scenario {
	return Scenario{Grid: DefaultGridSpec(), Profile: DefaultProfileSpec()}
}

// DecodeScenario accepts the nested form {grid, arrays, profile} as well as the
// request form {arrays, resolution}. A top level resolution overrides grid.resolution.
func DecodeScenario(raw map[string]interface{}) (Scenario, error) {
	result := NewScenario()
	dec, err := newDecoder(&result)
	if err != nil {
		return result, err
	}
	if err := dec.Decode(raw); err != nil {
		return result, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	if res, ok := raw["resolution"]; ok {
		var n int
		rdec, err := newDecoder(&n)
		if err != nil {
			return result, err
		}
		if err := rdec.Decode(res); err != nil {
			return result, fmt.Errorf("%w: resolution: %v", ErrInvalidRecord, err)
		}
		result.Grid.Resolution = n
	}

	var arrays []interface{}
	switch v := raw["arrays"].(type) {
	case nil:
	case []interface{}:
		arrays = v
	case []map[string]interface{}:
		for _, m := range v {
			arrays = append(arrays, m)
		}
	default:
		return result, fmt.Errorf("%w: arrays must be a list, got %T", ErrInvalidRecord, v)
	}
	for i, item := range arrays {
		m, err := toStringMap(item)
		if err != nil {
			return result, fmt.Errorf("array %d: %w", i, err)
		}
		rec, err := DecodeArray(m)
		if err != nil {
			return result, fmt.Errorf("array %d: %w", i, err)
		}
		result.Arrays = append(result.Arrays, rec)
	}
	return result, nil
}

func toStringMap(item interface{}) (map[string]interface{}, error) {
	switch v := item.(type) {
	case map[string]interface{}:
		return v, nil
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			result[fmt.Sprint(key)] = val
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%w: array entry must be a mapping, got %T", ErrInvalidRecord, item)
	}
}

// LoadScenario reads a YAML (.yaml, .yml) or JSON (.json) scenario file
func LoadScenario(path string) (Scenario, error) {
	unmarshal := yaml.Unmarshal
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yaml", ".yml":
	default:
		return Scenario{}, fmt.Errorf("%w: unsupported scenario format %q", ErrInvalidRecord, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("deployment: read scenario: %w", err)
	}
	raw := make(map[string]interface{})
	if err := unmarshal(data, &raw); err != nil {
		return Scenario{}, fmt.Errorf("deployment: parse %s: %w", path, err)
	}
	log.WithFields(log.Fields{"component": "deployment", "path": path}).Debug("loaded scenario")
	return DecodeScenario(raw)
}

// Build validates every record, expands drops and returns a system owning the
// resulting arrays in file order
func (s Scenario) Build(opts ...phasedarray.Option) (*phasedarray.BeamSystem, error) {
	grid, err := s.Grid.Build()
	if err != nil {
		return nil, err
	}
	system := phasedarray.NewBeamSystem(grid, opts...)
	for i, rec := range s.Arrays {
		expanded, err := rec.Expand()
		if err != nil {
			return nil, fmt.Errorf("array %d: %w", i, err)
		}
		for _, r := range expanded {
			arr, err := r.Build()
			if err != nil {
				return nil, fmt.Errorf("array %d: %w", i, err)
			}
			system.AddArray(arr)
		}
	}
	return system, nil
}
