package render

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/wiless/phasedarray/antenna"
	"github.com/wiless/phasedarray/beam"
	"github.com/wiless/vlib"
)

var ErrScriptNotWritten = errors.New("render: matlab script not written")

// MatlabScript exports the profile and the element positions of arr to a Matlab
// script that redraws the polar plot. The .m suffix is added when missing; the
// empty .dat companion vlib creates next to it is removed.
func MatlabScript(path string, profile beam.Profile, arr *antenna.PhasedArray) error {
	matlab := vlib.NewMatlab(path)
	matlab.Silent = true

	matlab.Export("angles", profile.Angles)
	matlab.Export("magnitude", profile.Magnitudes)
	matlab.Export("elements", arr.GlobalPositions())
	matlab.Command(fmt.Sprintf("%% N=%d f=%gHz spacing=%g steering=%g", arr.N(), arr.Frequency(), arr.SpacingFactor(), arr.SteeringAngle()))
	matlab.Command("figure; polarplot(deg2rad(angles+90), magnitude/max([magnitude(:); 1e-12]));")
	matlab.Command("figure; plot(real(elements), imag(elements), 'x'); axis equal;")
	if err := matlab.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrScriptNotWritten, err)
	}

	dat := strings.TrimSuffix(matlab.Name(), ".m") + ".dat"
	if info, err := os.Stat(dat); err == nil && info.Size() == 0 {
		os.Remove(dat)
	}
	if _, err := os.Stat(matlab.Name()); err != nil {
		return fmt.Errorf("%w: %v", ErrScriptNotWritten, err)
	}
	return nil
}
