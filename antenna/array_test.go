package antenna_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wiless/phasedarray/antenna"
	"github.com/wiless/vlib"
)

func newArray(t *testing.T, modify func(s *antenna.Setting)) *antenna.PhasedArray {
	t.Helper()
	s := antenna.NewSetting()
	if modify != nil {
		modify(s)
	}
	arr, err := antenna.NewPhasedArray(*s)
	require.NoError(t, err)
	return arr
}

func TestPhysicsConstantsFollowFrequency(t *testing.T) {
	for _, f := range []float64{1, 2.4e6, 6e8, 1e9, 2.8e10, 7.7e13} {
		arr := newArray(t, func(s *antenna.Setting) { s.FreqHz = f })
		lamda := antenna.PropagationSpeed / f
		assert.InEpsilon(t, lamda, arr.Wavelength(), 1e-12, "wavelength at %g Hz", f)
		assert.InEpsilon(t, 2*math.Pi/lamda, arr.Wavenumber(), 1e-12, "wavenumber at %g Hz", f)
		assert.InEpsilon(t, lamda*0.5, arr.Spacing(), 1e-12, "spacing at %g Hz", f)
	}

	arr := newArray(t, nil)
	require.NoError(t, arr.SetFrequency(2e9))
	assert.InEpsilon(t, antenna.PropagationSpeed/2e9, arr.Wavelength(), 1e-12)
	assert.InEpsilon(t, 2*math.Pi/arr.Wavelength(), arr.Wavenumber(), 1e-12)
	assert.InEpsilon(t, arr.Wavelength()*0.5, arr.Spacing(), 1e-12)

	require.NoError(t, arr.SetSpacingFactor(0.75))
	assert.InEpsilon(t, arr.Wavelength()*0.75, arr.Spacing(), 1e-12)
}

func TestFrequencyChangeMovesElements(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 4; s.FreqHz = 1e9 })
	before := arr.LocalPositions()
	require.NoError(t, arr.SetFrequency(2e9))
	after := arr.LocalPositions()
	for i := range before {
		assert.InDelta(t, real(before[i])/2, real(after[i]), 1e-12)
	}
}

func TestInvalidSettings(t *testing.T) {
	cases := []struct {
		name   string
		modify func(s *antenna.Setting)
		want   error
	}{
		{"zero frequency", func(s *antenna.Setting) { s.FreqHz = 0 }, antenna.ErrInvalidFrequency},
		{"negative frequency", func(s *antenna.Setting) { s.FreqHz = -1e9 }, antenna.ErrInvalidFrequency},
		{"nan frequency", func(s *antenna.Setting) { s.FreqHz = math.NaN() }, antenna.ErrInvalidFrequency},
		{"negative count", func(s *antenna.Setting) { s.N = -1 }, antenna.ErrInvalidElementCount},
		{"zero spacing", func(s *antenna.Setting) { s.SpacingFactor = 0 }, antenna.ErrInvalidSpacing},
		{"negative curvature", func(s *antenna.Setting) { s.Geometry = antenna.CurvedPhaseArray; s.Curvature = -0.1 }, antenna.ErrInvalidCurvature},
		{"unknown geometry", func(s *antenna.Setting) { s.Geometry = antenna.ArrayType(7) }, antenna.ErrUnknownArrayType},
		{"zero multiplier", func(s *antenna.Setting) { s.FreqMultipliers = map[int]float64{1: 0} }, antenna.ErrInvalidMultiplier},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := antenna.NewSetting()
			tc.modify(s)
			_, err := antenna.NewPhasedArray(*s)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSetFrequencyRejectsNonPositive(t *testing.T) {
	arr := newArray(t, nil)
	lamda := arr.Wavelength()
	rev := arr.Revision()

	assert.ErrorIs(t, arr.SetFrequency(0), antenna.ErrInvalidFrequency)
	assert.ErrorIs(t, arr.SetFrequency(-3), antenna.ErrInvalidFrequency)
	assert.Equal(t, 6e8, arr.Frequency())
	assert.Equal(t, lamda, arr.Wavelength())
	assert.Equal(t, rev, arr.Revision())
}

func TestZeroElements(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 0 })
	assert.Empty(t, arr.LocalPositions())
	assert.Empty(t, arr.GlobalPositions())
	assert.Empty(t, arr.SteeringPhases())
	arr.ApplyOffsets(map[int]antenna.Offset{0: {X: 1}})
	assert.Empty(t, arr.LocalPositions())
}

func TestSteeringAngleIsWrapped(t *testing.T) {
	arr := newArray(t, nil)
	arr.SetSteeringAngle(190)
	assert.InDelta(t, -170, arr.SteeringAngle(), 1e-12)
	arr.SetSteeringAngle(-540)
	assert.InDelta(t, 180, arr.SteeringAngle(), 1e-12)

	s := antenna.NewSetting()
	s.SteeringAngle = 725
	wrapped, err := antenna.NewPhasedArray(*s)
	require.NoError(t, err)
	assert.InDelta(t, 5, wrapped.SteeringAngle(), 1e-12)
}

func TestSteeringPhases(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 4; s.FreqHz = 1e9; s.SteeringAngle = 30 })
	step := arr.Wavenumber() * arr.Spacing() * 0.5
	assert.InDelta(t, step, arr.SteeringPhaseStep(), 1e-12)

	phases := arr.SteeringPhases()
	require.Len(t, phases, 4)
	for i, ph := range phases {
		assert.InDelta(t, -float64(i)*step, ph, 1e-12)
	}
}

func TestApplyEmptyOffsetsIsNoop(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 6 })
	before := arr.LocalPositions()
	rev := arr.Revision()

	arr.ApplyOffsets(map[int]antenna.Offset{})
	arr.ApplyOffsets(nil)

	assert.Equal(t, before, arr.LocalPositions())
	assert.Equal(t, rev, arr.Revision())
}

func TestApplyOffsetsIgnoresOutOfRange(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 4 })
	before := arr.LocalPositions()

	arr.ApplyOffsets(map[int]antenna.Offset{
		1:  {X: 0.1, Y: -0.2},
		-1: {X: 5, Y: 5},
		4:  {X: 5, Y: 5},
		99: {X: 5, Y: 5},
	})

	after := arr.LocalPositions()
	for i := range before {
		want := before[i]
		if i == 1 {
			want += complex(0.1, -0.2)
		}
		assert.InDelta(t, real(want), real(after[i]), 1e-12, "x of element %d", i)
		assert.InDelta(t, imag(want), imag(after[i]), 1e-12, "y of element %d", i)
	}
}

func TestOffsetsAccumulate(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 3 })
	before := arr.LocalPositions()
	arr.ApplyOffsets(map[int]antenna.Offset{2: {X: 0.1}})
	arr.ApplyOffsets(map[int]antenna.Offset{2: {X: 0.1}})
	assert.InDelta(t, real(before[2])+0.2, real(arr.LocalPositions()[2]), 1e-12)
	assert.InDelta(t, 0.2, arr.Setting().Offsets[2].X, 1e-12)
}

func TestFrequencyChangeDiscardsOffsets(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 4 })
	arr.ApplyOffsets(map[int]antenna.Offset{0: {X: 0.3, Y: 0.3}})
	require.NoError(t, arr.SetFrequency(1.2e9))

	fresh := newArray(t, func(s *antenna.Setting) { s.N = 4; s.FreqHz = 1.2e9 })
	assert.Equal(t, fresh.LocalPositions(), arr.LocalPositions())
	assert.Empty(t, arr.Setting().Offsets)
}

func TestFrequencyChangeRetainsOffsets(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 4; s.OffsetPolicy = antenna.RetainOffsets })
	arr.ApplyOffsets(map[int]antenna.Offset{0: {X: 0.3, Y: 0.3}})
	require.NoError(t, arr.SetFrequency(1.2e9))

	base := antenna.LocalLayout(4, arr.Spacing(), antenna.LinearPhaseArray, 0)
	got := arr.LocalPositions()
	assert.InDelta(t, real(base[0])+0.3, real(got[0]), 1e-12)
	assert.InDelta(t, 0.3, imag(got[0]), 1e-12)
	assert.Equal(t, base[1:], got[1:])
}

func TestFrequencyMultipliers(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 3 })
	k := arr.Wavenumber()

	require.NoError(t, arr.SetFrequencyMultipliers(map[int]float64{1: 2, 3: 7, -2: 9}))
	assert.Equal(t, vlib.VectorF{k, 2 * k, k}, arr.Wavenumbers())

	err := arr.SetFrequencyMultipliers(map[int]float64{0: 3, 2: -1})
	assert.ErrorIs(t, err, antenna.ErrInvalidMultiplier)
	assert.Equal(t, vlib.VectorF{1, 2, 1}, arr.Multipliers())

	require.NoError(t, arr.SetFrequency(1e9))
	assert.Equal(t, vlib.VectorF{1, 2, 1}, arr.Multipliers())
}

func TestGlobalPositions(t *testing.T) {
	for _, centre := range []vlib.Location3D{{X: 0, Y: 0}, {X: 3.5, Y: -1.25}, {X: -20, Y: 17, Z: 4}} {
		arr := newArray(t, func(s *antenna.Setting) {
			s.N = 5
			s.Geometry = antenna.CurvedPhaseArray
			s.Curvature = 0.4
			s.Centre = centre
		})
		arr.ApplyOffsets(map[int]antenna.Offset{3: {X: 0.05, Y: 0.07}})
		local := arr.LocalPositions()
		global := arr.GlobalPositions()
		require.Len(t, global, len(local))
		for i := range local {
			assert.InDelta(t, real(local[i])+centre.X, real(global[i]), 1e-12)
			assert.InDelta(t, imag(local[i])+centre.Y, imag(global[i]), 1e-12)
		}
	}
}

func TestReconfigureLeavesReceiverUntouched(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 4 })
	arr.ApplyOffsets(map[int]antenna.Offset{1: {Y: 0.5}})
	before := arr.LocalPositions()

	s := arr.Setting()
	s.FreqHz = 2e9
	next, err := arr.Reconfigure(s)
	require.NoError(t, err)

	assert.Equal(t, before, arr.LocalPositions())
	assert.Equal(t, 6e8, arr.Frequency())
	assert.Equal(t, 2e9, next.Frequency())
	assert.InEpsilon(t, antenna.PropagationSpeed/2e9, next.Wavelength(), 1e-12)
	// Setting carries the offsets, so they survive even under DiscardOffsets
	assert.InDelta(t, 0.5, imag(next.LocalPositions()[1]), 1e-12)

	_, err = arr.Reconfigure(antenna.Setting{N: 4, FreqHz: -1, SpacingFactor: 0.5})
	assert.ErrorIs(t, err, antenna.ErrInvalidFrequency)
}

func TestReconfigureMergesRetainedOffsets(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 4 })
	arr.ApplyOffsets(map[int]antenna.Offset{0: {X: 0.1}, 2: {Y: 0.2}})

	s := antenna.NewSetting()
	s.N = 4
	s.OffsetPolicy = antenna.RetainOffsets
	s.Offsets = map[int]antenna.Offset{2: {Y: 0.9}}
	next, err := arr.Reconfigure(*s)
	require.NoError(t, err)

	offsets := next.Setting().Offsets
	assert.InDelta(t, 0.1, offsets[0].X, 1e-12)
	assert.InDelta(t, 0.9, offsets[2].Y, 1e-12)
	assert.Len(t, s.Offsets, 1, "caller's map must not be modified")
}

func TestSnapshotIsIndependent(t *testing.T) {
	arr := newArray(t, func(s *antenna.Setting) { s.N = 4 })
	snap := arr.Snapshot()
	arr.ApplyOffsets(map[int]antenna.Offset{0: {X: 1}})
	require.NoError(t, arr.SetFrequencyMultipliers(map[int]float64{1: 3}))
	arr.SetSteeringAngle(45)

	assert.NotEqual(t, arr.LocalPositions(), snap.LocalPositions())
	assert.Equal(t, vlib.VectorF{1, 1, 1, 1}, snap.Multipliers())
	assert.Equal(t, 0.0, snap.SteeringAngle())
}

func TestRevisionCountsMutations(t *testing.T) {
	arr := newArray(t, nil)
	assert.Equal(t, uint64(0), arr.Revision())
	arr.SetSteeringAngle(10)
	arr.SetCentre(vlib.Location3D{X: 1})
	require.NoError(t, arr.SetGeometry(antenna.CurvedPhaseArray, 0.1))
	assert.Equal(t, uint64(3), arr.Revision())
}
