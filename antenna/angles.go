package antenna

import (
	"math"
	"math/cmplx"
)

// WrapSteering wraps the input angle to the steering range (-180,180]
func WrapSteering(degree float64) float64 {
	wrapped := math.Mod(degree+180, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	wrapped -= 180
	if wrapped == -180 {
		return 180
	}
	return wrapped
}

// Wrap180To180 wraps the input angle to -180 to 180
func Wrap180To180(degree float64) float64 {
	if degree >= -180 && degree <= 180 {
		return degree
	}
	return WrapSteering(degree)
}

// Wrap0To180 folds the input angle onto 0 to 180, mirroring about the 0 degree axis
func Wrap0To180(degree float64) float64 {
	return math.Abs(Wrap180To180(degree))
}

func Radian(degree float64) float64 {
	return degree * math.Pi / 180.0
}

func Degree(radian float64) float64 {
	return radian * 180.0 / math.Pi
}

// GetEJtheta returns exp(-j*degree) with degree converted to radians
func GetEJtheta(degree float64) complex128 {
	return cmplx.Exp(complex(0.0, -Radian(degree)))
}
