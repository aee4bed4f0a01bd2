package antenna

import "errors"

var (
	ErrInvalidFrequency    = errors.New("antenna: frequency must be positive")
	ErrInvalidElementCount = errors.New("antenna: element count must not be negative")
	ErrInvalidSpacing      = errors.New("antenna: spacing factor must be positive")
	ErrInvalidCurvature    = errors.New("antenna: curvature must not be negative")
	ErrInvalidMultiplier   = errors.New("antenna: frequency multiplier must be positive")
	ErrUnknownArrayType    = errors.New("antenna: unknown array type")
)
