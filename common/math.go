package common

import "math"

// DefaultScale is the number of editor units per engine unit.
const DefaultScale = 30.0

func DegToRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// FlipRotation converts a clockwise angle in radians into the engine's
// counter-clockwise convention. The result is left unnormalized, so a zero
// input yields 2π and inputs above 2π yield negative values.
func FlipRotation(rad float64) float64 {
	return 2*math.Pi - rad
}

func Scale(v, factor float64) float64 {
	return v / factor
}
