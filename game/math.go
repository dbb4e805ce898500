package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// ClampFloat64 clamps the given value to the given range.
func ClampFloat64(num, min, max float64) float64 {
	if num < min {
		return min
	}
	return math.Min(num, max)
}

// ClampVec64 clamps every axis of the vector to [-limit, limit].
func ClampVec64(v mgl64.Vec3, limit float64) mgl64.Vec3 {
	return mgl64.Vec3{
		ClampFloat64(v[0], -limit, limit),
		ClampFloat64(v[1], -limit, limit),
		ClampFloat64(v[2], -limit, limit),
	}
}

// Vec32To64 converts a 32-bit vector to a 64-bit one.
func Vec32To64(vec3 mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(vec3[0]), float64(vec3[1]), float64(vec3[2])}
}

// Vec64To32 converts a 64-bit vector to a 32-bit one.
func Vec64To32(vec3 mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(vec3[0]), float32(vec3[1]), float32(vec3[2])}
}
