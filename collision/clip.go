package collision

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

type clipResult struct {
	depenetratingAxis     int
	penetration           float64
	clippedVelocity       mgl64.Vec3
	depenetratingVelocity mgl64.Vec3
}

// Clip clips or depenetrates a moving bounding box against a stationary one. With oneWay set, boxes that
// already intersect do not push each other apart.
func Clip(stationary, moving cube.BBox, vel mgl64.Vec3, oneWay bool) mgl64.Vec3 {
	result := clip(stationary, moving, vel)
	if oneWay {
		return result.clippedVelocity
	}
	return result.depenetratingVelocity
}

// AxisOffset returns how far moving may travel along the axis before hitting stationary, which is at most
// offset. Boxes that do not overlap on the other two axes never limit the movement.
func AxisOffset(stationary, moving cube.BBox, axis cube.Axis, offset float64) float64 {
	var vel mgl64.Vec3
	i := axisIndex(axis)
	vel[i] = offset
	return Clip(stationary, moving, vel, true)[i]
}

func clip(stationary, moving cube.BBox, velocity mgl64.Vec3) (result clipResult) {
	result.clippedVelocity = velocity
	result.depenetratingVelocity = velocity

	if stationary.Min() == stationary.Max() {
		return
	}

	var penetrations, signed, normals [3]float64
	separating, separatingAxis := 0, 0
	least := math.MaxFloat64

	for i := range 3 {
		minPenetration := moving.Max()[i] - stationary.Min()[i]
		maxPenetration := stationary.Max()[i] - moving.Min()[i]
		if math.Abs(minPenetration) <= 1e-7 {
			minPenetration = 0
		}
		if math.Abs(maxPenetration) <= 1e-7 {
			maxPenetration = 0
		}
		minPositive, maxPositive := math.Max(0, minPenetration), math.Max(0, maxPenetration)

		switch {
		case minPositive == 0:
			signed[i], normals[i] = minPenetration, -1
			separating++
			separatingAxis = i
		case maxPositive == 0:
			signed[i], normals[i] = maxPenetration, 1
			separating++
			separatingAxis = i
		case minPositive < maxPositive:
			penetrations[i], signed[i], normals[i] = minPositive, minPositive, -1
		default:
			penetrations[i], signed[i], normals[i] = maxPositive, maxPositive, 1
		}
		if separating > 1 {
			return
		}
		least = math.Min(least, penetrations[i])
	}

	if separating == 0 {
		result.penetration = least
		best := 0
		for i := 1; i < 3; i++ {
			if penetrations[i] < penetrations[best] {
				best = i
			}
		}
		desired := penetrations[best] * normals[best]
		if desired > 0 {
			result.depenetratingVelocity[best] = math.Max(desired, velocity[best])
		} else {
			result.depenetratingVelocity[best] = math.Min(desired, velocity[best])
		}
		result.depenetratingAxis = best
		return
	}

	swept := signed[separatingAxis] - normals[separatingAxis]*velocity[separatingAxis]
	if swept <= 0 {
		return
	}
	resolved := signed[separatingAxis] * normals[separatingAxis]
	result.clippedVelocity[separatingAxis] = resolved
	result.depenetratingVelocity[separatingAxis] = resolved
	return
}

func axisIndex(axis cube.Axis) int {
	switch axis {
	case cube.X:
		return 0
	case cube.Y:
		return 1
	}
	return 2
}
