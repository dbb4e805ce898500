package game

import (
	"github.com/chewxy/math32"
	df_cube "github.com/df-mc/dragonfly/server/block/cube"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
)

// DFBoxToCubeBox converts a dragonfly bounding box to a float32-cube bounding box.
func DFBoxToCubeBox(b df_cube.BBox) cube.BBox {
	return cube.Box(
		float32(b.Min().X()), float32(b.Min().Y()), float32(b.Min().Z()),
		float32(b.Max().X()), float32(b.Max().Y()), float32(b.Max().Z()),
	)
}

// AABBFromDimensions returns a bounding box from the given dimensions.
func AABBFromDimensions(width, height float32) cube.BBox {
	h := width / 2
	return cube.Box(
		-h, 0, -h,
		h, height, h,
	)
}

// BlockPosOf returns the block position that contains the point passed.
func BlockPosOf(v mgl32.Vec3) df_cube.Pos {
	return df_cube.Pos{int(math32.Floor(v[0])), int(math32.Floor(v[1])), int(math32.Floor(v[2]))}
}
