package collision

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/registry"
)

var (
	fullBox  = []cube.BBox{cube.Box(0, 0, 0, 1, 1, 1)}
	honeyBox = []cube.BBox{cube.Box(1.0/16, 0, 1.0/16, 15.0/16, 15.0/16, 15.0/16)}
)

// Boxes returns the collision boxes of a block state relative to the block's origin.
func Boxes(state registry.BlockState) []cube.BBox {
	switch {
	case state.Honey():
		return honeyBox
	case state.Solid:
		return fullBox
	}
	return nil
}

// FullBox returns the box of a full block at pos.
func FullBox(pos mgl64.Vec3) cube.BBox {
	return fullBox[0].Translate(pos)
}

// ExtendBox stretches the box by v, towards the negative side on negative axes.
func ExtendBox(box cube.BBox, v mgl64.Vec3) cube.BBox {
	lo, hi := box.Min(), box.Max()
	for i := range 3 {
		if v[i] < 0 {
			lo[i] += v[i]
		} else {
			hi[i] += v[i]
		}
	}
	return cube.Box(lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
}

// Shrink pulls every side of the box in by v on its axis.
func Shrink(box cube.BBox, v mgl64.Vec3) cube.BBox {
	lo, hi := box.Min().Add(v), box.Max().Sub(v)
	return cube.Box(lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
}

// BottomCentre returns the centre of the bottom face of the box, which is where the feet of an entity with
// the box are.
func BottomCentre(box cube.BBox) mgl64.Vec3 {
	lo, hi := box.Min(), box.Max()
	return mgl64.Vec3{(lo[0] + hi[0]) / 2, lo[1], (lo[2] + hi[2]) / 2}
}

// PenetrationDepth returns how far box has to move towards face to stop intersecting with other.
func PenetrationDepth(box, other cube.BBox, face cube.Face) float64 {
	switch face {
	case cube.FaceDown:
		return box.Max()[1] - other.Min()[1]
	case cube.FaceUp:
		return other.Max()[1] - box.Min()[1]
	case cube.FaceNorth:
		return box.Max()[2] - other.Min()[2]
	case cube.FaceSouth:
		return other.Max()[2] - box.Min()[2]
	case cube.FaceWest:
		return box.Max()[0] - other.Min()[0]
	}
	return other.Max()[0] - box.Min()[0]
}

// Intersects reports whether the two boxes overlap by more than touching.
func Intersects(a, b cube.BBox) bool {
	amin, amax, bmin, bmax := a.Min(), a.Max(), b.Min(), b.Max()
	for i := range 3 {
		if amin[i] >= bmax[i] || amax[i] <= bmin[i] {
			return false
		}
	}
	return true
}
