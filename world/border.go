package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/game"
)

// Border is the world border the upstream server announced.
type Border struct {
	centre   mgl64.Vec2
	diameter float64

	minX, maxX float64
	minZ, maxZ float64
}

// NewBorder returns the border used before the server sends one.
func NewBorder() *Border {
	b := &Border{diameter: game.DefaultBorderDiameter}
	b.update()
	return b
}

// SetCentre moves the centre of the border.
func (b *Border) SetCentre(x, z float64) {
	b.centre = mgl64.Vec2{x, z}
	b.update()
}

// SetDiameter resizes the border.
func (b *Border) SetDiameter(diameter float64) {
	b.diameter = diameter
	b.update()
}

// Diameter returns the current diameter of the border.
func (b *Border) Diameter() float64 {
	return b.diameter
}

// InsideBoundaries reports whether the position is strictly inside the border on the horizontal axes.
func (b *Border) InsideBoundaries(pos mgl64.Vec3) bool {
	return pos[0] > b.minX && pos[0] < b.maxX && pos[2] > b.minZ && pos[2] < b.maxZ
}

// Reset restores the default border.
func (b *Border) Reset() {
	b.centre, b.diameter = mgl64.Vec2{}, game.DefaultBorderDiameter
	b.update()
}

func (b *Border) update() {
	r := b.diameter / 2
	b.minX, b.maxX = b.centre[0]-r, b.centre[0]+r
	b.minZ, b.maxZ = b.centre[1]-r, b.centre[1]+r
}
