package collision

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/world"
)

const (
	// Tolerance is the distance under which movement along an axis is dropped.
	Tolerance = 1e-5
	// StepHeight is how high the player walks up onto blocks without jumping.
	StepHeight = 0.6
)

// MovingBlocks resolves collisions with blocks that are currently being moved by pistons.
type MovingBlocks interface {
	// Active reports whether any block is moving.
	Active() bool
	ComputeCollisionOffset(pos cube.Pos, box cube.BBox, axis cube.Axis, offset float64) float64
}

// Solver tracks the bounding box of the session's player and corrects movement applied to it by the relay
// itself against the blocks around it.
type Solver struct {
	world  world.Source
	moving MovingBlocks
	box    cube.BBox

	// OnGround is set while the player stands on something, which allows stepping up onto blocks.
	OnGround bool
}

// NewSolver returns a Solver resolving collisions against the blocks in w.
func NewSolver(w world.Source, box cube.BBox) *Solver {
	return &Solver{world: w, box: box}
}

// SetMovingBlocks sets the source of moving block collisions.
func (s *Solver) SetMovingBlocks(m MovingBlocks) {
	s.moving = m
}

// BoundingBox returns the current box of the player.
func (s *Solver) BoundingBox() cube.BBox {
	return s.box
}

// SetBoundingBox replaces the box of the player.
func (s *Solver) SetBoundingBox(box cube.BBox) {
	s.box = box
}

// CorrectMovement returns the part of delta the player can move without entering solid blocks. Static blocks
// are only considered with checkWorld set; blocks moved by pistons always are. With stepUp set, a player on
// the ground that walks into a block may climb it.
func (s *Solver) CorrectMovement(delta mgl64.Vec3, checkWorld, stepUp bool) mgl64.Vec3 {
	pistons := s.moving != nil && s.moving.Active()
	if !checkWorld && !pistons {
		return delta
	}
	box := s.box
	adjusted := delta
	if delta != (mgl64.Vec3{}) {
		adjusted = s.correct(delta, box, checkWorld)
	}
	if !stepUp {
		return adjusted
	}

	vertical := adjusted[1] != delta[1]
	horizontal := adjusted[0] != delta[0] || adjusted[2] != delta[2]
	if !(s.OnGround || (vertical && delta[1] < 0)) || !horizontal {
		return adjusted
	}

	flat := mgl64.Vec3{delta[0], 0, delta[2]}
	step := s.correct(flat.Add(mgl64.Vec3{0, StepHeight, 0}), box, checkWorld)
	maxStep := s.correct(mgl64.Vec3{0, StepHeight, 0}, ExtendBox(box, flat), checkWorld)[1]
	if maxStep < StepHeight {
		lowered := s.correct(flat, box.Translate(mgl64.Vec3{0, maxStep, 0}), checkWorld)
		if horizontalLenSqr(lowered) > horizontalLenSqr(step) {
			step = lowered.Add(mgl64.Vec3{0, maxStep, 0})
		}
	}
	if horizontalLenSqr(step) > horizontalLenSqr(adjusted) {
		rest := s.correct(mgl64.Vec3{0, delta[1] - step[1], 0}, box.Translate(step), checkWorld)[1]
		adjusted = step.Add(mgl64.Vec3{0, rest, 0})
	}
	return adjusted
}

// correct clips the movement axis by axis, Y first and then the larger of the horizontal axes.
func (s *Solver) correct(movement mgl64.Vec3, box cube.BBox, checkWorld bool) mgl64.Vec3 {
	positions := s.collidable(ExtendBox(box, movement))
	x, y, z := movement[0], movement[1], movement[2]

	if math.Abs(y) > Tolerance {
		y = s.offset(box, cube.Y, y, positions, checkWorld)
		box = box.Translate(mgl64.Vec3{0, y, 0})
	}
	zFirst := math.Abs(z) > math.Abs(x)
	if zFirst && math.Abs(z) > Tolerance {
		z = s.offset(box, cube.Z, z, positions, checkWorld)
		box = box.Translate(mgl64.Vec3{0, 0, z})
	}
	if math.Abs(x) > Tolerance {
		x = s.offset(box, cube.X, x, positions, checkWorld)
		box = box.Translate(mgl64.Vec3{x, 0, 0})
	}
	if !zFirst && math.Abs(z) > Tolerance {
		z = s.offset(box, cube.Z, z, positions, checkWorld)
	}
	return mgl64.Vec3{x, y, z}
}

func (s *Solver) offset(box cube.BBox, axis cube.Axis, offset float64, positions []cube.Pos, checkWorld bool) float64 {
	pistons := s.moving != nil && s.moving.Active()
	for _, pos := range positions {
		if checkWorld {
			origin := pos.Vec3()
			for _, b := range Boxes(s.world.BlockAt(pos)) {
				offset = AxisOffset(b.Translate(origin), box, axis, offset)
			}
		}
		if pistons {
			offset = s.moving.ComputeCollisionOffset(pos, box, axis, offset)
		}
		if math.Abs(offset) < Tolerance {
			return 0
		}
	}
	return offset
}

// collidable returns every block position the box could collide with. Moving blocks may stick out of
// their block by up to one block, so the range grows while pistons are active.
func (s *Solver) collidable(box cube.BBox) []cube.Pos {
	expand := Tolerance
	if s.moving != nil && s.moving.Active() {
		expand++
	}
	lo, hi := box.Min(), box.Max()
	var positions []cube.Pos
	for x := int(math.Floor(lo[0] - expand)); x <= int(math.Floor(hi[0]+expand)); x++ {
		for y := int(math.Floor(lo[1] - expand)); y <= int(math.Floor(hi[1]+expand)); y++ {
			for z := int(math.Floor(lo[2] - expand)); z <= int(math.Floor(hi[2]+expand)); z++ {
				positions = append(positions, cube.Pos{x, y, z})
			}
		}
	}
	return positions
}

func horizontalLenSqr(v mgl64.Vec3) float64 {
	return v[0]*v[0] + v[2]*v[2]
}
