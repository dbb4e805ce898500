package piston

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/collision"
	"github.com/oomph-ac/relay/game"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/utils"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/sirupsen/logrus"
)

// Blocks is the mirrored world pistons move blocks around in. SetBlock only changes the mirror, the
// Simulator tells the client about changes itself.
type Blocks interface {
	BlockAt(pos cube.Pos) registry.BlockState
	SetBlock(pos cube.Pos, state registry.BlockState)
}

// CollisionSolver owns the bounding box of the player and corrects movement applied to it.
type CollisionSolver interface {
	CorrectMovement(delta mgl64.Vec3, checkWorld, stepUp bool) mgl64.Vec3
	BoundingBox() cube.BBox
	SetBoundingBox(box cube.BBox)
}

// Player is the session's player as the client sees it.
type Player interface {
	OnGround() bool
	// MoveClient moves the player on the client so that its feet are at pos.
	MoveClient(pos mgl64.Vec3, onGround bool)
	// SetClientMotion sets the velocity of the player on the client.
	SetClientMotion(motion mgl64.Vec3)
}

// Client receives the block entity and block updates that animate pistons.
type Client interface {
	SendClient(pk packet.Packet)
}

// Config holds the collaborators of a Simulator.
type Config struct {
	Blocks   Blocks
	Solver   CollisionSolver
	Player   Player
	Client   Client
	Registry *registry.Registry
	Log      *logrus.Logger

	// OnDesync is called with the starting positions of orphaned moving blocks when the moving block index
	// is found holding blocks of pistons that are no longer active.
	OnDesync func(orphans []cube.Pos)
}

// Simulator animates the pistons around the player the way the client would and pushes the player out of
// the way of the blocks they move.
type Simulator struct {
	conf Config

	pistons *orderedmap.OrderedMap[cube.Pos, *Movement]
	// moving maps the starting position of every moving block, and of every piston head, to the piston
	// moving it.
	moving map[cube.Pos]*Movement

	displacement   mgl64.Vec3
	motion         mgl64.Vec3
	collided       bool
	slimeCollision bool
	honeyAttached  bool
}

// New returns a Simulator without any active pistons.
func New(conf Config) *Simulator {
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	return &Simulator{
		conf:    conf,
		pistons: orderedmap.NewOrderedMap[cube.Pos, *Movement](),
		moving:  make(map[cube.Pos]*Movement),
	}
}

// Move handles the server starting to move the piston at pos.
func (s *Simulator) Move(pos cube.Pos, orientation cube.Face, sticky bool, action Action) {
	m, ok := s.pistons.Get(pos)
	if !ok {
		m = newMovement(s, pos, orientation, sticky, action != Pushing)
		s.pistons.Set(pos, m)
	}
	m.setAction(action)
}

// Tick advances every piston by one tick.
func (s *Simulator) Tick() {
	s.displacement, s.motion = mgl64.Vec3{}, mgl64.Vec3{}
	s.collided, s.slimeCollision, s.honeyAttached = false, false, false

	if s.pistons.Len() > 0 {
		for el := s.pistons.Front(); el != nil; el = el.Next() {
			el.Value.updateMovement()
		}
		s.sendPlayerMovement()
		// Blocks are placed after the player moved so that the player is never inside a block that has
		// not arrived yet.
		for el := s.pistons.Front(); el != nil; el = el.Next() {
			el.Value.updateBlocks()
		}

		var done []cube.Pos
		for el := s.pistons.Front(); el != nil; el = el.Next() {
			if el.Value.canBeRemoved() {
				done = append(done, el.Key)
			}
		}
		for _, pos := range done {
			s.pistons.Delete(pos)
		}
	}
	s.checkOrphans()
}

func (s *Simulator) sendPlayerMovement() {
	if s.displacement != (mgl64.Vec3{}) && s.motion == (mgl64.Vec3{}) {
		onGround := s.displacement[1] > 0 || s.conf.Player.OnGround()
		s.conf.Player.MoveClient(collision.BottomCentre(s.conf.Solver.BoundingBox()), onGround)
	}
	if s.motion != (mgl64.Vec3{}) {
		s.conf.Player.SetClientMotion(s.motion)
	}
}

// checkOrphans reports moving blocks left in the index after every piston finished, and drops them so
// that collisions are no longer resolved against them.
func (s *Simulator) checkOrphans() {
	if s.pistons.Len() != 0 || len(s.moving) == 0 {
		return
	}
	s.conf.Log.Errorf(game.ErrorInternalOrphanedMovingBlock, len(s.moving))
	orphans := make([]cube.Pos, 0, len(s.moving))
	for pos, m := range s.moving {
		data := orderedmap.NewOrderedMap[string, any]()
		data.Set("block", pos)
		data.Set("piston", m.pos)
		data.Set("progress", m.progress)
		s.conf.Log.Errorf("orphaned moving block %s", utils.OrderedMapToString(data))
		orphans = append(orphans, pos)
	}
	clear(s.moving)
	if s.conf.OnDesync != nil {
		s.conf.OnDesync(orphans)
	}
}

// DisplacePlayer moves the player by delta. The displacement accumulated over one tick never exceeds
// game.MaxPistonDisplacement on any axis.
func (s *Simulator) DisplacePlayer(delta mgl64.Vec3) {
	total := game.ClampVec64(s.displacement.Add(delta), game.MaxPistonDisplacement)
	d := s.conf.Solver.CorrectMovement(total.Sub(s.displacement), true, false)
	s.conf.Solver.SetBoundingBox(s.conf.Solver.BoundingBox().Translate(d))
	s.displacement = total
}

// ComputeCollisionOffset returns how far box may move along the axis before hitting the block moving from
// pos, which is at most offset. Positions without a moving block return offset unchanged.
func (s *Simulator) ComputeCollisionOffset(pos cube.Pos, box cube.BBox, axis cube.Axis, offset float64) float64 {
	if m, ok := s.moving[pos]; ok {
		return m.computeCollisionOffset(pos, box, axis, offset)
	}
	return offset
}

// CheckCollision reports whether box intersects with the block moving from pos.
func (s *Simulator) CheckCollision(pos cube.Pos, box cube.BBox) bool {
	if m, ok := s.moving[pos]; ok {
		return m.checkCollision(pos, box)
	}
	return false
}

// Active reports whether any piston is still moving.
func (s *Simulator) Active() bool {
	return s.pistons.Len() > 0
}

// Len returns the amount of active pistons.
func (s *Simulator) Len() int {
	return s.pistons.Len()
}

// MovingBlocks returns the amount of entries in the moving block index.
func (s *Simulator) MovingBlocks() int {
	return len(s.moving)
}

func (s *Simulator) Displacement() mgl64.Vec3 { return s.displacement }
func (s *Simulator) Motion() mgl64.Vec3       { return s.motion }
func (s *Simulator) Collided() bool           { return s.collided }
func (s *Simulator) SlimeCollision() bool     { return s.slimeCollision }
func (s *Simulator) AttachedToHoney() bool    { return s.honeyAttached }

// Reset forgets every piston, for example after a dimension change.
func (s *Simulator) Reset() {
	s.pistons = orderedmap.NewOrderedMap[cube.Pos, *Movement]()
	clear(s.moving)
	s.displacement, s.motion = mgl64.Vec3{}, mgl64.Vec3{}
	s.collided, s.slimeCollision, s.honeyAttached = false, false, false
}

// index records m as the owner of the block moving from pos.
func (s *Simulator) index(pos cube.Pos, m *Movement) {
	if owner, ok := s.moving[pos]; ok && owner != m {
		s.conf.Log.Errorf(game.ErrorInternalMovingBlockCollision, pos, owner.pos)
	}
	s.moving[pos] = m
}

// unindex removes pos from the index, if m owns it.
func (s *Simulator) unindex(pos cube.Pos, m *Movement) {
	if s.moving[pos] == m {
		delete(s.moving, pos)
	}
}
