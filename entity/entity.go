package entity

import (
	df_cube "github.com/df-mc/dragonfly/server/block/cube"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/oomph-ac/relay/game"
)

// Kind is the broad category of an entity, as far as the session cares.
type Kind uint8

const (
	KindOther Kind = iota
	KindPlayer
	// KindItemFrame entities occupy a block position and are attacked instead of mined.
	KindItemFrame
)

// Entity is an entity known to one session. It carries the ID the upstream server assigned it and the ID the
// session issued for the client.
type Entity struct {
	// upstreamID is the ID assigned by the upstream server.
	upstreamID int32
	// localID is the ID sent to the client. It is zero until the entity is registered.
	localID uint64
	// kind is the category of the entity.
	kind Kind
	// uuid identifies a player across sessions. It is the zero UUID for other entities.
	uuid uuid.UUID

	// position is the bottom centre of the entity.
	position mgl32.Vec3
	// aabb is the bounding box of the entity relative to its position.
	aabb cube.BBox
}

// defaultAABB is the default AABB for newly created entities.
var defaultAABB = game.AABBFromDimensions(0.6, 1.8)

// itemFrameAABB covers the block an item frame hangs in.
var itemFrameAABB = cube.Box(-0.5, 0, -0.5, 0.5, 1, 0.5)

// New creates an entity that the upstream server refers to with the ID passed.
func New(upstreamID int32, kind Kind, position mgl32.Vec3) *Entity {
	e := &Entity{
		upstreamID: upstreamID,
		kind:       kind,
		position:   position,
		aabb:       defaultAABB,
	}
	if kind == KindItemFrame {
		e.aabb = itemFrameAABB
	}
	return e
}

// NewPlayer creates a player entity.
func NewPlayer(upstreamID int32, id uuid.UUID, position mgl32.Vec3) *Entity {
	e := New(upstreamID, KindPlayer, position)
	e.uuid = id
	return e
}

// UpstreamID returns the ID the upstream server uses for the entity.
func (e *Entity) UpstreamID() int32 {
	return e.upstreamID
}

// LocalID returns the ID the client knows the entity by.
func (e *Entity) LocalID() uint64 {
	return e.localID
}

// Kind returns the category of the entity.
func (e *Entity) Kind() Kind {
	return e.kind
}

// UUID returns the cross-session identity of a player entity.
func (e *Entity) UUID() uuid.UUID {
	return e.uuid
}

// Position returns the bottom centre of the entity.
func (e *Entity) Position() mgl32.Vec3 {
	return e.position
}

// SetPosition moves the entity.
func (e *Entity) SetPosition(pos mgl32.Vec3) {
	e.position = pos
}

// BlockPos returns the block the entity's position is in.
func (e *Entity) BlockPos() df_cube.Pos {
	return game.BlockPosOf(e.position)
}

// Box returns the bounding box of the entity at its current position.
func (e *Entity) Box() cube.BBox {
	return e.aabb.Translate(e.position)
}
