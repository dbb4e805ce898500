package upstream

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Event is something the upstream server told the relay.
type Event interface {
	event()
}

// ChunkLoad announces the block states of a chunk column. States is indexed by section, then by
// y<<8|z<<4|x within the section. Sections may be nil if they are all air.
type ChunkLoad struct {
	X, Z   int32
	States [][]uint32
}

// ChunkUnload forgets a chunk column.
type ChunkUnload struct {
	X, Z int32
}

// BlockUpdate changes one block unconditionally.
type BlockUpdate struct {
	Pos   cube.Pos
	State uint32
}

// BlockChangedAck acknowledges every player action up to and including Sequence.
type BlockChangedAck struct {
	Sequence int32
}

// EntityKind is the category of a spawned entity.
type EntityKind uint8

const (
	EntityOther EntityKind = iota
	EntityPlayer
	EntityItemFrame
)

// EntitySpawn adds an entity.
type EntitySpawn struct {
	ID       int32
	Kind     EntityKind
	UUID     uuid.UUID
	Position mgl64.Vec3
}

// EntityMove teleports or moves an entity.
type EntityMove struct {
	ID       int32
	Position mgl64.Vec3
}

// EntityRemove removes entities.
type EntityRemove struct {
	IDs []int32
}

// PistonAction is what a piston was told to do.
type PistonAction uint8

const (
	PistonPush PistonAction = iota
	PistonPull
	// PistonCancelledMidPush retracts a piston that lost power before it finished extending.
	PistonCancelledMidPush
)

// PistonMove starts a piston moving. Orientation is the face the piston points to.
type PistonMove struct {
	Pos         cube.Pos
	Orientation cube.Face
	Action      PistonAction
	Sticky      bool
}

// Respawn moves the player to another dimension, or back into the same one after dying.
type Respawn struct {
	MinY, Height int
}

// BorderChange changes the world border.
type BorderChange struct {
	CentreX, CentreZ float64
	Diameter         float64
}

// BossBarAdd shows a boss bar.
type BossBarAdd struct {
	ID     uuid.UUID
	Title  string
	Health float32
	Colour uint32
}

// BossBarRemove hides a boss bar.
type BossBarRemove struct {
	ID uuid.UUID
}

// Cooldown puts an item on cooldown.
type Cooldown struct {
	Item  string
	Ticks uint64
}

// GameModeChange changes the game mode of the player. Modes are numbered survival, creative, adventure,
// spectator.
type GameModeChange struct {
	Mode uint8
}

// AbilitiesChange updates what the player is allowed to do.
type AbilitiesChange struct {
	PermissionLevel int
	InstantBuild    bool
}

// HeldItemChange announces the item in the player's main hand.
type HeldItemChange struct {
	Item       string
	Efficiency int
	// CanBreak lists the blocks the item may break in adventure mode.
	CanBreak []string
	// AquaAffinity is set when the player's helmet carries the enchantment.
	AquaAffinity bool
}

// EffectsChange sets the levels of the effects that change mining speed. Zero removes an effect.
type EffectsChange struct {
	Haste         int
	MiningFatigue int
}

// SoundStart starts a sound played by the block at Pos, such as a jukebox record. Zero Ticks plays it
// until a SoundStop.
type SoundStart struct {
	Pos   cube.Pos
	Name  string
	Ticks uint64
}

// SoundStop stops the sound played at Pos.
type SoundStop struct {
	Pos cube.Pos
}

// TitleTimes sets the fade timings of titles in ticks. Reset drops an override.
type TitleTimes struct {
	FadeIn, Stay, FadeOut int32
	Reset                 bool
}

func (ChunkLoad) event()       {}
func (ChunkUnload) event()     {}
func (BlockUpdate) event()     {}
func (BlockChangedAck) event() {}
func (EntitySpawn) event()     {}
func (EntityMove) event()      {}
func (EntityRemove) event()    {}
func (PistonMove) event()      {}
func (Respawn) event()         {}
func (BorderChange) event()    {}
func (BossBarAdd) event()      {}
func (BossBarRemove) event()   {}
func (Cooldown) event()        {}
func (GameModeChange) event()  {}
func (AbilitiesChange) event() {}
func (HeldItemChange) event()  {}
func (EffectsChange) event()   {}
func (SoundStart) event()      {}
func (SoundStop) event()       {}
func (TitleTimes) event()      {}
