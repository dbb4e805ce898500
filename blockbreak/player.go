package blockbreak

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/upstream"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// GameMode is the game mode of the player as the upstream server set it.
type GameMode uint8

const (
	Survival GameMode = iota
	Creative
	Adventure
	Spectator
)

// Held is the item in the player's main hand.
type Held struct {
	Item registry.Item
	// Efficiency is the level of the efficiency enchantment.
	Efficiency int
	// CanBreak lists the names of the blocks the item may break in adventure mode.
	CanBreak []string
}

// MayBreak reports whether the adventure mode predicates of the item allow breaking the block.
func (h Held) MayBreak(state registry.BlockState) bool {
	return slices.Contains(h.CanBreak, state.Name)
}

// Effects are the status effects and enchantments on the player that change mining speed. Levels are one
// based; zero means the effect is absent.
type Effects struct {
	Haste         int
	MiningFatigue int
	AquaAffinity  bool
}

// Player is the state of the session's player that decides how it may mine.
type Player interface {
	GameMode() GameMode
	// InstantBuild reports whether every block breaks in one hit, as in creative mode.
	InstantBuild() bool
	// HandsBusy reports whether the player is doing something that keeps it from mining, such as eating.
	HandsBusy() bool
	PermissionLevel() int
	Sneaking() bool

	// Position is the position of the player's feet.
	Position() mgl64.Vec3
	OnGround() bool
	// Submerged reports whether the player's eyes are under water.
	Submerged() bool

	HeldItem() Held
	Effects() Effects
}

// Transport carries the engine's output. Both methods are fire-and-forget and keep the order of calls.
type Transport interface {
	SendUpstream(a upstream.Action)
	SendClient(pk packet.Packet)
}
