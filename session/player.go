package session

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/blockbreak"
	"github.com/oomph-ac/relay/game"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

const eyeHeight = 1.62

// player is the session's own player, as far as mining and pistons are concerned.
type player struct {
	s *Session

	mode         blockbreak.GameMode
	instantBuild bool
	handsBusy    bool
	permission   int
	sneaking     bool

	position            mgl64.Vec3
	pitch, yaw, headYaw float32
	onGround            bool

	held    blockbreak.Held
	effects blockbreak.Effects
}

func (p *player) GameMode() blockbreak.GameMode { return p.mode }
func (p *player) InstantBuild() bool            { return p.instantBuild }
func (p *player) HandsBusy() bool               { return p.handsBusy }
func (p *player) PermissionLevel() int          { return p.permission }
func (p *player) Sneaking() bool                { return p.sneaking }
func (p *player) Position() mgl64.Vec3          { return p.position }
func (p *player) OnGround() bool                { return p.onGround }
func (p *player) HeldItem() blockbreak.Held     { return p.held }
func (p *player) Effects() blockbreak.Effects   { return p.effects }

// Submerged reports whether the eyes of the player are in a liquid.
func (p *player) Submerged() bool {
	return p.s.blocks.BlockAt(cube.PosFromVec3(p.position.Add(mgl64.Vec3{0, eyeHeight, 0}))).Liquid()
}

// MoveClient moves the player on the client to the feet position passed.
func (p *player) MoveClient(pos mgl64.Vec3, onGround bool) {
	p.position, p.onGround = pos, onGround
	p.s.SendClient(&packet.MovePlayer{
		EntityRuntimeID: p.s.runtimeID,
		Position:        game.Vec64To32(pos.Add(mgl64.Vec3{0, eyeHeight, 0})),
		Pitch:           p.pitch,
		Yaw:             p.yaw,
		HeadYaw:         p.headYaw,
		Mode:            packet.MoveModeNormal,
		OnGround:        onGround,
		Tick:            p.s.tick,
	})
}

// SetClientMotion sets the velocity of the player on the client.
func (p *player) SetClientMotion(motion mgl64.Vec3) {
	p.s.SendClient(&packet.SetActorMotion{
		EntityRuntimeID: p.s.runtimeID,
		Velocity:        game.Vec64To32(motion),
		Tick:            p.s.tick,
	})
}

// SetHandsBusy marks the player as using an item, which keeps it from mining. It must be called on the
// loop.
func (s *Session) SetHandsBusy(busy bool) {
	s.player.handsBusy = busy
}
