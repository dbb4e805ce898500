package session

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/blockbreak"
	"github.com/oomph-ac/relay/game"
	"github.com/oomph-ac/relay/utils"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// groundProbe is how far below the feet of the player a block counts as ground.
const groundProbe = 0.01

func (s *Session) handleAuthInput(pk *packet.PlayerAuthInput) {
	p := s.player
	p.position = game.Vec32To64(pk.Position).Sub(mgl64.Vec3{0, eyeHeight, 0})
	p.pitch, p.yaw, p.headYaw = pk.Pitch, pk.Yaw, pk.HeadYaw
	if pk.InputData.Load(packet.InputFlagStartSneaking) {
		p.sneaking = true
	} else if pk.InputData.Load(packet.InputFlagStopSneaking) {
		p.sneaking = false
	}

	s.solver.SetBoundingBox(playerBox(p.position))
	p.onGround = s.solver.CorrectMovement(mgl64.Vec3{0, -groundProbe, 0}, true, false)[1] > -groundProbe
	s.solver.OnGround = p.onGround

	actions := s.drops
	s.drops = nil
	if pk.InputData.Load(packet.InputFlagPerformBlockActions) {
		actions = append(actions, s.translateBlockActions(pk.BlockActions)...)
	}
	if len(actions) > 0 {
		s.OnInputBatch(actions, s.tick)
	}
}

// translateBlockActions turns the block actions of an input packet into the actions the block breaker
// handles. Actions on an invalid face are dropped.
func (s *Session) translateBlockActions(in []protocol.PlayerBlockAction) []blockbreak.Action {
	out := make([]blockbreak.Action, 0, len(in))
	for _, a := range in {
		pos := utils.CubePos(a.BlockPos)
		if a.Action == protocol.PlayerActionAbortBreak {
			f, ok := blockFace(a.Face)
			if !ok {
				f = cube.FaceDown
			}
			out = append(out, blockbreak.AbortBreak{Pos: pos, Face: f})
			continue
		}

		var kind blockbreak.Kind
		switch a.Action {
		case protocol.PlayerActionStartBreak:
			kind = blockbreak.KindStartBreak
		case protocol.PlayerActionContinueDestroyBlock, protocol.PlayerActionCrackBreak:
			kind = blockbreak.KindContinueDestroy
		case protocol.PlayerActionPredictDestroyBlock:
			kind = blockbreak.KindPredictDestroy
		default:
			continue
		}
		f, ok := blockFace(a.Face)
		if !ok {
			s.log.Warnf(game.WarningUnknownBlockFace, a.Face)
			continue
		}
		switch kind {
		case blockbreak.KindStartBreak:
			out = append(out, blockbreak.StartBreak{Pos: pos, Face: f})
		case blockbreak.KindContinueDestroy:
			out = append(out, blockbreak.ContinueDestroy{Pos: pos, Face: f})
		case blockbreak.KindPredictDestroy:
			out = append(out, blockbreak.PredictDestroy{Pos: pos, Face: f})
		}
	}
	return out
}

func blockFace(face int32) (cube.Face, bool) {
	if face < 0 || face > int32(cube.FaceEast) {
		return 0, false
	}
	return cube.Face(face), true
}
