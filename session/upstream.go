package session

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/oomph-ac/relay/blockbreak"
	"github.com/oomph-ac/relay/entity"
	"github.com/oomph-ac/relay/game"
	"github.com/oomph-ac/relay/piston"
	"github.com/oomph-ac/relay/prediction"
	"github.com/oomph-ac/relay/upstream"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// HandleEvent applies an event of the upstream server to the session. It must be called on the loop.
func (s *Session) HandleEvent(ev upstream.Event) {
	switch ev := ev.(type) {
	case upstream.ChunkLoad:
		s.loadChunk(ev)
	case upstream.ChunkUnload:
		s.mirror.DropColumn(ev.X, ev.Z)
	case upstream.BlockUpdate:
		s.ledger.Refresh(ev.Pos, s.conf.Registry.Block(ev.State))
	case upstream.BlockChangedAck:
		s.ledger.ConfirmUpTo(ev.Sequence)
	case upstream.EntitySpawn:
		s.spawnEntity(ev)
	case upstream.EntityMove:
		if e, ok := s.entities.ByUpstreamID(ev.ID); ok {
			s.entities.Move(e, game.Vec64To32(ev.Position))
		}
	case upstream.EntityRemove:
		s.removeEntities(ev.IDs)
	case upstream.PistonMove:
		s.pistons.Move(ev.Pos, ev.Orientation, ev.Sticky, pistonAction(ev.Action))
	case upstream.Respawn:
		s.Reset()
		s.mirror.Configure(ev.MinY, ev.Height)
	case upstream.BorderChange:
		s.border.SetCentre(ev.CentreX, ev.CentreZ)
		s.border.SetDiameter(ev.Diameter)
	case upstream.BossBarAdd:
		b := &entity.BossBar{ID: ev.ID, Title: ev.Title, Health: ev.Health, Colour: ev.Colour}
		if old := s.entities.AddBossBar(b); old != nil {
			s.SendClient(old.HidePacket())
		}
		s.SendClient(b.ShowPacket())
	case upstream.BossBarRemove:
		if b, ok := s.entities.RemoveBossBar(ev.ID); ok {
			s.SendClient(b.HidePacket())
		}
	case upstream.Cooldown:
		s.ledger.SetCooldown(ev.Item, ev.Ticks)
	case upstream.GameModeChange:
		s.player.mode = blockbreak.GameMode(ev.Mode)
		s.player.instantBuild = s.player.mode == blockbreak.Creative
		s.SendClient(&packet.SetPlayerGameType{GameType: clientGameType(s.player.mode)})
	case upstream.AbilitiesChange:
		s.player.permission = ev.PermissionLevel
		s.player.instantBuild = ev.InstantBuild
	case upstream.HeldItemChange:
		s.player.held = blockbreak.Held{
			Item:       s.conf.Registry.Item(ev.Item),
			Efficiency: ev.Efficiency,
			CanBreak:   ev.CanBreak,
		}
		s.player.effects.AquaAffinity = ev.AquaAffinity
	case upstream.EffectsChange:
		s.player.effects.Haste = ev.Haste
		s.player.effects.MiningFatigue = ev.MiningFatigue
	case upstream.SoundStart:
		s.ledger.StartSound(ev.Pos, ev.Name, ev.Ticks)
	case upstream.SoundStop:
		s.ledger.StopSound(ev.Pos)
	case upstream.TitleTimes:
		if ev.Reset {
			s.ledger.ResetTitleTimes()
			break
		}
		s.ledger.SetTitleTimes(prediction.TitleTimes{FadeIn: ev.FadeIn, Stay: ev.Stay, FadeOut: ev.FadeOut})
	default:
		s.log.Debugf("unhandled upstream event %T", ev)
	}
}

// loadChunk mirrors a chunk column. Air is skipped, as unwritten blocks read as air.
func (s *Session) loadChunk(ev upstream.ChunkLoad) {
	s.mirror.LoadColumn(ev.X, ev.Z)
	if !s.mirror.Enabled() {
		return
	}
	baseX, baseZ, minY := int(ev.X)<<4, int(ev.Z)<<4, s.mirror.Range()[0]
	for i, section := range ev.States {
		for index, id := range section {
			if id == 0 {
				continue
			}
			pos := cube.Pos{baseX + index&15, minY + i<<4 + index>>8, baseZ + (index>>4)&15}
			s.mirror.SetBlock(pos, s.conf.Registry.Block(id))
		}
	}
}

func (s *Session) spawnEntity(ev upstream.EntitySpawn) {
	kind := entity.KindOther
	switch ev.Kind {
	case upstream.EntityPlayer:
		kind = entity.KindPlayer
	case upstream.EntityItemFrame:
		kind = entity.KindItemFrame
	}
	e := entity.New(ev.ID, kind, game.Vec64To32(ev.Position))
	if kind == entity.KindPlayer {
		e = entity.NewPlayer(ev.ID, ev.UUID, game.Vec64To32(ev.Position))
	}
	if !s.entities.Register(e) {
		s.log.Debugf("entity %d spawned twice", ev.ID)
		return
	}
	if kind == entity.KindPlayer {
		s.entities.RegisterPlayer(ev.UUID, e)
	}
}

func (s *Session) removeEntities(ids []int32) {
	for _, id := range ids {
		e, ok := s.entities.ByUpstreamID(id)
		if !ok {
			continue
		}
		s.entities.Unregister(e)
		if e.Kind() == entity.KindPlayer {
			s.entities.UnregisterPlayer(e.UUID(), e)
		}
	}
}

func pistonAction(a upstream.PistonAction) piston.Action {
	switch a {
	case upstream.PistonPull:
		return piston.Pulling
	case upstream.PistonCancelledMidPush:
		return piston.CancelledMidPush
	}
	return piston.Pushing
}

func clientGameType(mode blockbreak.GameMode) int32 {
	switch mode {
	case blockbreak.Creative:
		return packet.GameTypeCreative
	case blockbreak.Adventure:
		return packet.GameTypeAdventure
	case blockbreak.Spectator:
		return packet.GameTypeSpectator
	}
	return packet.GameTypeSurvival
}
