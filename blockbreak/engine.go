package blockbreak

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/entity"
	"github.com/oomph-ac/relay/game"
	"github.com/oomph-ac/relay/prediction"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/upstream"
	"github.com/oomph-ac/relay/utils"
	"github.com/oomph-ac/relay/world"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/sirupsen/logrus"
)

// DefaultInteractionRange is the distance from the eyes of the player within which blocks may be broken
// when Config.InteractionRange is left zero.
const DefaultInteractionRange = 6.0

const eyeHeight = 1.62

// Config holds the collaborators of an Engine.
type Config struct {
	Player Player
	// World is the authoritative view of the blocks around the player.
	World     world.Source
	Border    *world.Border
	Entities  *entity.Map
	Ledger    *prediction.Ledger
	Registry  *registry.Registry
	Transport Transport
	Log       *logrus.Logger

	// AllowBreak, if set, is asked before the client is shown a block breaking. Returning false restores
	// the block instead, while the server still decides what happens to it.
	AllowBreak func(pos cube.Pos, state registry.BlockState) bool
	// InteractionRange is the reach of the player. Zero means DefaultInteractionRange.
	InteractionRange float64
}

// MiningState is the block the player is currently breaking.
type MiningState struct {
	Pos   cube.Pos
	State registry.BlockState
	Face  cube.Face
	// StartTick is the tick the break started on.
	StartTick uint64
	// Progress is the fraction of the block broken so far, in [0, 1].
	Progress float64
	// TickAccurate is set when the client cannot know the break time of the block, so that the break is
	// timed in ticks since StartTick instead of accumulated progress.
	TickAccurate bool

	lastAdvance uint64
}

// Engine turns the block actions of the client into the digging actions the upstream server expects, while
// keeping the break visuals of the client in line with the server's timing.
type Engine struct {
	conf Config

	mining       *MiningState
	lastInstant  *cube.Pos
	destroyDelay int
	// delayTick is the last tick the destroy delay was counted down on.
	delayTick uint64
	tick      uint64
}

// New returns an Engine using the collaborators in conf.
func New(conf Config) *Engine {
	if conf.InteractionRange == 0 {
		conf.InteractionRange = DefaultInteractionRange
	}
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	return &Engine{conf: conf}
}

// batch is the per-tick state of one call to OnInputBatch.
type batch struct {
	actions []Action
	tick    uint64

	restored  map[cube.Pos]struct{}
	framed    map[cube.Pos]struct{}
	addressed map[cube.Pos]int
}

func (b *batch) wasRestored(pos cube.Pos) bool {
	_, ok := b.restored[pos]
	return ok
}

func (b *batch) wasFramed(pos cube.Pos) bool {
	_, ok := b.framed[pos]
	return ok
}

// predictFollows reports whether a PredictDestroy for pos appears after index i.
func (b *batch) predictFollows(i int, pos cube.Pos) bool {
	for _, a := range b.actions[i+1:] {
		if p, ok := a.(PredictDestroy); ok && p.Pos == pos {
			return true
		}
	}
	return false
}

var handlers = [kindCount]func(e *Engine, b *batch, i int){
	KindDropItem:        (*Engine).handleDropItem,
	KindStartBreak:      (*Engine).handleStartBreak,
	KindContinueDestroy: (*Engine).handleContinueDestroy,
	KindPredictDestroy:  (*Engine).handlePredictDestroy,
	KindAbortBreak:      (*Engine).handleAbortBreak,
}

// OnInputBatch handles all block actions the client sent for one tick.
func (e *Engine) OnInputBatch(actions []Action, tick uint64) {
	e.tick = tick
	b := &batch{
		actions:   Dedupe(actions),
		tick:      tick,
		restored:  make(map[cube.Pos]struct{}),
		framed:    make(map[cube.Pos]struct{}),
		addressed: make(map[cube.Pos]int),
	}
	for i, a := range b.actions {
		k := a.Kind()
		if k >= kindCount || handlers[k] == nil {
			e.conf.Log.Errorf(game.ErrorInternalUnknownAction, k)
			continue
		}
		if p, ok := a.(Positioned); ok {
			b.addressed[p.Position()]++
		}
		handlers[k](e, b, i)
	}
}

// Tick advances the block being broken even if the client sent nothing this tick. While idle, it counts
// down the delay between instant breaks.
func (e *Engine) Tick(tick uint64) {
	e.tick = tick
	if e.mining == nil {
		e.countDown(tick)
		return
	}
	m := e.mining
	finished, advanced := e.advance(tick)
	if finished {
		e.destroyBlock(m.State, m.Pos, m.Face, false)
	} else if advanced {
		e.updateCracking(m)
	}
}

// countDown takes one tick off the delay between instant breaks, at most once per tick.
func (e *Engine) countDown(tick uint64) {
	if e.destroyDelay > 0 && tick != e.delayTick {
		e.destroyDelay--
	}
	e.delayTick = tick
}

// Mining returns the block being broken, if any.
func (e *Engine) Mining() (MiningState, bool) {
	if e.mining == nil {
		return MiningState{}, false
	}
	return *e.mining, true
}

// Reset forgets the block being broken without telling anyone.
func (e *Engine) Reset() {
	e.mining, e.lastInstant, e.destroyDelay = nil, nil, 0
}

// CanBreak reports whether the player may break the block at all right now.
func (e *Engine) CanBreak(pos cube.Pos, state registry.BlockState) bool {
	p := e.conf.Player
	if p.HandsBusy() {
		return false
	}
	if e.conf.Border != nil && !e.conf.Border.InsideBoundaries(p.Position()) {
		return false
	}
	switch p.GameMode() {
	case Spectator:
		return false
	case Adventure:
		if !p.HeldItem().MayBreak(state) {
			return false
		}
	}
	eye := p.Position().Add(mgl64.Vec3{0, eyeHeight, 0})
	centre := pos.Vec3Centre()
	return eye.Sub(centre).Len() <= e.conf.InteractionRange+math.Sqrt(3)/2
}

func (e *Engine) handleDropItem(b *batch, i int) {
	status := upstream.DropItem
	if b.actions[i].(DropItem).Stack {
		status = upstream.DropItemStack
	}
	e.conf.Transport.SendUpstream(upstream.PlayerAction{Status: status, Face: cube.FaceDown})
}

func (e *Engine) handleStartBreak(b *batch, i int) {
	a := b.actions[i].(StartBreak)
	e.startBreak(b, a.Pos, a.Face)
}

func (e *Engine) handleContinueDestroy(b *batch, i int) {
	a := b.actions[i].(ContinueDestroy)
	if e.isLastInstant(a.Pos) || b.wasRestored(a.Pos) || b.wasFramed(a.Pos) {
		return
	}
	if e.conf.Player.InstantBuild() {
		// Creative clients only ever continue destroying, one block after the other.
		e.startBreak(b, a.Pos, a.Face)
		return
	}
	if len(b.restored) > 0 || !e.CanBreak(a.Pos, e.conf.World.BlockAt(a.Pos)) {
		e.stopCracking(a.Pos)
		b.restored[a.Pos] = struct{}{}
		return
	}
	if e.mining == nil || e.mining.Pos != a.Pos {
		e.startBreak(b, a.Pos, a.Face)
		return
	}
	if b.addressed[a.Pos] == 2 && b.predictFollows(i, a.Pos) {
		return
	}

	m := e.mining
	m.Face = a.Face
	finished, advanced := e.advance(b.tick)
	if finished {
		e.destroyBlock(m.State, m.Pos, a.Face, false)
		return
	}
	if advanced {
		e.updateCracking(m)
	}
}

func (e *Engine) handlePredictDestroy(b *batch, i int) {
	a := b.actions[i].(PredictDestroy)
	if e.isLastInstant(a.Pos) || b.wasFramed(a.Pos) || e.conf.Player.InstantBuild() {
		return
	}
	if b.wasRestored(a.Pos) {
		e.restore(a.Pos)
		return
	}
	if e.mining == nil || e.mining.Pos != a.Pos {
		e.conf.Log.Warnf(game.WarningPredictWithoutBreak, a.Pos, e.mining != nil)
		e.stopCracking(a.Pos)
		e.restore(a.Pos)
		b.restored[a.Pos] = struct{}{}
		return
	}
	if !e.CanBreak(a.Pos, e.mining.State) {
		e.stopCracking(a.Pos)
		e.restore(a.Pos)
		b.restored[a.Pos] = struct{}{}
		return
	}
	e.destroyBlock(e.mining.State, a.Pos, a.Face, false)
}

func (e *Engine) handleAbortBreak(b *batch, i int) {
	a := b.actions[i].(AbortBreak)
	if e.isLastInstant(a.Pos) {
		e.lastInstant = nil
		return
	}
	if b.wasFramed(a.Pos) {
		return
	}
	if e.conf.Player.GameMode() != Creative && e.attackItemFrame(a.Pos) {
		b.framed[a.Pos] = struct{}{}
		return
	}
	if e.mining != nil {
		e.conf.Transport.SendUpstream(upstream.PlayerAction{
			Status: upstream.CancelDigging,
			Pos:    e.mining.Pos,
			Face:   cube.FaceDown,
		})
		e.mining = nil
	}
	e.stopCracking(a.Pos)
}

func (e *Engine) startBreak(b *batch, pos cube.Pos, face cube.Face) {
	p := e.conf.Player
	if p.GameMode() != Creative && e.attackItemFrame(pos) {
		b.framed[pos] = struct{}{}
		return
	}
	state := e.conf.World.BlockAt(pos)
	if len(b.restored) > 0 || !e.CanBreak(pos, state) {
		e.stopCracking(pos)
		b.restored[pos] = struct{}{}
		return
	}
	if e.mining != nil && e.mining.Pos != pos {
		e.stopCracking(e.mining.Pos)
		e.conf.Transport.SendUpstream(upstream.PlayerAction{
			Status:   upstream.CancelDigging,
			Pos:      e.mining.Pos,
			Face:     e.mining.Face,
			Sequence: e.conf.Ledger.NextSequence(),
		})
		e.mining = nil
	}
	e.lastInstant = nil

	// The client hits the block behind fire, so the fire itself is put out first.
	if fire := pos.Side(face); e.conf.World.BlockAt(fire).Fire() {
		e.conf.Transport.SendUpstream(upstream.PlayerAction{
			Status:   upstream.StartDigging,
			Pos:      fire,
			Face:     face,
			Sequence: e.conf.Ledger.NextSequence(),
		})
	}

	progress := ProgressPerTick(state, e.conditions())
	if p.InstantBuild() {
		if e.destroyDelay > 0 {
			e.countDown(b.tick)
			e.stopCracking(pos)
			e.restore(pos)
			b.restored[pos] = struct{}{}
			return
		}
		e.destroyDelay, e.delayTick = game.CreativeDestroyDelay, b.tick
		progress = 1
	}
	if progress >= 1 {
		e.destroyBlock(state, pos, face, true)
		e.lastInstant = &pos
		return
	}

	held := p.HeldItem()
	e.mining = &MiningState{
		Pos:          pos,
		State:        state,
		Face:         face,
		StartTick:    b.tick,
		TickAccurate: state.Custom || held.Item.Custom,
		lastAdvance:  b.tick,
	}
	e.conf.Transport.SendClient(&packet.LevelEvent{
		EventType: packet.LevelEventStartBlockCracking,
		Position:  utils.BlockVec(pos),
		EventData: crackSpeed(progress),
	})
	e.crackParticles(pos, face, state)
	e.conf.Transport.SendUpstream(upstream.PlayerAction{
		Status:   upstream.StartDigging,
		Pos:      pos,
		Face:     face,
		Sequence: e.conf.Ledger.NextSequence(),
	})
}

// advance adds one tick of progress to the block being broken. Progress is added at most once per tick,
// however many actions or sweeps address the block on that tick.
func (e *Engine) advance(tick uint64) (finished, advanced bool) {
	m := e.mining
	if tick <= m.lastAdvance {
		return false, false
	}
	m.lastAdvance = tick

	perTick := ProgressPerTick(m.State, e.conditions())
	if m.TickAccurate {
		required := BreakTicks(perTick)
		if required == math.MaxInt {
			return false, true
		}
		elapsed := int(tick - m.StartTick)
		m.Progress = max(m.Progress, min(1, float64(elapsed)/float64(required)))
		return elapsed >= required+game.BreakSlackTicks, true
	}
	m.Progress = min(1, m.Progress+perTick)
	return m.Progress >= 1-game.BreakProgressEpsilon, true
}

// destroyBlock tells the server the block at pos was broken and, if it is legal for the client to see it
// break, shows the destruction ahead of the server.
func (e *Engine) destroyBlock(state registry.BlockState, pos cube.Pos, face cube.Face, instant bool) {
	seq := e.conf.Ledger.NextSequence()
	e.conf.Ledger.MarkSpeculative(pos)

	status := upstream.FinishDigging
	if instant {
		status = upstream.StartDigging
	}
	e.conf.Transport.SendUpstream(upstream.PlayerAction{Status: status, Pos: pos, Face: face, Sequence: seq})

	if e.canDestroy(state) && (e.conf.AllowBreak == nil || e.conf.AllowBreak(pos, state)) {
		e.conf.Transport.SendClient(&packet.LevelEvent{
			EventType: packet.LevelEventParticlesDestroyBlock,
			Position:  utils.BlockVec(pos),
			EventData: int32(state.RuntimeID),
		})
	} else {
		e.stopCracking(pos)
		e.restore(pos)
	}
	e.mining = nil
}

// canDestroy reports whether the client may see the block break before the server confirms it.
func (e *Engine) canDestroy(state registry.BlockState) bool {
	p := e.conf.Player
	creative := p.GameMode() == Creative
	if creative && p.HeldItem().Item.NoCreativeBreak {
		return false
	}
	if state.GameMaster && (!creative || p.PermissionLevel() < game.GameMasterPermissionLevel) {
		return false
	}
	return !state.Air()
}

func (e *Engine) conditions() Conditions {
	p := e.conf.Player
	return Conditions{
		Held:      p.HeldItem(),
		Effects:   p.Effects(),
		OnGround:  p.OnGround(),
		Submerged: p.Submerged(),
	}
}

func (e *Engine) isLastInstant(pos cube.Pos) bool {
	return e.lastInstant != nil && *e.lastInstant == pos
}

// attackItemFrame attacks the item frame at pos, if there is one, which takes its item out.
func (e *Engine) attackItemFrame(pos cube.Pos) bool {
	if e.conf.Entities == nil {
		return false
	}
	frame, ok := e.conf.Entities.ItemFrameAt(pos)
	if !ok {
		return false
	}
	e.conf.Transport.SendUpstream(upstream.Interact{
		EntityID: frame.UpstreamID(),
		Attack:   true,
		Sneaking: e.conf.Player.Sneaking(),
	})
	return true
}

func (e *Engine) restore(pos cube.Pos) {
	for _, pk := range utils.UpdateBlockPackets(e.conf.Registry, pos, e.conf.World.BlockAt(pos)) {
		e.conf.Transport.SendClient(pk)
	}
}

func (e *Engine) stopCracking(pos cube.Pos) {
	e.conf.Transport.SendClient(&packet.LevelEvent{
		EventType: packet.LevelEventStopBlockCracking,
		Position:  utils.BlockVec(pos),
	})
}

func (e *Engine) updateCracking(m *MiningState) {
	e.conf.Transport.SendClient(&packet.LevelEvent{
		EventType: packet.LevelEventUpdateBlockCracking,
		Position:  utils.BlockVec(m.Pos),
		EventData: crackSpeed(ProgressPerTick(m.State, e.conditions())),
	})
	e.crackParticles(m.Pos, m.Face, m.State)
}

func (e *Engine) crackParticles(pos cube.Pos, face cube.Face, state registry.BlockState) {
	e.conf.Transport.SendClient(&packet.LevelEvent{
		EventType: packet.LevelEventParticlesCrackBlock,
		Position:  utils.BlockVec(pos),
		EventData: int32(state.RuntimeID) | int32(face)<<24,
	})
}

// crackSpeed converts progress per tick to the speed of the crack animation of the client, which runs from
// 0 to 65535.
func crackSpeed(progress float64) int32 {
	return int32(math.Min(65535, 65535*progress))
}
