package blockbreak

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/entity"
	"github.com/oomph-ac/relay/prediction"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/upstream"
	"github.com/oomph-ac/relay/world"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var (
	air    = registry.BlockState{ID: 0, Name: "minecraft:air", RuntimeID: 100}
	stone  = registry.BlockState{ID: 1, Name: "minecraft:stone", RuntimeID: 101, Hardness: 1.5, Tool: registry.ToolPickaxe, Tier: registry.TierWood, RequiresTool: true, Solid: true}
	grass  = registry.BlockState{ID: 2, Name: "minecraft:short_grass", RuntimeID: 102}
	fire   = registry.BlockState{ID: 3, Name: "minecraft:fire", RuntimeID: 103}
	glass  = registry.BlockState{ID: 4, Name: "minecraft:glass", RuntimeID: 104, Hardness: 0.1, RequiresTool: true, Solid: true}
	cmd    = registry.BlockState{ID: 5, Name: "minecraft:command_block", RuntimeID: 105, Hardness: -1, GameMaster: true, Solid: true}
	custom = registry.BlockState{ID: 6, Name: "relay:crystal", RuntimeID: 106, Hardness: 0.1, RequiresTool: true, Custom: true, Solid: true}
)

type fakePlayer struct {
	mode       GameMode
	instant    bool
	busy       bool
	permission int
	position   mgl64.Vec3
	airborne   bool
	held       Held
}

func (p *fakePlayer) GameMode() GameMode   { return p.mode }
func (p *fakePlayer) InstantBuild() bool   { return p.instant }
func (p *fakePlayer) HandsBusy() bool      { return p.busy }
func (p *fakePlayer) PermissionLevel() int { return p.permission }
func (p *fakePlayer) Sneaking() bool       { return false }
func (p *fakePlayer) Position() mgl64.Vec3 { return p.position }
func (p *fakePlayer) OnGround() bool       { return !p.airborne }
func (p *fakePlayer) Submerged() bool      { return false }
func (p *fakePlayer) HeldItem() Held       { return p.held }
func (p *fakePlayer) Effects() Effects     { return Effects{} }

type fakeWorld struct {
	blocks map[cube.Pos]registry.BlockState
}

func (w *fakeWorld) BlockAt(pos cube.Pos) registry.BlockState {
	if b, ok := w.blocks[pos]; ok {
		return b
	}
	return air
}

func (w *fakeWorld) SetBlock(pos cube.Pos, state registry.BlockState) {
	w.blocks[pos] = state
}

func (w *fakeWorld) UpdateBlock(cube.Pos, registry.BlockState) {}

type recorder struct {
	upstream []upstream.Action
	client   []packet.Packet
}

func (r *recorder) SendUpstream(a upstream.Action) { r.upstream = append(r.upstream, a) }
func (r *recorder) SendClient(pk packet.Packet)    { r.client = append(r.client, pk) }

// digs returns the upstream player actions with the status passed.
func (r *recorder) digs(status upstream.DigStatus) []upstream.PlayerAction {
	var out []upstream.PlayerAction
	for _, a := range r.upstream {
		if pa, ok := a.(upstream.PlayerAction); ok && pa.Status == status {
			out = append(out, pa)
		}
	}
	return out
}

func (r *recorder) levelEvents(eventType int32) int {
	n := 0
	for _, pk := range r.client {
		if ev, ok := pk.(*packet.LevelEvent); ok && ev.EventType == eventType {
			n++
		}
	}
	return n
}

func (r *recorder) blockUpdates() int {
	n := 0
	for _, pk := range r.client {
		if _, ok := pk.(*packet.UpdateBlock); ok {
			n++
		}
	}
	return n
}

type fixture struct {
	engine   *Engine
	player   *fakePlayer
	world    *fakeWorld
	out      *recorder
	ledger   *prediction.Ledger
	entities *entity.Map
	border   *world.Border
	hook     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := registry.New([]registry.BlockState{air, stone, grass, fire, glass, cmd, custom}, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	log, hook := test.NewNullLogger()
	f := &fixture{
		player:   &fakePlayer{position: mgl64.Vec3{0.5, 65, 2.5}, held: Held{Item: registry.Hand}},
		world:    &fakeWorld{blocks: make(map[cube.Pos]registry.BlockState)},
		out:      &recorder{},
		entities: entity.NewMap(nil),
		border:   world.NewBorder(),
		hook:     hook,
	}
	f.ledger = prediction.NewLedger(f.world, f.world, f.world)
	f.engine = New(Config{
		Player:    f.player,
		World:     f.world,
		Border:    f.border,
		Entities:  f.entities,
		Ledger:    f.ledger,
		Registry:  reg,
		Transport: f.out,
		Log:       log,
	})
	return f
}

func TestBreakTenTickBlock(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = glass

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)
	if len(f.out.digs(upstream.StartDigging)) != 1 {
		t.Fatalf("expected one start digging action upstream, got %d", len(f.out.digs(upstream.StartDigging)))
	}

	for tick := uint64(1); tick <= 9; tick++ {
		f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: pos, Face: cube.FaceUp}}, tick)
		m, ok := f.engine.Mining()
		if !ok {
			t.Fatalf("tick %d: no longer breaking", tick)
		}
		if m.Progress >= 1 {
			t.Fatalf("tick %d: progress %v reached 1 early", tick, m.Progress)
		}
	}
	if n := len(f.out.digs(upstream.FinishDigging)); n != 0 {
		t.Fatalf("finished early with %d finish actions", n)
	}

	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: pos, Face: cube.FaceUp}}, 10)
	if _, ok := f.engine.Mining(); ok {
		t.Fatal("still breaking after the tenth tick")
	}
	finish := f.out.digs(upstream.FinishDigging)
	if len(finish) != 1 {
		t.Fatalf("expected exactly one finish digging action, got %d", len(finish))
	}
	if finish[0].Pos != pos {
		t.Fatalf("finish digging at %v, expected %v", finish[0].Pos, pos)
	}
	if _, ok := f.ledger.Pending(pos); !ok {
		t.Fatal("broken block was not marked speculative")
	}

	// Ticking afterwards must not finish the block again.
	for tick := uint64(11); tick < 20; tick++ {
		f.engine.Tick(tick)
	}
	if n := len(f.out.digs(upstream.FinishDigging)); n != 1 {
		t.Fatalf("block finished %d times", n)
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = stone
	f.player.held = Held{Item: registry.Item{Name: "minecraft:wooden_pickaxe", Tool: registry.ToolPickaxe, Tier: registry.TierWood}}

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)
	prev := 0.0
	for tick := uint64(1); ; tick++ {
		// Jumping halfway slows the break down but never undoes progress.
		f.player.airborne = tick%3 == 0
		f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: pos, Face: cube.FaceUp}}, tick)
		m, ok := f.engine.Mining()
		if !ok {
			break
		}
		if m.Progress < prev {
			t.Fatalf("tick %d: progress went from %v to %v", tick, prev, m.Progress)
		}
		prev = m.Progress
		if tick > 200 {
			t.Fatal("block never finished")
		}
	}
	if n := len(f.out.digs(upstream.FinishDigging)); n != 1 {
		t.Fatalf("expected one finish, got %d", n)
	}
}

func TestAdvanceOncePerTick(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = glass

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)
	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: pos, Face: cube.FaceUp}}, 1)
	f.engine.Tick(1)
	m, _ := f.engine.Mining()
	if m.Progress > 0.11 {
		t.Fatalf("progress %v was added twice on one tick", m.Progress)
	}
}

func TestTickSweepFinishesBlock(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = glass

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)
	for tick := uint64(1); tick <= 10; tick++ {
		f.engine.Tick(tick)
	}
	if _, ok := f.engine.Mining(); ok {
		t.Fatal("tick sweep did not finish the block")
	}
	if n := len(f.out.digs(upstream.FinishDigging)); n != 1 {
		t.Fatalf("expected one finish, got %d", n)
	}
}

func TestInstantBreakIgnoresSameTickDuplicates(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = grass

	f.engine.OnInputBatch([]Action{
		StartBreak{Pos: pos, Face: cube.FaceUp},
		ContinueDestroy{Pos: pos, Face: cube.FaceUp},
		PredictDestroy{Pos: pos, Face: cube.FaceUp},
	}, 0)

	if n := len(f.out.upstream); n != 1 {
		t.Fatalf("expected exactly one upstream action, got %d: %v", n, f.out.upstream)
	}
	if n := len(f.out.digs(upstream.StartDigging)); n != 1 {
		t.Fatalf("instant break must be sent as one start digging action, got %d", n)
	}
	if len(f.hook.Entries) != 0 {
		t.Fatalf("unexpected log output: %v", f.hook.LastEntry().Message)
	}
	if _, ok := f.engine.Mining(); ok {
		t.Fatal("instant break entered the breaking state")
	}

	// The client confirms the break with an abort, which must not cancel anything upstream.
	f.engine.OnInputBatch([]Action{AbortBreak{Pos: pos, Face: cube.FaceUp}}, 1)
	if n := len(f.out.digs(upstream.CancelDigging)); n != 0 {
		t.Fatalf("abort after instant break sent %d cancels", n)
	}
}

func TestPredictWithoutBreakWarns(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = stone

	f.engine.OnInputBatch([]Action{PredictDestroy{Pos: pos, Face: cube.FaceUp}}, 0)

	entry := f.hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %v", entry)
	}
	if f.out.levelEvents(packet.LevelEventStopBlockCracking) != 1 {
		t.Fatal("client was not told to stop cracking")
	}
	if f.out.blockUpdates() == 0 {
		t.Fatal("block was not restored")
	}
	if len(f.out.upstream) != 0 {
		t.Fatalf("violation reached upstream: %v", f.out.upstream)
	}
}

func TestPredictDestroyFinishesBreak(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = glass

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceNorth}}, 0)
	f.engine.OnInputBatch([]Action{PredictDestroy{Pos: pos, Face: cube.FaceNorth}}, 1)

	finish := f.out.digs(upstream.FinishDigging)
	if len(finish) != 1 || finish[0].Face != cube.FaceNorth {
		t.Fatalf("unexpected finish actions %v", finish)
	}
	if finish[0].Sequence != f.ledger.Sequence() {
		t.Fatalf("finish sent sequence %d, ledger is at %d", finish[0].Sequence, f.ledger.Sequence())
	}
	if f.out.levelEvents(packet.LevelEventParticlesDestroyBlock) != 1 {
		t.Fatal("destruction was not shown")
	}
}

func TestSecondContinueBeforePredictSkipped(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = glass

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)
	f.engine.OnInputBatch([]Action{
		StartBreak{Pos: pos, Face: cube.FaceUp},
		ContinueDestroy{Pos: pos, Face: cube.FaceUp},
		PredictDestroy{Pos: pos, Face: cube.FaceUp},
	}, 1)
	if n := len(f.out.digs(upstream.FinishDigging)); n != 1 {
		t.Fatalf("expected one finish, got %d", n)
	}
}

func TestAbortCancelsBreak(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = stone

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)
	f.engine.OnInputBatch([]Action{AbortBreak{Pos: pos, Face: cube.FaceUp}}, 1)

	cancel := f.out.digs(upstream.CancelDigging)
	if len(cancel) != 1 {
		t.Fatalf("expected one cancel, got %d", len(cancel))
	}
	if cancel[0].Face != cube.FaceDown || cancel[0].Sequence != 0 || cancel[0].Pos != pos {
		t.Fatalf("unexpected cancel %+v", cancel[0])
	}
	if _, ok := f.engine.Mining(); ok {
		t.Fatal("still breaking after abort")
	}
}

func TestStartBreakElsewhereCancelsPrevious(t *testing.T) {
	f := newFixture(t)
	a, b := cube.Pos{0, 64, 0}, cube.Pos{1, 64, 0}
	f.world.blocks[a], f.world.blocks[b] = stone, stone

	f.engine.OnInputBatch([]Action{StartBreak{Pos: a, Face: cube.FaceUp}}, 0)
	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: b, Face: cube.FaceUp}}, 1)

	if cancel := f.out.digs(upstream.CancelDigging); len(cancel) != 1 || cancel[0].Pos != a {
		t.Fatalf("expected cancel at %v, got %v", a, cancel)
	}
	m, ok := f.engine.Mining()
	if !ok || m.Pos != b {
		t.Fatalf("expected to be breaking %v, got %+v", b, m)
	}
}

func TestItemFrameRedirectsToAttack(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = stone
	f.entities.Register(entity.New(42, entity.KindItemFrame, mgl32.Vec3{0.5, 64, 0.5}))

	f.engine.OnInputBatch([]Action{
		StartBreak{Pos: pos, Face: cube.FaceUp},
		AbortBreak{Pos: pos, Face: cube.FaceUp},
	}, 0)

	if len(f.out.upstream) != 1 {
		t.Fatalf("expected only the attack upstream, got %v", f.out.upstream)
	}
	it, ok := f.out.upstream[0].(upstream.Interact)
	if !ok || it.EntityID != 42 || !it.Attack {
		t.Fatalf("unexpected upstream action %#v", f.out.upstream[0])
	}
	if _, ok := f.engine.Mining(); ok {
		t.Fatal("item frame hit entered the breaking state")
	}
}

func TestMovedItemFrameNoLongerRedirects(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = stone
	frame := entity.New(42, entity.KindItemFrame, mgl32.Vec3{0.5, 64, 0.5})
	f.entities.Register(frame)
	f.entities.Move(frame, mgl32.Vec3{5.5, 64, 0.5})

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)
	for _, a := range f.out.upstream {
		if _, ok := a.(upstream.Interact); ok {
			t.Fatalf("attacked an item frame that moved away: %#v", a)
		}
	}
	if m, ok := f.engine.Mining(); !ok || m.Pos != pos {
		t.Fatalf("expected to be breaking %v, got %+v", pos, m)
	}
}

func TestFireInFrontIsExtinguished(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = stone
	f.world.blocks[pos.Side(cube.FaceUp)] = fire

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)

	start := f.out.digs(upstream.StartDigging)
	if len(start) != 2 {
		t.Fatalf("expected two start digging actions, got %v", start)
	}
	if start[0].Pos != pos.Side(cube.FaceUp) || start[1].Pos != pos {
		t.Fatalf("fire was not put out first: %v", start)
	}
	if start[1].Sequence <= start[0].Sequence {
		t.Fatalf("sequences out of order: %v", start)
	}
}

func TestRestrictedBreaking(t *testing.T) {
	pos := cube.Pos{0, 64, 0}
	cases := map[string]func(f *fixture){
		"hands busy": func(f *fixture) { f.player.busy = true },
		"spectator":  func(f *fixture) { f.player.mode = Spectator },
		"adventure":  func(f *fixture) { f.player.mode = Adventure },
		"border":     func(f *fixture) { f.border.SetDiameter(2); f.border.SetCentre(100, 100) },
		"reach":      func(f *fixture) { f.player.position = mgl64.Vec3{30, 64, 30} },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.world.blocks[pos] = stone
			setup(f)
			f.engine.OnInputBatch([]Action{
				StartBreak{Pos: pos, Face: cube.FaceUp},
				ContinueDestroy{Pos: pos, Face: cube.FaceUp},
			}, 0)
			if len(f.out.upstream) != 0 {
				t.Fatalf("restricted player sent %v", f.out.upstream)
			}
			if f.out.levelEvents(packet.LevelEventStopBlockCracking) == 0 {
				t.Fatal("client was not told to stop cracking")
			}
		})
	}

	t.Run("adventure with predicate", func(t *testing.T) {
		f := newFixture(t)
		f.world.blocks[pos] = stone
		f.player.mode = Adventure
		f.player.held = Held{Item: registry.Hand, CanBreak: []string{stone.Name}}
		f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)
		if _, ok := f.engine.Mining(); !ok {
			t.Fatal("break predicate did not allow breaking")
		}
	})
}

func TestGameMasterBlockRestored(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = cmd
	f.player.mode, f.player.instant = Creative, true

	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: pos, Face: cube.FaceUp}}, 0)
	if n := len(f.out.digs(upstream.StartDigging)); n != 1 {
		t.Fatalf("expected the break to reach upstream once, got %d", n)
	}
	if f.out.levelEvents(packet.LevelEventParticlesDestroyBlock) != 0 {
		t.Fatal("protected block was shown breaking")
	}
	if f.out.blockUpdates() == 0 {
		t.Fatal("protected block was not restored")
	}

	g := newFixture(t)
	g.world.blocks[pos] = cmd
	g.player.mode, g.player.instant, g.player.permission = Creative, true, 2
	g.engine.OnInputBatch([]Action{ContinueDestroy{Pos: pos, Face: cube.FaceUp}}, 0)
	if g.out.levelEvents(packet.LevelEventParticlesDestroyBlock) != 1 {
		t.Fatal("operator could not break protected block")
	}
}

func TestCreativeDestroyDelay(t *testing.T) {
	f := newFixture(t)
	a, b := cube.Pos{0, 64, 0}, cube.Pos{1, 64, 0}
	f.world.blocks[a], f.world.blocks[b] = stone, stone
	f.player.mode, f.player.instant = Creative, true

	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: a, Face: cube.FaceUp}}, 0)
	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: b, Face: cube.FaceUp}}, 1)
	if n := len(f.out.digs(upstream.StartDigging)); n != 1 {
		t.Fatalf("second block broke within the delay: %d breaks", n)
	}

	for tick := uint64(1); tick <= 5; tick++ {
		f.engine.Tick(tick)
	}
	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: b, Face: cube.FaceUp}}, 6)
	if n := len(f.out.digs(upstream.StartDigging)); n != 2 {
		t.Fatalf("second block did not break after the delay: %d breaks", n)
	}
}

func TestCreativeDestroyDelayCountsDownOnBatches(t *testing.T) {
	f := newFixture(t)
	a, b := cube.Pos{0, 64, 0}, cube.Pos{1, 64, 0}
	f.world.blocks[a], f.world.blocks[b] = stone, stone
	f.player.mode, f.player.instant = Creative, true

	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: a, Face: cube.FaceUp}}, 0)
	for tick := uint64(1); tick <= 5; tick++ {
		f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: b, Face: cube.FaceUp}}, tick)
		// Sweeping the same tick again must not count it twice.
		f.engine.Tick(tick)
		if n := len(f.out.digs(upstream.StartDigging)); n != 1 {
			t.Fatalf("tick %d: second block broke within the delay", tick)
		}
	}
	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: b, Face: cube.FaceUp}}, 6)
	if n := len(f.out.digs(upstream.StartDigging)); n != 2 {
		t.Fatalf("second block did not break once the delay ran out: %d breaks", n)
	}
}

func TestCustomBlockTimedInTicks(t *testing.T) {
	f := newFixture(t)
	pos := cube.Pos{0, 64, 0}
	f.world.blocks[pos] = custom

	f.engine.OnInputBatch([]Action{StartBreak{Pos: pos, Face: cube.FaceUp}}, 0)
	for tick := uint64(1); tick <= 11; tick++ {
		f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: pos, Face: cube.FaceUp}}, tick)
	}
	if _, ok := f.engine.Mining(); !ok {
		t.Fatal("custom block finished without slack")
	}
	f.engine.OnInputBatch([]Action{ContinueDestroy{Pos: pos, Face: cube.FaceUp}}, 12)
	if _, ok := f.engine.Mining(); ok {
		t.Fatal("custom block did not finish after slack")
	}
}

func TestDropItemPassthrough(t *testing.T) {
	f := newFixture(t)
	f.engine.OnInputBatch([]Action{DropItem{}, DropItem{Stack: true}}, 0)
	if len(f.out.digs(upstream.DropItem)) != 1 || len(f.out.digs(upstream.DropItemStack)) != 1 {
		t.Fatalf("unexpected drops %v", f.out.upstream)
	}
	if _, ok := f.engine.Mining(); ok {
		t.Fatal("dropping an item started breaking")
	}
}
