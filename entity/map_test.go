package entity

import (
	"sync"
	"testing"

	df_cube "github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type countingObserver struct {
	registered []*Entity
}

func (o *countingObserver) PlayerRegistered(e *Entity) {
	o.registered = append(o.registered, e)
}

func TestMapBijective(t *testing.T) {
	m := NewMap(nil)
	entities := make([]*Entity, 0, 16)
	for i := int32(0); i < 16; i++ {
		e := New(i*7+3, KindOther, mgl32.Vec3{})
		if !m.Register(e) {
			t.Fatalf("first registration of %d failed", e.UpstreamID())
		}
		entities = append(entities, e)
	}

	for _, e := range entities {
		byUp, ok := m.ByUpstreamID(e.UpstreamID())
		if !ok || byUp != e {
			t.Fatalf("upstream lookup of %d returned %v", e.UpstreamID(), byUp)
		}
		byLocal, ok := m.ByLocalID(byUp.LocalID())
		if !ok || byLocal != e {
			t.Fatalf("local lookup of %d returned %v", byUp.LocalID(), byLocal)
		}
	}

	m.Unregister(entities[0])
	if _, ok := m.ByUpstreamID(entities[0].UpstreamID()); ok {
		t.Error("entity still mapped by upstream ID after unregistering")
	}
	if _, ok := m.ByLocalID(entities[0].LocalID()); ok {
		t.Error("entity still mapped by local ID after unregistering")
	}
	if m.Len() != 15 {
		t.Errorf("expected 15 entities, got %d", m.Len())
	}
}

func TestMapIdempotentRegister(t *testing.T) {
	m := NewMap(nil)
	e := New(10, KindOther, mgl32.Vec3{})
	if !m.Register(e) {
		t.Fatal("first registration failed")
	}
	id := e.LocalID()

	duplicate := New(10, KindOther, mgl32.Vec3{1, 2, 3})
	if m.Register(duplicate) {
		t.Fatal("second registration with the same upstream ID succeeded")
	}
	if got, _ := m.ByUpstreamID(10); got != e {
		t.Error("duplicate registration replaced the original entity")
	}
	if e.LocalID() != id || duplicate.LocalID() != 0 {
		t.Error("duplicate registration changed local IDs")
	}

	// Unregistering the rejected duplicate must not affect the original.
	m.Unregister(duplicate)
	if _, ok := m.ByUpstreamID(10); !ok {
		t.Error("unregistering an unknown entity removed the registered one")
	}
}

func TestMapLocalIDsNotReused(t *testing.T) {
	m := NewMap(nil)
	a := New(1, KindOther, mgl32.Vec3{})
	m.Register(a)
	m.Unregister(a)
	b := New(1, KindOther, mgl32.Vec3{})
	m.Register(b)
	if a.LocalID() == b.LocalID() {
		t.Fatalf("local ID %d was reused", a.LocalID())
	}
}

func TestRegisterPlayerFirstWriterWins(t *testing.T) {
	obs := &countingObserver{}
	m := NewMap(obs)
	id := uuid.New()

	first := NewPlayer(1, id, mgl32.Vec3{})
	second := NewPlayer(2, id, mgl32.Vec3{})
	if !m.RegisterPlayer(id, first) {
		t.Fatal("first player registration failed")
	}
	if m.RegisterPlayer(id, second) {
		t.Fatal("second player registration for the same UUID succeeded")
	}
	if got, _ := m.PlayerByUUID(id); got != first {
		t.Error("second registration replaced the first")
	}
	if len(obs.registered) != 1 || obs.registered[0] != first {
		t.Errorf("observer should only see the winning registration, saw %d", len(obs.registered))
	}
}

func TestForEachPlayerConcurrent(t *testing.T) {
	m := NewMap(nil)
	for i := int32(0); i < 8; i++ {
		m.RegisterPlayer(uuid.New(), NewPlayer(i, uuid.New(), mgl32.Vec3{}))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int32(0); i < 200; i++ {
			m.RegisterPlayer(uuid.New(), NewPlayer(100+i, uuid.New(), mgl32.Vec3{}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			count := 0
			m.ForEachPlayer(func(*Entity) { count++ })
			if count < 8 {
				t.Errorf("iteration saw %d players, expected at least 8", count)
				return
			}
		}
	}()
	wg.Wait()

	if m.players.Len() != 208 {
		t.Errorf("expected 208 players, got %d", m.players.Len())
	}
}

func TestItemFrameAt(t *testing.T) {
	m := NewMap(nil)
	frame := New(5, KindItemFrame, mgl32.Vec3{3.5, 64, -1.5})
	m.Register(frame)

	if got, ok := m.ItemFrameAt(df_cube.Pos{3, 64, -2}); !ok || got != frame {
		t.Fatalf("expected the item frame at (3, 64, -2), got %v", got)
	}
	m.Unregister(frame)
	if _, ok := m.ItemFrameAt(df_cube.Pos{3, 64, -2}); ok {
		t.Error("item frame still indexed after unregistering")
	}
}

func TestItemFrameMoves(t *testing.T) {
	m := NewMap(nil)
	frame := New(5, KindItemFrame, mgl32.Vec3{3.5, 64, -1.5})
	m.Register(frame)

	m.Move(frame, mgl32.Vec3{7.5, 65, 0.5})
	if _, ok := m.ItemFrameAt(df_cube.Pos{3, 64, -2}); ok {
		t.Error("item frame still found in the block it left")
	}
	if got, ok := m.ItemFrameAt(df_cube.Pos{7, 65, 0}); !ok || got != frame {
		t.Fatalf("expected the item frame at (7, 65, 0), got %v", got)
	}
	if pos := frame.Position(); pos != (mgl32.Vec3{7.5, 65, 0.5}) {
		t.Errorf("expected the frame to be at (7.5, 65, 0.5), got %v", pos)
	}
}

func TestItemFrameBoxHitTest(t *testing.T) {
	m := NewMap(nil)
	// The frame sits on the corner of the block, so its box reaches into the neighbours as well.
	frame := New(5, KindItemFrame, mgl32.Vec3{3, 64, -2})
	m.Register(frame)
	if got, ok := m.ItemFrameAt(df_cube.Pos{3, 64, -2}); !ok || got != frame {
		t.Fatalf("expected the item frame at (3, 64, -2), got %v", got)
	}

	other := New(6, KindOther, mgl32.Vec3{0.5, 64, 0.5})
	m.Register(other)
	m.Move(other, mgl32.Vec3{10, 64, 10})
	if _, ok := m.ItemFrameAt(df_cube.Pos{0, 64, 0}); ok {
		t.Error("an entity that is not an item frame was indexed as one")
	}
	if box := other.Box(); !box.Vec3Within(mgl32.Vec3{10, 65, 10}) {
		t.Errorf("box %v did not move with the entity", box)
	}
}

func TestUnregisterPlayerKeepsFirstRegistration(t *testing.T) {
	m := NewMap(nil)
	id := uuid.New()
	winner, loser := NewPlayer(1, id, mgl32.Vec3{}), NewPlayer(2, id, mgl32.Vec3{})
	m.Register(winner)
	m.Register(loser)
	m.RegisterPlayer(id, winner)
	if m.RegisterPlayer(id, loser) {
		t.Fatal("second player under the same UUID was registered")
	}

	m.Unregister(loser)
	m.UnregisterPlayer(id, loser)
	if got, ok := m.PlayerByUUID(id); !ok || got != winner {
		t.Fatalf("removing the duplicate player dropped the first one, got %v", got)
	}
	m.UnregisterPlayer(id, winner)
	if _, ok := m.PlayerByUUID(id); ok {
		t.Error("player still registered after removal")
	}
}

func TestBossBars(t *testing.T) {
	m := NewMap(nil)
	id := uuid.New()
	bar := &BossBar{ID: id, Title: "Wither", Health: 1}
	if replaced := m.AddBossBar(bar); replaced != nil {
		t.Fatal("adding a new bar reported a replaced bar")
	}
	if bar.LocalID == 0 {
		t.Fatal("boss bar was not issued a local ID")
	}
	if pk := bar.ShowPacket(); pk.BossEntityUniqueID != int64(bar.LocalID) || pk.BossBarTitle != "Wither" {
		t.Errorf("unexpected show packet %+v", pk)
	}

	next := &BossBar{ID: id, Title: "Ender Dragon"}
	if replaced := m.AddBossBar(next); replaced != bar {
		t.Error("re-adding a bar under the same UUID should return the replaced bar")
	}
	if got, ok := m.RemoveBossBar(id); !ok || got != next {
		t.Error("removing the bar returned the wrong bar")
	}
	if _, ok := m.BossBar(id); ok {
		t.Error("bar still registered after removal")
	}
}

func TestClear(t *testing.T) {
	m := NewMap(nil)
	e := New(1, KindOther, mgl32.Vec3{})
	m.Register(e)
	m.RegisterPlayer(uuid.New(), NewPlayer(2, uuid.New(), mgl32.Vec3{}))
	m.Clear()
	if m.Len() != 0 || m.players.Len() != 0 {
		t.Fatal("clear left entities behind")
	}
	next := New(1, KindOther, mgl32.Vec3{})
	m.Register(next)
	if next.LocalID() <= e.LocalID() {
		t.Error("local IDs restarted after clear")
	}
}
