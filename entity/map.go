package entity

import (
	df_cube "github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/oomph-ac/relay/assert"
	"github.com/oomph-ac/relay/game"
)

// Map translates between the entity IDs of the upstream server and the IDs issued to the client of one
// session. Apart from the player registry it holds, it is only used from the session loop.
type Map struct {
	nextLocalID uint64

	byUpstream map[int32]*Entity
	byLocal    map[uint64]*Entity
	itemFrames map[df_cube.Pos]*Entity

	players  *PlayerRegistry
	observer PlayerObserver

	bossBars map[uuid.UUID]*BossBar
}

// NewMap returns an empty Map. The observer is notified of players registered with RegisterPlayer. A nil
// observer is replaced by NopObserver.
func NewMap(observer PlayerObserver) *Map {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Map{
		nextLocalID: 1,
		byUpstream:  make(map[int32]*Entity),
		byLocal:     make(map[uint64]*Entity),
		itemFrames:  make(map[df_cube.Pos]*Entity),
		players:     NewPlayerRegistry(),
		observer:    observer,
		bossBars:    make(map[uuid.UUID]*BossBar),
	}
}

// NextLocalID reserves a local ID without mapping it to an entity, such as the ID of the client's own player.
func (m *Map) NextLocalID() uint64 {
	id := m.nextLocalID
	m.nextLocalID++
	return id
}

// Register issues a local ID to the entity and maps it in both directions. If an entity with the same
// upstream ID is already registered, nothing changes and false is returned.
func (m *Map) Register(e *Entity) bool {
	if _, ok := m.byUpstream[e.upstreamID]; ok {
		return false
	}
	e.localID = m.NextLocalID()
	_, taken := m.byLocal[e.localID]
	assert.IsTrue(!taken, "local entity ID %d issued twice", e.localID)
	m.byUpstream[e.upstreamID] = e
	m.byLocal[e.localID] = e
	if e.kind == KindItemFrame {
		m.itemFrames[e.BlockPos()] = e
	}
	return true
}

// Unregister removes both mappings of the entity. It is a no-op for entities that are not registered.
func (m *Map) Unregister(e *Entity) {
	if cur, ok := m.byUpstream[e.upstreamID]; !ok || cur != e {
		return
	}
	delete(m.byUpstream, e.upstreamID)
	delete(m.byLocal, e.localID)
	if e.kind == KindItemFrame && m.itemFrames[e.BlockPos()] == e {
		delete(m.itemFrames, e.BlockPos())
	}
}

// ByLocalID returns the entity the client knows by the ID passed.
func (m *Map) ByLocalID(id uint64) (*Entity, bool) {
	e, ok := m.byLocal[id]
	return e, ok
}

// ByUpstreamID returns the entity the upstream server knows by the ID passed.
func (m *Map) ByUpstreamID(id int32) (*Entity, bool) {
	e, ok := m.byUpstream[id]
	return e, ok
}

// ItemFrameAt returns the item frame hanging in the block position passed. A frame only counts if its box
// still reaches into the block.
func (m *Map) ItemFrameAt(pos df_cube.Pos) (*Entity, bool) {
	e, ok := m.itemFrames[pos]
	if !ok {
		return nil, false
	}
	block := game.DFBoxToCubeBox(df_cube.Box(0, 0, 0, 1, 1, 1).Translate(pos.Vec3()))
	if !e.Box().IntersectsWith(block) {
		return nil, false
	}
	return e, true
}

// Move changes the position of a registered entity, moving item frames to the block they now hang in.
func (m *Map) Move(e *Entity, pos mgl32.Vec3) {
	if e.kind != KindItemFrame {
		e.SetPosition(pos)
		return
	}
	if m.itemFrames[e.BlockPos()] == e {
		delete(m.itemFrames, e.BlockPos())
	}
	e.SetPosition(pos)
	if cur, ok := m.byUpstream[e.upstreamID]; ok && cur == e {
		m.itemFrames[e.BlockPos()] = e
	}
}

// Len returns the amount of registered entities.
func (m *Map) Len() int {
	return len(m.byUpstream)
}

// RegisterPlayer maps the UUID to the player entity. The first registration for a UUID wins, and only that
// registration is passed to the observer.
func (m *Map) RegisterPlayer(id uuid.UUID, e *Entity) bool {
	if !m.players.Register(id, e) {
		return false
	}
	m.observer.PlayerRegistered(e)
	return true
}

// UnregisterPlayer removes the mapping of the UUID if it still points to the entity passed.
func (m *Map) UnregisterPlayer(id uuid.UUID, e *Entity) {
	m.players.Unregister(id, e)
}

// PlayerByUUID returns the entity of the player with the UUID passed. It may be called from any session.
func (m *Map) PlayerByUUID(id uuid.UUID) (*Entity, bool) {
	return m.players.Player(id)
}

// ForEachPlayer calls fn for every registered player. It may be called from any session.
func (m *Map) ForEachPlayer(fn func(e *Entity)) {
	m.players.ForEach(func(_ uuid.UUID, e *Entity) {
		fn(e)
	})
}

// Clear removes every entity, player and boss bar. Local IDs keep counting up from where they were.
func (m *Map) Clear() {
	clear(m.byUpstream)
	clear(m.byLocal)
	clear(m.itemFrames)
	clear(m.bossBars)
	m.players.Clear()
}
