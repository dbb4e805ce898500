package entity

import (
	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// BossBar is a boss bar the upstream server shows. The client attaches boss bars to an entity, so every bar
// gets a local entity ID of its own.
type BossBar struct {
	ID      uuid.UUID
	LocalID uint64

	Title  string
	Health float32
	Colour uint32
}

// ShowPacket returns the packet making the client display the bar.
func (b *BossBar) ShowPacket() *packet.BossEvent {
	return &packet.BossEvent{
		BossEntityUniqueID: int64(b.LocalID),
		EventType:          packet.BossEventShow,
		BossBarTitle:       b.Title,
		HealthPercentage:   b.Health,
		Colour:             b.Colour,
	}
}

// HidePacket returns the packet removing the bar from the client's screen.
func (b *BossBar) HidePacket() *packet.BossEvent {
	return &packet.BossEvent{
		BossEntityUniqueID: int64(b.LocalID),
		EventType:          packet.BossEventHide,
	}
}

// AddBossBar registers the bar under its UUID and issues it a local ID. A bar already registered under the
// same UUID is replaced and returned.
func (m *Map) AddBossBar(b *BossBar) (replaced *BossBar) {
	replaced = m.bossBars[b.ID]
	b.LocalID = m.NextLocalID()
	m.bossBars[b.ID] = b
	return replaced
}

// BossBar returns the bar registered under the UUID.
func (m *Map) BossBar(id uuid.UUID) (*BossBar, bool) {
	b, ok := m.bossBars[id]
	return b, ok
}

// RemoveBossBar removes the bar registered under the UUID and returns it.
func (m *Map) RemoveBossBar(id uuid.UUID) (*BossBar, bool) {
	b, ok := m.bossBars[id]
	delete(m.bossBars, id)
	return b, ok
}

// ForEachBossBar calls fn for every registered bar.
func (m *Map) ForEachBossBar(fn func(b *BossBar)) {
	for _, b := range m.bossBars {
		fn(b)
	}
}
