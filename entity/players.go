package entity

import (
	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
)

// PlayerObserver is told about players that were registered for the first time, in the way a scoreboard
// needs to learn about new team members.
type PlayerObserver interface {
	PlayerRegistered(e *Entity)
}

// NopObserver ignores all registrations.
type NopObserver struct{}

func (NopObserver) PlayerRegistered(*Entity) {}

// PlayerRegistry maps player UUIDs to their entity in one session. It is the only structure of a session
// that other sessions read, so unlike everything else it is guarded by a lock.
type PlayerRegistry struct {
	players map[uuid.UUID]*Entity
	mu      deadlock.RWMutex
}

// NewPlayerRegistry returns an empty PlayerRegistry.
func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{players: make(map[uuid.UUID]*Entity)}
}

// Register maps the UUID to the entity if the UUID is not mapped yet. It reports whether the mapping was
// added.
func (r *PlayerRegistry) Register(id uuid.UUID, e *Entity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; ok {
		return false
	}
	r.players[id] = e
	return true
}

// Unregister removes the mapping for the UUID if it points to the entity passed. A rejected duplicate
// registration under the same UUID leaves the mapping of the first one alone.
func (r *PlayerRegistry) Unregister(id uuid.UUID, e *Entity) {
	r.mu.Lock()
	if r.players[id] == e {
		delete(r.players, id)
	}
	r.mu.Unlock()
}

// Player returns the entity mapped to the UUID.
func (r *PlayerRegistry) Player(id uuid.UUID) (*Entity, bool) {
	r.mu.RLock()
	e, ok := r.players[id]
	r.mu.RUnlock()
	return e, ok
}

// ForEach calls fn for every player. The players are collected under the read lock and fn runs after it is
// released, so fn may register or unregister players.
func (r *PlayerRegistry) ForEach(fn func(id uuid.UUID, e *Entity)) {
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.players))
	entities := make([]*Entity, 0, len(r.players))
	for id, e := range r.players {
		ids = append(ids, id)
		entities = append(entities, e)
	}
	r.mu.RUnlock()

	for i, e := range entities {
		fn(ids[i], e)
	}
}

// Len returns the amount of registered players.
func (r *PlayerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Clear removes every player.
func (r *PlayerRegistry) Clear() {
	r.mu.Lock()
	clear(r.players)
	r.mu.Unlock()
}
