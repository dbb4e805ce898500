package registry

import (
	"github.com/oomph-ac/relay/game"
	"github.com/oomph-ac/relay/oerror"
)

// Registry is the immutable table of block states and items shared by every session. It is built once at
// start-up and only read afterwards, so it may be used from any goroutine.
type Registry struct {
	blocks []BlockState
	names  map[string]uint32
	items  map[string]Item

	waterRuntimeID uint32
	fingerprint    uint64
}

// New builds a Registry from the states and items passed. State IDs must be unique. IDs that were not passed
// resolve to air, and an air state is added as ID 0 if none was passed.
func New(blocks []BlockState, items []Item) (*Registry, error) {
	var maxID uint32
	for _, b := range blocks {
		maxID = max(maxID, b.ID)
	}

	r := &Registry{
		blocks: make([]BlockState, maxID+1),
		names:  make(map[string]uint32, len(blocks)),
		items:  make(map[string]Item, len(items)),
	}
	seen := make([]bool, maxID+1)
	for _, b := range blocks {
		if seen[b.ID] {
			return nil, oerror.New(game.ErrorInternalDuplicateBlockState, b.ID)
		}
		seen[b.ID] = true
		r.blocks[b.ID] = b
		if _, ok := r.names[b.Name]; !ok {
			r.names[b.Name] = b.ID
		}
	}

	if !seen[0] {
		r.blocks[0] = BlockState{Name: "minecraft:air", Piston: PistonDestroy}
		r.names[r.blocks[0].Name] = 0
	}
	for id := range r.blocks {
		if !seen[id] {
			r.blocks[id] = r.blocks[0]
		}
	}

	for _, it := range items {
		r.items[it.Name] = it
	}
	return r, nil
}

// Block returns the state with the ID passed, or air if the ID is unknown.
func (r *Registry) Block(id uint32) BlockState {
	if int(id) >= len(r.blocks) {
		return r.blocks[0]
	}
	return r.blocks[id]
}

// BlockByName returns the first state registered under the name passed.
func (r *Registry) BlockByName(name string) (BlockState, bool) {
	id, ok := r.names[name]
	if !ok {
		return BlockState{}, false
	}
	return r.blocks[id], true
}

// Air returns the default block state.
func (r *Registry) Air() BlockState {
	return r.blocks[0]
}

// Item returns the item registered under the name passed. Unknown items behave like an empty hand.
func (r *Registry) Item(name string) Item {
	if it, ok := r.items[name]; ok {
		return it
	}
	it := Hand
	it.Name = name
	return it
}

// WaterRuntimeID is the client runtime ID sent on the liquid layer of waterlogged blocks.
func (r *Registry) WaterRuntimeID() uint32 {
	return r.waterRuntimeID
}

// MovingBlockRuntimeID is the client runtime ID of the placeholder shown where a piston is moving a block.
func (r *Registry) MovingBlockRuntimeID() uint32 {
	return movingBlockRuntimeID
}

// Len returns the amount of block states in the registry.
func (r *Registry) Len() int {
	return len(r.blocks)
}

// Fingerprint is a hash of the data the registry was loaded from. Registries built with New have a zero
// fingerprint.
func (r *Registry) Fingerprint() uint64 {
	return r.fingerprint
}
