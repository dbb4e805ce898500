package registry

import (
	_ "unsafe"

	_ "github.com/df-mc/dragonfly/server/world"
	"github.com/df-mc/dragonfly/server/world/chunk"
	"github.com/oomph-ac/relay/oerror"
)

var (
	airRuntimeID         uint32
	waterRuntimeID       uint32
	movingBlockRuntimeID uint32
)

// noinspection ALL
//
//go:linkname world_finaliseBlockRegistry github.com/df-mc/dragonfly/server/world.finaliseBlockRegistry
func world_finaliseBlockRegistry()

func init() {
	world_finaliseBlockRegistry()
	var ok bool
	if airRuntimeID, ok = chunk.StateToRuntimeID("minecraft:air", nil); !ok {
		panic(oerror.New("unable to find runtime ID for air"))
	}
	if waterRuntimeID, ok = chunk.StateToRuntimeID("minecraft:water", map[string]any{"liquid_depth": int32(0)}); !ok {
		panic(oerror.New("unable to find runtime ID for water"))
	}
	if movingBlockRuntimeID, ok = chunk.StateToRuntimeID("minecraft:moving_block", nil); !ok {
		panic(oerror.New("unable to find runtime ID for moving blocks"))
	}
}

// BedrockState returns the client block name and properties a runtime ID stands for.
func BedrockState(rid uint32) (name string, properties map[string]any, ok bool) {
	return chunk.RuntimeIDToState(rid)
}

// runtimeID resolves the client runtime ID of a block name and its properties. TOML integers decode as
// int64 while block properties are int32, so they are narrowed first.
func runtimeID(name string, properties map[string]any) (uint32, bool) {
	props := make(map[string]any, len(properties))
	for k, v := range properties {
		switch v := v.(type) {
		case int64:
			props[k] = int32(v)
		case int:
			props[k] = int32(v)
		default:
			props[k] = v
		}
	}
	return chunk.StateToRuntimeID(name, props)
}
