package utils

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/relay/registry"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// BlockPos converts a dragonfly block position to a protocol one.
func BlockPos(pos cube.Pos) protocol.BlockPos {
	return protocol.BlockPos{int32(pos[0]), int32(pos[1]), int32(pos[2])}
}

// CubePos converts a protocol block position to a dragonfly one.
func CubePos(pos protocol.BlockPos) cube.Pos {
	return cube.Pos{int(pos[0]), int(pos[1]), int(pos[2])}
}

// BlockVec returns the corner of the block position as a float vector, which is how level events address
// blocks.
func BlockVec(pos cube.Pos) mgl32.Vec3 {
	return mgl32.Vec3{float32(pos[0]), float32(pos[1]), float32(pos[2])}
}

// UpdateBlockPackets returns the packets that make the client show state at pos. Both layers are written
// so that a waterlogged state gains or loses its water along with the block.
func UpdateBlockPackets(reg *registry.Registry, pos cube.Pos, state registry.BlockState) []packet.Packet {
	liquid := reg.Air().RuntimeID
	if state.Waterlogged {
		liquid = reg.WaterRuntimeID()
	}
	return []packet.Packet{
		&packet.UpdateBlock{
			Position:          BlockPos(pos),
			NewBlockRuntimeID: state.RuntimeID,
			Flags:             packet.BlockUpdateNeighbours | packet.BlockUpdateNetwork,
			Layer:             0,
		},
		&packet.UpdateBlock{
			Position:          BlockPos(pos),
			NewBlockRuntimeID: liquid,
			Flags:             packet.BlockUpdateNeighbours | packet.BlockUpdateNetwork,
			Layer:             1,
		},
	}
}
