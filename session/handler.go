package session

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/event"
	"github.com/oomph-ac/relay/registry"
)

// Context is passed to the methods of a Handler. Cancelling it stops the session from doing what it was
// about to.
type Context = event.Context[*Session]

// Handler is notified of things happening within a session. Its methods are called on the session loop.
type Handler interface {
	// HandleBlockBreak is called right before the client is shown a block it finished breaking. Cancelling
	// restores the block on the client. The server still decides whether the block really breaks.
	HandleBlockBreak(ctx *Context, pos cube.Pos, state registry.BlockState)
	// HandleDesync is called with the positions of moving blocks that outlived their piston. Cancelling
	// skips refreshing those positions on the client.
	HandleDesync(ctx *Context, orphans []cube.Pos)
}

// NopHandler implements Handler without doing anything.
type NopHandler struct{}

func (NopHandler) HandleBlockBreak(*Context, cube.Pos, registry.BlockState) {}
func (NopHandler) HandleDesync(*Context, []cube.Pos)                        {}
