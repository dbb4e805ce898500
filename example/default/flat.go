package main

import (
	"context"
	"errors"
	"sync"

	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/upstream"
	"github.com/sandertv/gophertunnel/minecraft/protocol/login"
)

// floorLayers is the amount of stone layers at the bottom of the flat world.
const floorLayers = 4

// flatDialer connects every player to a world of its own made of stone chunks around the origin.
type flatDialer struct {
	reg    *registry.Registry
	radius int32
}

func (d flatDialer) Dial(_ context.Context, _ login.IdentityData) (upstream.Conn, error) {
	stone, ok := d.reg.BlockByName("minecraft:stone")
	if !ok {
		return nil, errors.New("registry has no stone")
	}
	c := &flatConn{events: make(chan upstream.Event, 1024), closed: make(chan struct{})}

	floor := make([]uint32, 4096)
	for i := range floorLayers << 8 {
		floor[i] = stone.ID
	}
	for x := -d.radius; x <= d.radius; x++ {
		for z := -d.radius; z <= d.radius; z++ {
			c.push(upstream.ChunkLoad{X: x, Z: z, States: [][]uint32{floor}})
		}
	}
	return c, nil
}

// flatConn is a server that agrees with everything the player breaks.
type flatConn struct {
	events chan upstream.Event
	closed chan struct{}
	once   sync.Once
}

func (c *flatConn) WriteAction(a upstream.Action) error {
	pa, ok := a.(upstream.PlayerAction)
	if !ok || pa.Sequence == 0 {
		return nil
	}
	if pa.Status == upstream.FinishDigging {
		c.push(upstream.BlockUpdate{Pos: pa.Pos})
	}
	c.push(upstream.BlockChangedAck{Sequence: pa.Sequence})
	return nil
}

func (c *flatConn) ReadEvent() (upstream.Event, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *flatConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// push queues an event, dropping it if the player stopped reading.
func (c *flatConn) push(ev upstream.Event) {
	select {
	case c.events <- ev:
	default:
	}
}
