package upstream

import (
	"context"

	"github.com/sandertv/gophertunnel/minecraft/protocol/login"
)

// Conn is a connection to the upstream server for one player.
type Conn interface {
	// WriteAction sends an action to the server. It must not block on the network.
	WriteAction(a Action) error
	// ReadEvent blocks until the server sends the next event.
	ReadEvent() (Event, error)
	Close() error
}

// Dialer opens upstream connections.
type Dialer interface {
	Dial(ctx context.Context, identity login.IdentityData) (Conn, error)
}
