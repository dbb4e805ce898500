// Package upstream holds the actions the relay sends to the upstream server and the events it receives
// from it, decoded from the upstream wire protocol by whatever implements Conn.
package upstream

import "github.com/df-mc/dragonfly/server/block/cube"

// Action is something the relay asks the upstream server to do on behalf of the player.
type Action interface {
	action()
}

// DigStatus is the kind of a PlayerAction.
type DigStatus uint8

const (
	StartDigging DigStatus = iota
	CancelDigging
	FinishDigging
	DropItemStack
	DropItem
)

func (s DigStatus) String() string {
	switch s {
	case StartDigging:
		return "start_digging"
	case CancelDigging:
		return "cancel_digging"
	case FinishDigging:
		return "finish_digging"
	case DropItemStack:
		return "drop_item_stack"
	case DropItem:
		return "drop_item"
	}
	return "unknown"
}

// PlayerAction reports mining progress or an item drop. Sequence is zero for actions the server does not
// acknowledge.
type PlayerAction struct {
	Status   DigStatus
	Pos      cube.Pos
	Face     cube.Face
	Sequence int32
}

// Interact attacks or uses an entity.
type Interact struct {
	EntityID int32
	Attack   bool
	Sneaking bool
}

func (PlayerAction) action() {}
func (Interact) action()     {}
