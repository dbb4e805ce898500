package blockbreak

import "github.com/df-mc/dragonfly/server/block/cube"

// Kind tags the variant of an Action.
type Kind uint8

const (
	KindDropItem Kind = iota
	KindStartBreak
	KindContinueDestroy
	KindPredictDestroy
	KindAbortBreak

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindDropItem:
		return "drop_item"
	case KindStartBreak:
		return "start_break"
	case KindContinueDestroy:
		return "continue_destroy"
	case KindPredictDestroy:
		return "predict_destroy"
	case KindAbortBreak:
		return "abort_break"
	}
	return "unknown"
}

// Action is one block action the client performed during a tick. The set of actions is closed; the engine
// dispatches on Kind.
type Action interface {
	Kind() Kind
}

// Positioned is an Action that addresses a block.
type Positioned interface {
	Action
	Position() cube.Pos
}

// DropItem drops the held item. Stack is set when the whole stack is dropped.
type DropItem struct {
	Stack bool
}

// StartBreak starts breaking the block at Pos by hitting Face.
type StartBreak struct {
	Pos  cube.Pos
	Face cube.Face
}

// ContinueDestroy is sent every tick the client keeps breaking the block at Pos.
type ContinueDestroy struct {
	Pos  cube.Pos
	Face cube.Face
}

// PredictDestroy is sent when the client believes it finished breaking the block at Pos.
type PredictDestroy struct {
	Pos  cube.Pos
	Face cube.Face
}

// AbortBreak is sent when the client stops breaking the block at Pos, including right after it broke a
// block.
type AbortBreak struct {
	Pos  cube.Pos
	Face cube.Face
}

func (DropItem) Kind() Kind        { return KindDropItem }
func (StartBreak) Kind() Kind      { return KindStartBreak }
func (ContinueDestroy) Kind() Kind { return KindContinueDestroy }
func (PredictDestroy) Kind() Kind  { return KindPredictDestroy }
func (AbortBreak) Kind() Kind      { return KindAbortBreak }

func (a StartBreak) Position() cube.Pos      { return a.Pos }
func (a ContinueDestroy) Position() cube.Pos { return a.Pos }
func (a PredictDestroy) Position() cube.Pos  { return a.Pos }
func (a AbortBreak) Position() cube.Pos      { return a.Pos }
