package prediction

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/world"
)

// BlockUpdater shows a block state to the client.
type BlockUpdater interface {
	UpdateBlock(pos cube.Pos, state registry.BlockState)
}

// BlockSetter stores an authoritative block state, usually in a world.Mirror.
type BlockSetter interface {
	SetBlock(pos cube.Pos, state registry.BlockState)
}

// Ledger numbers the actions the upstream server acknowledges and remembers which positions were edited
// speculatively by the client, so that they can be set straight once the server has answered.
type Ledger struct {
	source  world.Source
	store   BlockSetter
	updater BlockUpdater

	sequence int32
	pending  map[cube.Pos]int32

	ephemeral
}

// NewLedger returns a Ledger that resolves rolled back positions through source, stores refreshed states
// in store and shows both to the client through updater.
func NewLedger(source world.Source, store BlockSetter, updater BlockUpdater) *Ledger {
	l := &Ledger{
		source:  source,
		store:   store,
		updater: updater,
		pending: make(map[cube.Pos]int32),
	}
	l.ephemeral.reset()
	return l
}

// NextSequence returns the sequence number for the next acknowledged action. The first call returns 1.
func (l *Ledger) NextSequence() int32 {
	l.sequence++
	return l.sequence
}

// Sequence returns the last sequence number handed out.
func (l *Ledger) Sequence() int32 {
	return l.sequence
}

// MarkSpeculative records that the block at pos was changed on the client ahead of the server, under the
// current sequence number.
func (l *Ledger) MarkSpeculative(pos cube.Pos) {
	l.pending[pos] = l.sequence
}

// Pending reports whether pos has an unconfirmed speculative edit and the sequence it was recorded under.
func (l *Ledger) Pending(pos cube.Pos) (int32, bool) {
	seq, ok := l.pending[pos]
	return seq, ok
}

// PendingLen returns the amount of positions awaiting confirmation.
func (l *Ledger) PendingLen() int {
	return len(l.pending)
}

// ConfirmUpTo handles the server acknowledging every action up to and including seq. Every position
// recorded under such a sequence is shown to the client again as the source has it, which silently undoes
// any speculative edit the server did not agree with.
func (l *Ledger) ConfirmUpTo(seq int32) {
	for pos, s := range l.pending {
		if s > seq {
			continue
		}
		delete(l.pending, pos)
		l.updater.UpdateBlock(pos, l.source.BlockAt(pos))
	}
}

// Refresh handles an unconditional block update from the server. The state is stored and shown to the
// client, and any pending speculative edit at the position is forgotten.
func (l *Ledger) Refresh(pos cube.Pos, state registry.BlockState) {
	delete(l.pending, pos)
	l.store.SetBlock(pos, state)
	l.updater.UpdateBlock(pos, state)
}

// Reset forgets all pending edits and ephemeral state. The sequence counter keeps counting.
func (l *Ledger) Reset() {
	clear(l.pending)
	l.ephemeral.reset()
}
