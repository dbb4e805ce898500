package world

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world/chunk"
	"github.com/oomph-ac/relay/registry"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

// Source is the authority on what block is at a position. It is consulted when the mirror is disabled and
// whenever a speculative edit has to be rolled back.
type Source interface {
	BlockAt(pos cube.Pos) registry.BlockState
}

// Mirror holds the block states the upstream server sent for the chunks loaded in one session. Sections
// are only allocated once a non-air block is written into them and are released again when they become
// all air. The Mirror is only used from the session loop.
type Mirror struct {
	reg     *registry.Registry
	columns map[protocol.ChunkPos]*column

	enabled bool
	minY    int
	height  int
}

// NewMirror returns an enabled Mirror covering the vertical range [minY, minY+height).
func NewMirror(reg *registry.Registry, minY, height int) *Mirror {
	return &Mirror{
		reg:     reg,
		columns: make(map[protocol.ChunkPos]*column),
		enabled: true,
		minY:    minY,
		height:  height,
	}
}

// Configure changes the vertical range of the mirror, as happens when the player changes dimension. All
// mirrored columns are dropped.
func (m *Mirror) Configure(minY, height int) {
	m.Clear()
	m.minY, m.height = minY, height
}

// SetEnabled turns mirroring on or off. Disabling the mirror drops every column.
func (m *Mirror) SetEnabled(enabled bool) {
	if !enabled {
		m.Clear()
	}
	m.enabled = enabled
}

// Enabled reports whether the mirror is holding block states.
func (m *Mirror) Enabled() bool {
	return m.enabled
}

// Range returns the vertical bounds of the mirror.
func (m *Mirror) Range() cube.Range {
	return cube.Range{m.minY, m.minY + m.height - 1}
}

// LoadColumn starts mirroring the chunk column at the chunk coordinates passed, replacing any column that
// was already there.
func (m *Mirror) LoadColumn(x, z int32) {
	if !m.enabled {
		return
	}
	m.columns[protocol.ChunkPos{x, z}] = newColumn(m.height >> 4)
}

// DropColumn stops mirroring the chunk column at the chunk coordinates passed.
func (m *Mirror) DropColumn(x, z int32) {
	delete(m.columns, protocol.ChunkPos{x, z})
}

// Clear drops every mirrored column.
func (m *Mirror) Clear() {
	clear(m.columns)
}

// Columns returns the amount of mirrored columns.
func (m *Mirror) Columns() int {
	return len(m.columns)
}

// SetBlock mirrors the state at the position passed. Writes to columns that are not loaded or to heights
// outside the range of the mirror are ignored.
func (m *Mirror) SetBlock(pos cube.Pos, state registry.BlockState) {
	c, index, ok := m.locate(pos)
	if !ok {
		return
	}
	c.set(index, uint8(pos[0]&15), uint8(pos[1]&15), uint8(pos[2]&15), state.ID)
}

// Block returns the mirrored state at the position passed, or air if nothing is mirrored there.
func (m *Mirror) Block(pos cube.Pos) registry.BlockState {
	c, index, ok := m.locate(pos)
	if !ok {
		return m.reg.Air()
	}
	return m.reg.Block(c.get(index, uint8(pos[0]&15), uint8(pos[1]&15), uint8(pos[2]&15)))
}

// BlockAt implements Source.
func (m *Mirror) BlockAt(pos cube.Pos) registry.BlockState {
	return m.Block(pos)
}

// Sections returns the amount of allocated sections in the column at the chunk coordinates passed.
func (m *Mirror) Sections(x, z int32) int {
	c, ok := m.columns[protocol.ChunkPos{x, z}]
	if !ok {
		return 0
	}
	return c.allocated()
}

func (m *Mirror) locate(pos cube.Pos) (*column, int, bool) {
	if !m.enabled || pos[1] < m.minY || pos[1] >= m.minY+m.height {
		return nil, 0, false
	}
	c, ok := m.columns[protocol.ChunkPos{int32(pos[0] >> 4), int32(pos[2] >> 4)}]
	if !ok {
		return nil, 0, false
	}
	return c, (pos[1] - m.minY) >> 4, true
}

// column is the vertical stack of sections of one chunk. Nil sections are all air.
type column struct {
	sections []*section
}

// section stores the states of a 16x16x16 cube in dragonfly's paletted storage, along with the amount of
// non-air blocks so that it can be released once it is empty again.
type section struct {
	sub   *chunk.SubChunk
	solid int
}

func newColumn(sections int) *column {
	return &column{sections: make([]*section, sections)}
}

func (c *column) get(index int, x, y, z uint8) uint32 {
	if index >= len(c.sections) || c.sections[index] == nil {
		return 0
	}
	return c.sections[index].sub.Block(x, y, z, 0)
}

func (c *column) set(index int, x, y, z uint8, id uint32) {
	if index >= len(c.sections) {
		return
	}
	s := c.sections[index]
	if s == nil {
		if id == 0 {
			return
		}
		s = &section{sub: chunk.NewSubChunk(0)}
		c.sections[index] = s
	}

	prev := s.sub.Block(x, y, z, 0)
	if prev == id {
		return
	}
	s.sub.SetBlock(x, y, z, 0, id)
	switch {
	case prev == 0:
		s.solid++
	case id == 0:
		s.solid--
	}
	if s.solid == 0 {
		c.sections[index] = nil
	}
}

func (c *column) allocated() (n int) {
	for _, s := range c.sections {
		if s != nil {
			n++
		}
	}
	return n
}
