package piston

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/collision"
	"github.com/oomph-ac/relay/game"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/utils"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// Action is what the server told a piston to do.
type Action uint8

const (
	Pushing Action = iota
	Pulling
	// CancelledMidPush is sent when a piston loses power before it finished extending. It retracts without
	// pulling anything.
	CancelledMidPush

	actionNone Action = math.MaxUint8
)

// Piston arm states as the client knows them.
const (
	stateRetracted byte = iota
	stateExtending
	stateExtended
	stateRetracting
)

var honeyAttachBox = cube.Box(1.0/16, 15.0/16, 1.0/16, 15.0/16, 1.5, 15.0/16)

// Movement is one piston extending or retracting along with the blocks it moves.
type Movement struct {
	s *Simulator

	pos         cube.Pos
	orientation cube.Face
	sticky      bool
	action      Action

	// attached holds the starting position and state of every block moved.
	attached *orderedmap.OrderedMap[cube.Pos, registry.BlockState]

	placedFinal         bool
	progress            float64
	lastProgress        float64
	timeSinceCompletion int
}

func newMovement(s *Simulator, pos cube.Pos, orientation cube.Face, sticky, extended bool) *Movement {
	m := &Movement{
		s:           s,
		pos:         pos,
		orientation: orientation,
		sticky:      sticky,
		action:      actionNone,
		attached:    orderedmap.NewOrderedMap[cube.Pos, registry.BlockState](),
	}
	if extended {
		m.progress, m.lastProgress = 1, 1
	}
	return m
}

// Pos returns the position of the piston base.
func (m *Movement) Pos() cube.Pos {
	return m.pos
}

// Progress returns how far the piston is extended, from 0 to 1.
func (m *Movement) Progress() float64 {
	return m.progress
}

func (m *Movement) setAction(action Action) {
	if m.action == action {
		return
	}
	if m.action != actionNone {
		m.placeFinalBlocks()
		m.removeMovingBlocks()
	}
	m.action = action

	if action == Pushing || (action == Pulling && m.sticky) {
		m.findAffectedBlocks()
		m.removeBlocks()
		m.createMovingBlocks()
	} else {
		m.attached = orderedmap.NewOrderedMap[cube.Pos, registry.BlockState]()
		m.removePistonHead()
	}
	m.placedFinal = false
	m.timeSinceCompletion = 0

	// Starting from the end of the previous movement lets pistons that switch action within a single tick
	// still animate.
	if action == Pushing {
		m.progress = 0
	} else {
		m.progress = 1
	}
	m.lastProgress = m.progress
	m.sendArm()
}

// movementFace is the direction the blocks move in.
func (m *Movement) movementFace() cube.Face {
	if m.action == Pushing {
		return m.orientation
	}
	return m.orientation.Opposite()
}

func (m *Movement) movement() mgl64.Vec3 {
	return cube.Pos{}.Side(m.movementFace()).Vec3()
}

func (m *Movement) headPos() cube.Pos {
	return m.pos.Side(m.orientation)
}

// findAffectedBlocks collects the blocks moved by the piston. Blocks in the way of a moving block are
// pushed along, while slime and honey blocks drag their other neighbours with them.
func (m *Movement) findAffectedBlocks() {
	m.attached = orderedmap.NewOrderedMap[cube.Pos, registry.BlockState]()

	pushing := m.action == Pushing
	mv := m.movementFace()
	head := m.headPos()
	start := head
	if !pushing {
		start = head.Side(m.orientation)
	}
	state := m.s.conf.Blocks.BlockAt(start)
	if !m.canMove(start, state, pushing) {
		return
	}
	m.attached.Set(start, state)

	queue := []cube.Pos{start}
	for len(queue) > 0 {
		pos := queue[0]
		queue = queue[1:]
		state, _ := m.attached.Get(pos)

		for _, face := range cube.Faces() {
			n := pos.Side(face)
			if n == m.pos || (!pushing && n == head) {
				continue
			}
			if _, ok := m.attached.Get(n); ok {
				continue
			}
			ns := m.s.conf.Blocks.BlockAt(n)
			if face == mv {
				if ns.Air() || (pushing && canDestroy(ns)) {
					continue
				}
				if !m.canMove(n, ns, pushing) {
					m.blocked(n)
					return
				}
			} else if !state.Sticky() || !sticksTo(state, ns) || !m.canMove(n, ns, pushing) {
				continue
			}
			m.attached.Set(n, ns)
			if m.attached.Len() > game.PistonPushLimit {
				m.blocked(n)
				return
			}
			queue = append(queue, n)
		}
	}
}

func (m *Movement) blocked(at cube.Pos) {
	m.s.conf.Log.Debugf("piston at %v blocked by %v, moving head only", m.pos, at)
	m.attached = orderedmap.NewOrderedMap[cube.Pos, registry.BlockState]()
}

func (m *Movement) canMove(pos cube.Pos, state registry.BlockState, pushing bool) bool {
	switch {
	case state.Air(), state.Liquid(), state.BlockEntity, state.Hardness < 0:
		return false
	case state.PistonBase():
		_, active := m.s.pistons.Get(pos)
		return !active
	}
	switch state.Piston {
	case registry.PistonNormal:
		return true
	case registry.PistonPushOnly:
		return pushing
	}
	return false
}

func canDestroy(state registry.BlockState) bool {
	return state.Piston == registry.PistonDestroy || state.Liquid()
}

// sticksTo reports whether a sticky block drags other along with it. Slime and honey never stick to each
// other.
func sticksTo(sticky, other registry.BlockState) bool {
	if (sticky.Slime() && other.Honey()) || (sticky.Honey() && other.Slime()) {
		return false
	}
	return other.Piston != registry.PistonPushOnly
}

// removeBlocks clears the starting positions of the moved blocks in the mirror.
func (m *Movement) removeBlocks() {
	air := m.s.conf.Registry.Air()
	for el := m.attached.Front(); el != nil; el = el.Next() {
		m.s.conf.Blocks.SetBlock(el.Key, air)
	}
	if m.action != Pushing {
		m.removePistonHead()
	}
}

func (m *Movement) removePistonHead() {
	head := m.headPos()
	switch m.s.conf.Blocks.BlockAt(head).Name {
	case "minecraft:piston_arm_collision", "minecraft:sticky_piston_arm_collision":
		m.s.conf.Blocks.SetBlock(head, m.s.conf.Registry.Air())
	}
}

// createMovingBlocks indexes the moved blocks and shows them to the client as moving blocks. Blocks that
// would collide with the player are left out, as the client handles those badly.
func (m *Movement) createMovingBlocks() {
	m.s.index(m.headPos(), m)

	player := m.s.conf.Solver.BoundingBox()
	if m.orientation == cube.FaceUp {
		// Catch a player falling onto the blocks too.
		player = collision.ExtendBox(player, mgl64.Vec3{-0.25, -256, -0.25})
		player = collision.ExtendBox(player, mgl64.Vec3{0.25, 0, 0.25})
	}
	face := m.movementFace()
	for el := m.attached.Front(); el != nil; el = el.Next() {
		m.s.index(el.Key, m)

		newPos := el.Key.Side(face)
		if collision.Intersects(collision.FullBox(el.Key.Vec3()), player) || collision.Intersects(collision.FullBox(newPos.Vec3()), player) {
			m.s.collided = true
			continue
		}
		m.s.conf.Client.SendClient(&packet.UpdateBlock{
			Position:          utils.BlockPos(newPos),
			NewBlockRuntimeID: m.s.conf.Registry.MovingBlockRuntimeID(),
			Flags:             packet.BlockUpdateNeighbours | packet.BlockUpdateNetwork,
			Layer:             0,
		})
		m.s.conf.Client.SendClient(&packet.BlockActorData{
			Position: utils.BlockPos(newPos),
			NBTData:  m.movingBlockData(newPos, el.Value, m.pos),
		})
	}
}

// placeFinalBlocks detaches the moved blocks from the piston and places them at their new positions.
func (m *Movement) placeFinalBlocks() {
	if m.placedFinal {
		return
	}
	m.placedFinal = true

	player := m.s.conf.Solver.BoundingBox()
	detached := cube.Pos{0, -1, 0}
	face := m.movementFace()
	for el := m.attached.Front(); el != nil; el = el.Next() {
		newPos := el.Key.Side(face)
		m.s.conf.Client.SendClient(&packet.BlockActorData{
			Position: utils.BlockPos(newPos),
			NBTData:  m.movingBlockData(newPos, el.Value, detached),
		})
		m.s.conf.Blocks.SetBlock(newPos, el.Value)
		if collision.Intersects(collision.FullBox(newPos.Vec3()), player) {
			// The server update for the block follows once the player moved out of it.
			continue
		}
		for _, pk := range utils.UpdateBlockPackets(m.s.conf.Registry, newPos, el.Value) {
			m.s.conf.Client.SendClient(pk)
		}
	}
}

func (m *Movement) removeMovingBlocks() {
	m.s.unindex(m.headPos(), m)
	for el := m.attached.Front(); el != nil; el = el.Next() {
		m.s.unindex(el.Key, m)
	}
}

func (m *Movement) updateProgress() {
	m.lastProgress = m.progress
	if m.action == Pushing {
		m.progress = math.Min(1, m.progress+game.PistonProgressStep)
	} else {
		m.progress = math.Max(0, m.progress-game.PistonProgressStep)
	}
}

func (m *Movement) done() bool {
	target := 0.0
	if m.action == Pushing {
		target = 1
	}
	return m.progress == target && m.lastProgress == target
}

func (m *Movement) canBeRemoved() bool {
	return m.done() && m.timeSinceCompletion > game.PistonRemovalDelay
}

func (m *Movement) updateMovement() {
	if m.done() {
		m.timeSinceCompletion++
		return
	}
	m.updateProgress()
	m.pushPlayer()
}

func (m *Movement) updateBlocks() {
	if !m.done() {
		return
	}
	if m.timeSinceCompletion == 0 {
		m.placeFinalBlocks()
	}
	if m.timeSinceCompletion >= game.PistonRemovalDelay {
		m.removeMovingBlocks()
	}
}

// blockMovement is how far the moved blocks travelled at the start of the tick.
func (m *Movement) blockMovement() float64 {
	if m.action == Pushing {
		return m.lastProgress
	}
	return 1 - m.lastProgress
}

// pushPlayer moves the player out of the piston head and the moved blocks. Slime blocks are resolved last
// so that their motion applies to the final position.
func (m *Movement) pushPlayer() {
	movement := m.blockMovement()

	headStart := m.pos.Vec3()
	if m.action != Pushing {
		headStart = m.headPos().Vec3()
	}
	m.pushPlayerBlock(headBoxes(m.orientation), registry.BlockState{}, headStart, movement)

	for el := m.attached.Front(); el != nil; el = el.Next() {
		if !el.Value.Slime() {
			m.pushPlayerBlock(collision.Boxes(el.Value), el.Value, el.Key.Vec3(), movement)
		}
	}
	for el := m.attached.Front(); el != nil; el = el.Next() {
		if el.Value.Slime() {
			m.pushPlayerBlock(collision.Boxes(el.Value), el.Value, el.Key.Vec3(), movement)
		}
	}
}

// playerBox returns the player's box shrunk on the axes the piston is not moving along.
func (m *Movement) playerBox() cube.BBox {
	v := mgl64.Vec3{game.PistonCollisionTolerance, game.PistonCollisionTolerance, game.PistonCollisionTolerance}
	v[axisIndex(m.orientation.Axis())] = 0
	return collision.Shrink(m.s.conf.Solver.BoundingBox(), v)
}

func (m *Movement) pushPlayerBlock(boxes []cube.BBox, state registry.BlockState, start mgl64.Vec3, blockMovement float64) {
	mv := m.movement()
	player := m.playerBox()

	final := start.Add(mv)
	if state.Slime() && collision.Intersects(collision.FullBox(final), player) {
		m.s.collided, m.s.slimeCollision = true, true
		m.applySlimeMotion(final, player)
	}

	pos := start.Add(mv.Mul(blockMovement))
	if state.Honey() && m.playerAttached(pos, player) {
		m.s.collided, m.s.honeyAttached = true, true
		m.s.DisplacePlayer(mv.Mul(math.Abs(m.progress - m.lastProgress)))
		return
	}
	if len(boxes) == 0 {
		return
	}

	extend := mv.Mul(math.Min(1-blockMovement, 0.5))
	dir := m.movementFace()
	intersection := 0.0
	for _, b := range boxes {
		b = collision.ExtendBox(b.Translate(pos), extend)
		if !collision.Intersects(b, player) {
			continue
		}
		depth := collision.PenetrationDepth(player, b, dir)
		if depth < collision.PenetrationDepth(player, b, dir.Opposite()) {
			intersection = math.Max(intersection, depth)
		}
	}
	if intersection <= 0 {
		return
	}
	m.s.collided = true
	m.s.DisplacePlayer(mv.Mul(intersection + game.PistonIntersectionPadding))
	if state.Slime() {
		m.s.slimeCollision = true
		m.applySlimeMotion(pos, m.s.conf.Solver.BoundingBox())
	}
}

// playerAttached reports whether the player is standing on a honey block moved sideways.
func (m *Movement) playerAttached(pos mgl64.Vec3, player cube.BBox) bool {
	if m.orientation.Axis() == cube.Y {
		return false
	}
	return m.s.conf.Player.OnGround() && collision.Intersects(honeyAttachBox.Translate(pos), player)
}

// applySlimeMotion launches the player along the movement when they are on the side of the slime block the
// block is moving towards.
func (m *Movement) applySlimeMotion(blockPos mgl64.Vec3, player cube.BBox) {
	centre := blockPos.Add(mgl64.Vec3{0.5, 0.5, 0.5})
	lo, hi := player.Min(), player.Max()
	p := lo.Add(hi).Mul(0.5)
	mv := m.movement()

	switch m.movementFace() {
	case cube.FaceDown:
		if p[1] < centre[1] {
			m.s.motion[1] = mv[1]
		}
	case cube.FaceUp:
		if p[1] > centre[1] {
			m.s.motion[1] = mv[1]
		}
	case cube.FaceNorth:
		if p[2] < centre[2] {
			m.s.motion[2] = mv[2]
		}
	case cube.FaceSouth:
		if p[2] > centre[2] {
			m.s.motion[2] = mv[2]
		}
	case cube.FaceWest:
		if p[0] < centre[0] {
			m.s.motion[0] = mv[0]
		}
	case cube.FaceEast:
		if p[0] > centre[0] {
			m.s.motion[0] = mv[0]
		}
	}
}

// extension is how far the head has moved out of the base.
func (m *Movement) extension() float64 {
	return m.progress
}

// origin returns where the block moving from pos currently is, along with its collision boxes.
// A pushed block starting in front of the piston shares its position with the head and takes precedence.
func (m *Movement) origin(pos cube.Pos) (mgl64.Vec3, []cube.BBox) {
	state, ok := m.attached.Get(pos)
	if !ok {
		if pos == m.headPos() {
			return m.pos.Vec3().Add(cube.Pos{}.Side(m.orientation).Vec3().Mul(m.extension())), headBoxes(m.orientation)
		}
		return pos.Vec3(), nil
	}
	progress := m.progress
	if m.action != Pushing {
		progress = 1 - m.progress
	}
	return pos.Vec3().Add(m.movement().Mul(progress)), collision.Boxes(state)
}

func (m *Movement) computeCollisionOffset(pos cube.Pos, box cube.BBox, axis cube.Axis, offset float64) float64 {
	at, boxes := m.origin(pos)
	for _, b := range boxes {
		offset = collision.AxisOffset(b.Translate(at), box, axis, offset)
	}
	return offset
}

func (m *Movement) checkCollision(pos cube.Pos, box cube.BBox) bool {
	at, boxes := m.origin(pos)
	for _, b := range boxes {
		if collision.Intersects(b.Translate(at), box) {
			return true
		}
	}
	return false
}

// sendArm updates the piston arm block entity so the client animates the movement.
func (m *Movement) sendArm() {
	state := stateExtending
	switch {
	case m.action == Pushing && m.done():
		state = stateExtended
	case m.action != Pushing && m.done():
		state = stateRetracted
	case m.action != Pushing:
		state = stateRetracting
	}
	attached := make([]int32, 0, m.attached.Len()*3)
	for el := m.attached.Front(); el != nil; el = el.Next() {
		attached = append(attached, int32(el.Key[0]), int32(el.Key[1]), int32(el.Key[2]))
	}
	m.s.conf.Client.SendClient(&packet.BlockActorData{
		Position: utils.BlockPos(m.pos),
		NBTData: map[string]any{
			"id":             "PistonArm",
			"AttachedBlocks": attached,
			"Progress":       float32(m.progress),
			"LastProgress":   float32(m.lastProgress),
			"NewState":       state,
			"State":          state,
			"Sticky":         boolByte(m.sticky),
			"isMovable":      byte(0),
			"x":              int32(m.pos[0]),
			"y":              int32(m.pos[1]),
			"z":              int32(m.pos[2]),
		},
	})
}

func (m *Movement) movingBlockData(pos cube.Pos, state registry.BlockState, piston cube.Pos) map[string]any {
	return map[string]any{
		"id":               "MovingBlock",
		"isMovable":        byte(1),
		"movingBlock":      blockCompound(state.RuntimeID),
		"movingBlockExtra": blockCompound(m.s.conf.Registry.Air().RuntimeID),
		"pistonPosX":       int32(piston[0]),
		"pistonPosY":       int32(piston[1]),
		"pistonPosZ":       int32(piston[2]),
		"x":                int32(pos[0]),
		"y":                int32(pos[1]),
		"z":                int32(pos[2]),
	}
}

func blockCompound(rid uint32) map[string]any {
	name, properties, ok := registry.BedrockState(rid)
	if !ok {
		name, properties = "minecraft:air", map[string]any{}
	}
	return map[string]any{"name": name, "states": properties}
}

// headBoxes returns the plate and arm of a piston head facing face, relative to the head's origin.
func headBoxes(face cube.Face) []cube.BBox {
	plate, arm := [2]float64{0.75, 1}, [2]float64{-0.25, 0.75}
	switch face {
	case cube.FaceDown, cube.FaceNorth, cube.FaceWest:
		plate, arm = [2]float64{0, 0.25}, [2]float64{0.25, 1.25}
	}
	axis := axisIndex(face.Axis())
	return []cube.BBox{slab(axis, plate, 0, 1), slab(axis, arm, 0.375, 0.625)}
}

func slab(axis int, along [2]float64, lo, hi float64) cube.BBox {
	min, max := mgl64.Vec3{lo, lo, lo}, mgl64.Vec3{hi, hi, hi}
	min[axis], max[axis] = along[0], along[1]
	return cube.Box(min[0], min[1], min[2], max[0], max[1], max[2])
}

func axisIndex(axis cube.Axis) int {
	switch axis {
	case cube.X:
		return 0
	case cube.Y:
		return 1
	}
	return 2
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
