// Package session drives the synchronisation state of one connection. Everything a Session owns is only
// touched from its loop goroutine; other goroutines hand work to the loop instead.
package session

import (
	"sync"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/event"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/relay/assert"
	"github.com/oomph-ac/relay/blockbreak"
	"github.com/oomph-ac/relay/collision"
	"github.com/oomph-ac/relay/entity"
	"github.com/oomph-ac/relay/game"
	"github.com/oomph-ac/relay/piston"
	"github.com/oomph-ac/relay/prediction"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/upstream"
	"github.com/oomph-ac/relay/world"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/sirupsen/logrus"
)

const (
	defaultMinY   = -64
	defaultHeight = 384
	taskBacklog   = 256
)

// ClientConn is the connection to the Bedrock client of a session.
type ClientConn interface {
	WritePacket(pk packet.Packet) error
}

// Config holds what a Session needs to be created.
type Config struct {
	// Name identifies the session in logs and crash reports.
	Name     string
	Registry *registry.Registry
	Client   ClientConn
	Upstream upstream.Conn

	// MirrorBlocks keeps a copy of every block the server sends. Without it, Source answers block
	// lookups.
	MirrorBlocks bool
	Source       world.Source
	MinY, Height int

	Observer entity.PlayerObserver
	Log      *logrus.Logger
}

// Session is the state of one client connected through the relay.
type Session struct {
	conf Config
	log  *logrus.Logger

	tasks  chan func()
	closed chan struct{}
	once   sync.Once

	hMutex sync.RWMutex
	h      Handler

	sched *Scheduler

	tick          uint64
	inputThisTick bool
	runtimeID     uint64
	drops         []blockbreak.Action

	blocks   world.Source
	mirror   *world.Mirror
	border   *world.Border
	entities *entity.Map
	ledger   *prediction.Ledger
	breaker  *blockbreak.Engine
	pistons  *piston.Simulator
	solver   *collision.Solver
	player   *player
}

// New creates a Session. The loop does not run until Start is called.
func New(conf Config) *Session {
	assert.IsTrue(conf.Registry != nil, "session %s created without a registry", conf.Name)
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	if conf.Height == 0 {
		conf.MinY, conf.Height = defaultMinY, defaultHeight
	}
	s := &Session{
		conf:   conf,
		log:    conf.Log,
		tasks:  make(chan func(), taskBacklog),
		closed: make(chan struct{}),
		h:      NopHandler{},
	}
	s.sched = &Scheduler{exec: s.exec}

	s.mirror = world.NewMirror(conf.Registry, conf.MinY, conf.Height)
	s.mirror.SetEnabled(conf.MirrorBlocks || conf.Source == nil)
	s.blocks = s.mirror
	if !s.mirror.Enabled() {
		s.blocks = conf.Source
	}

	s.border = world.NewBorder()
	s.entities = entity.NewMap(conf.Observer)
	s.runtimeID = s.entities.NextLocalID()
	s.player = &player{s: s, held: blockbreak.Held{Item: registry.Hand}}

	s.solver = collision.NewSolver(s.blocks, playerBox(mgl64.Vec3{}))
	s.ledger = prediction.NewLedger(s.blocks, s.mirror, s)
	s.pistons = piston.New(piston.Config{
		Blocks:   s.mirror,
		Solver:   s.solver,
		Player:   s.player,
		Client:   s,
		Registry: conf.Registry,
		Log:      conf.Log,
		OnDesync: s.handleDesync,
	})
	s.solver.SetMovingBlocks(s.pistons)
	s.breaker = blockbreak.New(blockbreak.Config{
		Player:     s.player,
		World:      s.blocks,
		Border:     s.border,
		Entities:   s.entities,
		Ledger:     s.ledger,
		Registry:   conf.Registry,
		Transport:  s,
		Log:        conf.Log,
		AllowBreak: s.allowBreak,
	})
	return s
}

// Start runs the loop of the session and starts reading from the upstream connection.
func (s *Session) Start() {
	go s.run()
	if s.conf.Upstream != nil {
		go s.readUpstream()
	}
}

// Close stops the session and closes the upstream connection. It may be called more than once.
func (s *Session) Close() (err error) {
	s.once.Do(func() {
		close(s.closed)
		if s.conf.Upstream != nil {
			err = s.conf.Upstream.Close()
		}
	})
	return err
}

// Closed returns a channel that is closed once the session is.
func (s *Session) Closed() <-chan struct{} {
	return s.closed
}

// Handle sets the handler of the session. A nil handler is replaced by NopHandler.
func (s *Session) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	s.hMutex.Lock()
	s.h = h
	s.hMutex.Unlock()
}

func (s *Session) handler() Handler {
	s.hMutex.RLock()
	defer s.hMutex.RUnlock()
	return s.h
}

// Scheduler returns the scheduler running delayed work on the loop of the session.
func (s *Session) Scheduler() *Scheduler {
	return s.sched
}

// Exec runs fn on the loop of the session. It returns false if the session is closed.
func (s *Session) Exec(fn func(s *Session)) bool {
	return s.exec(func() { fn(s) })
}

func (s *Session) exec(fn func()) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case <-s.closed:
		return false
	case s.tasks <- fn:
		return true
	}
}

func (s *Session) run() {
	ticker := time.NewTicker(time.Second / game.TicksPerSecond)
	defer ticker.Stop()
	defer s.recoverPanic("session loop")

	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			s.OnTick(s.tick + 1)
		case fn := <-s.tasks:
			fn()
		}
	}
}

// OnTick advances the session by one tick.
func (s *Session) OnTick(tick uint64) {
	s.tick = tick
	s.pistons.Tick()
	// Input batches already advance the break, so only fall back on the server timing for ticks without one.
	if !s.inputThisTick {
		s.breaker.Tick(tick)
	}
	s.inputThisTick = false
	s.ledger.Tick(tick)
}

// OnInputBatch handles the block actions the client sent with one input packet.
func (s *Session) OnInputBatch(actions []blockbreak.Action, tick uint64) {
	s.inputThisTick = true
	s.breaker.OnInputBatch(actions, tick)
}

// DropItem queues dropping the held item with the next input batch. It must be called on the loop.
func (s *Session) DropItem(stack bool) {
	s.drops = append(s.drops, blockbreak.DropItem{Stack: stack})
}

// Tick returns the current tick of the session.
func (s *Session) Tick() uint64 {
	return s.tick
}

// RuntimeID returns the entity runtime ID of the client's own player.
func (s *Session) RuntimeID() uint64 {
	return s.runtimeID
}

func (s *Session) Entities() *entity.Map            { return s.entities }
func (s *Session) Mirror() *world.Mirror            { return s.mirror }
func (s *Session) Border() *world.Border            { return s.border }
func (s *Session) Ledger() *prediction.Ledger       { return s.ledger }
func (s *Session) BlockBreaker() *blockbreak.Engine { return s.breaker }
func (s *Session) Pistons() *piston.Simulator       { return s.pistons }

// Reset drops all state tied to the current world, as happens on a dimension change.
func (s *Session) Reset() {
	s.entities.ForEachBossBar(func(b *entity.BossBar) {
		s.SendClient(b.HidePacket())
	})
	s.pistons.Reset()
	s.breaker.Reset()
	s.ledger.Reset()
	s.entities.Clear()
	s.border.Reset()
	s.drops = nil
}

func (s *Session) allowBreak(pos cube.Pos, state registry.BlockState) bool {
	ctx := event.C(s)
	s.handler().HandleBlockBreak(ctx, pos, state)
	return !ctx.Cancelled()
}

// handleDesync refreshes the client's view of orphaned moving blocks one tick later, once the server had a
// chance to send the blocks itself.
func (s *Session) handleDesync(orphans []cube.Pos) {
	ctx := event.C(s)
	if s.handler().HandleDesync(ctx, orphans); ctx.Cancelled() {
		return
	}
	s.sched.After(time.Second/game.TicksPerSecond, func() {
		for _, pos := range orphans {
			s.UpdateBlock(pos, s.blocks.BlockAt(pos))
			for _, face := range cube.Faces() {
				s.UpdateBlock(pos.Side(face), s.blocks.BlockAt(pos.Side(face)))
			}
		}
	})
}

func playerBox(feet mgl64.Vec3) cube.BBox {
	return cube.Box(-0.3, 0, -0.3, 0.3, 1.8, 0.3).Translate(feet)
}
