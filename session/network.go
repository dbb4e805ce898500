package session

import (
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/relay/oerror"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/upstream"
	"github.com/oomph-ac/relay/utils"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// SendClient writes a packet to the client. Write errors are logged, the read side of the connection notices
// a broken connection.
func (s *Session) SendClient(pk packet.Packet) {
	if s.conf.Client == nil {
		return
	}
	if err := s.conf.Client.WritePacket(pk); err != nil {
		s.log.Debugf("write %T to client: %v", pk, err)
	}
}

// SendUpstream writes an action to the upstream server.
func (s *Session) SendUpstream(a upstream.Action) {
	if s.conf.Upstream == nil {
		return
	}
	if err := s.conf.Upstream.WriteAction(a); err != nil {
		s.log.Debugf("write %T upstream: %v", a, err)
	}
}

// UpdateBlock shows the state at pos to the client.
func (s *Session) UpdateBlock(pos cube.Pos, state registry.BlockState) {
	for _, pk := range utils.UpdateBlockPackets(s.conf.Registry, pos, state) {
		s.SendClient(pk)
	}
}

// HandleClientPacket hands a packet read from the client to the loop. It returns false if the session is
// closed.
func (s *Session) HandleClientPacket(pk packet.Packet) bool {
	return s.exec(func() { s.handleClientPacket(pk) })
}

func (s *Session) handleClientPacket(pk packet.Packet) {
	switch pk := pk.(type) {
	case *packet.PlayerAuthInput:
		s.handleAuthInput(pk)
	}
}

func (s *Session) readUpstream() {
	defer s.recoverPanic("readUpstream")

	for {
		ev, err := s.conf.Upstream.ReadEvent()
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.log.Infof("upstream connection of %s lost: %v", s.conf.Name, err)
			}
			_ = s.Close()
			return
		}
		if !s.exec(func() { s.HandleEvent(ev) }) {
			return
		}
	}
}

// recoverPanic reports a panic of one of the session's goroutines and closes the session instead of letting
// it take the process down.
func (s *Session) recoverPanic(where string) {
	if err := recover(); err != nil {
		s.log.Errorf("%s panic: %v", where, err)
		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("func", where)
			scope.SetTag("session", s.conf.Name)
		})

		hub.Recover(oerror.New("%v", err))
		hub.Flush(time.Second * 5)
		_ = s.Close()
	}
}
