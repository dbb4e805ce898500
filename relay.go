package relay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/oomph-ac/relay/entity"
	"github.com/oomph-ac/relay/oerror"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/session"
	"github.com/oomph-ac/relay/settings"
	"github.com/oomph-ac/relay/upstream"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol/login"
	"github.com/sirupsen/logrus"
)

// dialTimeout bounds how long connecting a player to the upstream server may take.
const dialTimeout = time.Second * 15

// Config holds what a Relay needs to accept players.
type Config struct {
	Settings settings.Settings
	Registry *registry.Registry
	// Dialer connects each player to the upstream server.
	Dialer upstream.Dialer
	Log    *logrus.Logger

	// StatusProvider, if set, answers server list pings. By default the listener reports a plain status.
	StatusProvider minecraft.ServerStatusProvider
	// Observer is told about every player registered in any session.
	Observer entity.PlayerObserver
}

// Relay accepts Bedrock clients and runs a session for each of them against the upstream server.
type Relay struct {
	conf Config
	log  *logrus.Logger

	listener *minecraft.Listener
	stats    *statsview.ViewManager

	sessionMu sync.Mutex
	sessions  map[string]*session.Session
	accepted  chan *session.Session
	closed    chan struct{}
	once      sync.Once
}

// New returns a Relay that has not started listening yet.
func New(conf Config) *Relay {
	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	return &Relay{
		conf:     conf,
		log:      conf.Log,
		sessions: make(map[string]*session.Session),
		accepted: make(chan *session.Session),
		closed:   make(chan struct{}),
	}
}

// Listen starts listening on the local address of the settings and serves connections until the relay is
// closed.
func (r *Relay) Listen() error {
	l, err := minecraft.ListenConfig{
		StatusProvider:      r.conf.StatusProvider,
		AllowUnknownPackets: true,
		AllowInvalidPackets: true,
	}.Listen("raknet", r.conf.Settings.Network.LocalAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", r.conf.Settings.Network.LocalAddress, err)
	}
	r.listener = l

	if addr := r.conf.Settings.Debug.PprofAddress; addr != "" {
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(addr))
		r.stats = statsview.New()
		go r.stats.Start()
	}

	r.log.Infof("relay is now listening on %v and directing connections to %v (registry %016x, %d states)",
		r.conf.Settings.Network.LocalAddress, r.conf.Settings.Network.RemoteAddress,
		r.conf.Registry.Fingerprint(), r.conf.Registry.Len())
	for {
		c, err := l.Accept()
		if err != nil {
			return err
		}
		go r.handleConn(c.(*minecraft.Conn))
	}
}

// Accept blocks until a player joined and returns its session, before the session starts running. Players
// joining while nobody is accepting keep the default handler.
func (r *Relay) Accept() (*session.Session, error) {
	select {
	case s := <-r.accepted:
		return s, nil
	case <-r.closed:
		return nil, errors.New("relay shutdown")
	}
}

// Close stops listening and closes every session.
func (r *Relay) Close() error {
	r.once.Do(func() { close(r.closed) })
	if r.stats != nil {
		r.stats.Stop()
	}
	r.sessionMu.Lock()
	for _, s := range r.sessions {
		_ = s.Close()
	}
	r.sessionMu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Close()
}

// Session returns the session of the player with the XUID passed. Players that are not signed in to Xbox
// Live are found by their identity UUID instead.
func (r *Relay) Session(id string) (*session.Session, bool) {
	r.sessionMu.Lock()
	defer r.sessionMu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// addSession stores the session under the key and returns the session it replaced, if any.
func (r *Relay) addSession(key string, s *session.Session) *session.Session {
	r.sessionMu.Lock()
	defer r.sessionMu.Unlock()
	old := r.sessions[key]
	r.sessions[key] = s
	return old
}

// removeSession removes the session stored under the key, unless another session replaced it since.
func (r *Relay) removeSession(key string, s *session.Session) {
	r.sessionMu.Lock()
	if r.sessions[key] == s {
		delete(r.sessions, key)
	}
	r.sessionMu.Unlock()
}

// sessionKey identifies a player across display name changes.
func sessionKey(id login.IdentityData) string {
	if id.XUID != "" {
		return id.XUID
	}
	return id.Identity
}

// handleConn handles a new incoming minecraft.Conn from the listener.
func (r *Relay) handleConn(conn *minecraft.Conn) {
	name, key := conn.IdentityData().DisplayName, sessionKey(conn.IdentityData())
	defer r.recoverPanic(name)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	up, err := r.conf.Dialer.Dial(ctx, conn.IdentityData())
	cancel()
	if err != nil {
		r.log.Warnf("unable to connect %s upstream: %v", name, err)
		_ = r.listener.Disconnect(conn, "unable to reach the server")
		return
	}

	log, closeLog, err := r.sessionLogger(key)
	if err != nil {
		r.log.Errorf("unable to open log of %s: %v", name, err)
		log, closeLog = r.log, func() {}
	}
	defer closeLog()

	conf := r.conf.Settings.World
	s := session.New(session.Config{
		Name:         name,
		Registry:     r.conf.Registry,
		Client:       conn,
		Upstream:     up,
		MirrorBlocks: conf.MirrorBlocks,
		MinY:         conf.MinY,
		Height:       conf.Height,
		Observer:     r.conf.Observer,
		Log:          log,
	})
	if err := conn.StartGame(minecraft.GameData{
		WorldName:       r.conf.Settings.Network.RemoteAddress,
		EntityUniqueID:  int64(s.RuntimeID()),
		EntityRuntimeID: s.RuntimeID(),
	}); err != nil {
		r.log.Warnf("unable to spawn %s: %v", name, err)
		_ = up.Close()
		return
	}

	if old := r.addSession(key, s); old != nil {
		r.log.Infof("%s joined again, closing the previous session", name)
		_ = old.Close()
	}
	defer r.removeSession(key, s)

	select {
	case r.accepted <- s:
	default:
	}
	s.Start()
	defer s.Close()

	go func() {
		<-s.Closed()
		_ = r.listener.Disconnect(conn, "connection lost")
	}()
	for {
		pk, err := conn.ReadPacket()
		if err != nil {
			var disc minecraft.DisconnectError
			if errors.As(err, &disc) {
				log.Infof("%s disconnected: %v", name, disc.Error())
			}
			return
		}
		if !s.HandleClientPacket(pk) {
			return
		}
	}
}

// sessionLogger returns the logger of a session. Sessions log to a file of their own if a log directory is
// configured.
func (r *Relay) sessionLogger(key string) (*logrus.Logger, func(), error) {
	dir := r.conf.Settings.Logging.Directory
	if dir == "" {
		return r.log, func() {}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, logFileName(key)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:     false,
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	logger.SetLevel(r.log.GetLevel())
	logger.SetOutput(f)
	return logger, func() { _ = f.Close() }, nil
}

// logFileName returns the name of the log file for the key. Anything but letters, digits, '-' and '_' is
// replaced so the key cannot point outside the log directory.
func logFileName(key string) string {
	name := strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			return c
		}
		return '_'
	}, key)
	if name == "" {
		name = "unknown"
	}
	return name + ".log"
}

func (r *Relay) recoverPanic(name string) {
	if err := recover(); err != nil {
		r.log.Errorf("connection of %s panicked: %v", name, err)
		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("func", "relay.handleConn")
			scope.SetTag("player", name)
		})

		hub.Recover(oerror.New("%v", err))
		hub.Flush(time.Second * 5)
	}
}
