package main

import (
	"io"
	"os"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/relay"
	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/session"
	"github.com/oomph-ac/relay/settings"
	"github.com/sirupsen/logrus"
)

const configPath = "config.toml"

// The following program runs the relay in front of a flat, in-memory upstream world.
func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := settings.SaveDefault(configPath); err != nil {
			log.Fatalf("unable to create default settings: %v", err)
		}
	}
	conf, err := settings.Load(configPath)
	if err != nil {
		log.Fatalf("unable to load settings: %v", err)
	}
	if lvl, err := logrus.ParseLevel(conf.Logging.Level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.Warnf("unknown log level %q, using info", conf.Logging.Level)
	}

	if conf.Debug.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: conf.Debug.SentryDSN}); err != nil {
			log.Fatalf("unable to initialise sentry: %v", err)
		}
		defer sentry.Flush(time.Second * 5)
	}

	reg, err := loadRegistry(conf)
	if err != nil {
		log.Fatalf("unable to load registry: %v", err)
	}

	r := relay.New(relay.Config{
		Settings: conf,
		Registry: reg,
		Dialer:   flatDialer{reg: reg, radius: 4},
		Log:      log,
	})
	go func() {
		for {
			s, err := r.Accept()
			if err != nil {
				return
			}
			s.Handle(&handler{log: log})
		}
	}()
	if err := r.Listen(); err != nil {
		log.Fatalf("relay stopped: %v", err)
	}
}

func loadRegistry(conf settings.Settings) (*registry.Registry, error) {
	readers := make(map[registry.Category]io.Reader)
	for c, path := range map[registry.Category]string{
		registry.CategoryBlocks: conf.Registry.Blocks,
		registry.CategoryItems:  conf.Registry.Items,
	} {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		readers[c] = f
	}
	return registry.Load(readers)
}

// handler logs what the sessions of the relay do.
type handler struct {
	session.NopHandler
	log *logrus.Logger
}

func (h *handler) HandleBlockBreak(_ *session.Context, pos cube.Pos, state registry.BlockState) {
	h.log.Debugf("%s broken at %v", state.Name, pos)
}

func (h *handler) HandleDesync(_ *session.Context, orphans []cube.Pos) {
	h.log.Warnf("resending %d orphaned moving blocks", len(orphans))
}
