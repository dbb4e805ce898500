package relay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oomph-ac/relay/registry"
	"github.com/oomph-ac/relay/session"
	"github.com/oomph-ac/relay/settings"
	"github.com/sandertv/gophertunnel/minecraft/protocol/login"
	"github.com/sirupsen/logrus"
)

func TestSessionLoggerWritesFile(t *testing.T) {
	conf := Config{Settings: settings.DefaultSettings(), Log: logrus.New()}
	conf.Settings.Logging.Directory = filepath.Join(t.TempDir(), "logs")
	r := New(conf)

	log, closeLog, err := r.sessionLogger("2535400000000001")
	if err != nil {
		t.Fatalf("session logger: %v", err)
	}
	log.Info("joined")
	closeLog()

	data, err := os.ReadFile(filepath.Join(conf.Settings.Logging.Directory, "2535400000000001.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("nothing was logged")
	}
}

func TestSessionLoggerWithoutDirectory(t *testing.T) {
	base := logrus.New()
	r := New(Config{Settings: settings.DefaultSettings(), Log: base})
	log, _, err := r.sessionLogger("Steve")
	if err != nil {
		t.Fatalf("session logger: %v", err)
	}
	if log != base {
		t.Fatal("expected the relay logger to be shared")
	}
}

func TestAcceptAfterClose(t *testing.T) {
	r := New(Config{Settings: settings.DefaultSettings()})
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := r.Accept(); err == nil {
		t.Fatal("accept succeeded on a closed relay")
	}
}

func TestLogFileNameStaysInDirectory(t *testing.T) {
	tests := map[string]string{
		"2535400000000001":                     "2535400000000001.log",
		"fd7e8f4c-6a0b-4b8e-9c55-1f5e3f1a2b3c": "fd7e8f4c-6a0b-4b8e-9c55-1f5e3f1a2b3c.log",
		"../../etc/passwd":                     "______etc_passwd.log",
		"Steve Jobs":                           "Steve_Jobs.log",
		"":                                     "unknown.log",
	}
	for key, want := range tests {
		if got := logFileName(key); got != want {
			t.Errorf("logFileName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestSessionKeyPrefersXUID(t *testing.T) {
	id := login.IdentityData{XUID: "2535400000000001", Identity: "fd7e8f4c-6a0b-4b8e-9c55-1f5e3f1a2b3c", DisplayName: "Steve"}
	if got := sessionKey(id); got != id.XUID {
		t.Errorf("expected the XUID, got %q", got)
	}
	id.XUID = ""
	if got := sessionKey(id); got != id.Identity {
		t.Errorf("expected the identity UUID, got %q", got)
	}
}

func TestRemovingReplacedSessionKeepsNewer(t *testing.T) {
	reg, err := registry.New(nil, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	r := New(Config{Settings: settings.DefaultSettings()})
	first := session.New(session.Config{Name: "Steve", Registry: reg})
	second := session.New(session.Config{Name: "Steve", Registry: reg})

	if old := r.addSession("2535400000000001", first); old != nil {
		t.Fatal("first session replaced another one")
	}
	if old := r.addSession("2535400000000001", second); old != first {
		t.Fatal("second session did not replace the first")
	}
	r.removeSession("2535400000000001", first)
	if s, ok := r.Session("2535400000000001"); !ok || s != second {
		t.Fatal("removing the replaced session dropped the newer one")
	}
	r.removeSession("2535400000000001", second)
	if _, ok := r.Session("2535400000000001"); ok {
		t.Error("session still stored after removal")
	}
}
