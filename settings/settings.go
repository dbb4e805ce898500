package settings

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// Settings contains everything that can be configured for the relay.
type Settings struct {
	Network struct {
		// LocalAddress is the address the relay listens on for Bedrock clients.
		LocalAddress string
		// RemoteAddress is the address of the upstream server.
		RemoteAddress string
	}
	World struct {
		// MirrorBlocks keeps a copy of every block the upstream server sends, per session.
		MirrorBlocks bool
		MinY         int
		Height       int
	}
	Registry struct {
		// Blocks and Items are the paths of the block and item data files.
		Blocks string
		Items  string
	}
	Logging struct {
		Level string
		// Directory, if not empty, holds one log file per session.
		Directory string
	}
	Debug struct {
		// PprofAddress, if not empty, serves the runtime stats viewer.
		PprofAddress string
		SentryDSN    string
	}
}

// DefaultSettings returns the default settings of the relay.
func DefaultSettings() Settings {
	settings := Settings{}
	settings.Network.LocalAddress = ":19132"
	settings.Network.RemoteAddress = "127.0.0.1:25565"

	settings.World.MirrorBlocks = true
	settings.World.MinY = -64
	settings.World.Height = 384

	settings.Registry.Blocks = "data/blocks.toml"
	settings.Registry.Items = "data/items.toml"

	settings.Logging.Level = "info"
	return settings
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	s := DefaultSettings()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if data, err := toml.Marshal(s); err != nil {
			return fmt.Errorf("failed encoding default settings: %w", err)
		} else if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed creating settings file: %w", err)
		}
		return nil
	}
	return errors.New("settings file already exists")
}

// Load will load the settings from your settings file, and return an error if the file does not exist.
// Values missing from the file keep their defaults.
func Load(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Settings{}, errors.New("settings file doesn't exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading config: %w", err)
	}

	settings := DefaultSettings()
	if err = toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error decoding config: %w", err)
	}
	return settings, nil
}
