package emu

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"famicle/emu/log"
)

type Config struct {
	Video   VideoConfig   `toml:"video"`
	General GeneralConfig `toml:"general"`
}

type GeneralConfig struct {
	PauseOnFocusLoss bool `toml:"pause_on_focus_loss"`
}

type VideoConfig struct {
	DisableVSync bool `toml:"disable_vsync"`
}

var ConfigDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("famicle")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Fatalf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// LoadConfigOrDefault loads the configuration from the famicle config
// directory, or provides a default one.
func LoadConfigOrDefault() Config {
	var cfg Config
	_, err := toml.DecodeFile(filepath.Join(ConfigDir(), cfgFilename), &cfg)
	if err != nil {
		return Config{}
	}
	return cfg
}

// SaveConfig writes the configuration to the famicle config directory.
func SaveConfig(cfg Config) error {
	f, err := os.Create(filepath.Join(ConfigDir(), cfgFilename))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
