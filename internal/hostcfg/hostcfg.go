// Package hostcfg loads and saves the host layer's persisted settings:
// window scale, audio buffering, ROM directory and key bindings. It is
// independent of the emulation core itself.
package hostcfg

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
)

// Settings mirrors internal/ui.Config plus the handful of fields that
// only make sense persisted (last ROM directory, key bindings).
type Settings struct {
	Scale           int    `toml:"scale"`
	Title           string `toml:"title"`
	AudioStereo     bool   `toml:"audio_stereo"`
	AudioAdaptive   bool   `toml:"audio_adaptive"`
	AudioBufferMs   int    `toml:"audio_buffer_ms"`
	AudioLowLatency bool   `toml:"audio_low_latency"`
	ROMsDir         string `toml:"roms_dir"`
	UseFetcherBG    bool   `toml:"use_fetcher_bg"`
	LastROM         string `toml:"last_rom"`

	Keys KeyBindings `toml:"keys"`
}

// KeyBindings names the ebiten key for each joypad button, stored as the
// key's String() form (e.g. "ArrowUp", "Z") so the file stays readable.
type KeyBindings struct {
	A      string `toml:"a"`
	B      string `toml:"b"`
	Start  string `toml:"start"`
	Select string `toml:"select"`
	Up     string `toml:"up"`
	Down   string `toml:"down"`
	Left   string `toml:"left"`
	Right  string `toml:"right"`
}

// Defaults returns the settings used when no settings file exists yet.
func Defaults() Settings {
	return Settings{
		Scale:         3,
		Title:         "gbemu",
		AudioBufferMs: 60,
		ROMsDir:       "roms",
		Keys: KeyBindings{
			A: "Z", B: "X", Start: "Enter", Select: "ShiftRight",
			Up: "ArrowUp", Down: "ArrowDown", Left: "ArrowLeft", Right: "ArrowRight",
		},
	}
}

// Load reads settings from path, falling back to Defaults() when the file
// does not exist. A malformed file is a hard error.
func Load(path string) (Settings, error) {
	s := Defaults()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes s to path as TOML, creating or truncating the file.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create settings %s: %w", path, err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode settings %s: %w", path, err)
	}
	return nil
}

// Validate collects every malformed field instead of stopping at the
// first one, so a user fixing a hand-edited settings file sees all the
// problems in one pass.
func (s Settings) Validate() error {
	var errs *multierror.Error
	if s.Scale <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("scale must be positive, got %d", s.Scale))
	}
	if s.AudioBufferMs < 0 {
		errs = multierror.Append(errs, fmt.Errorf("audio_buffer_ms must be non-negative, got %d", s.AudioBufferMs))
	}
	if s.ROMsDir == "" {
		errs = multierror.Append(errs, fmt.Errorf("roms_dir must not be empty"))
	}
	return errs.ErrorOrNil()
}
