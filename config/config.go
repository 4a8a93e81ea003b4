// Package config loads and persists user configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"dictap/encoder"
)

const (
	defaultThresholdMS  = 400
	defaultProcessSec   = 30.0
	defaultAPITimeout   = 60.0
	defaultMinSpeechMS  = 250
	defaultMinSilenceMS = 700
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Backend string `toml:"backend"` // local, openai, groq

	Local struct {
		ModelPath string `toml:"model_path"`
	} `toml:"local"`

	API struct {
		Key        string  `toml:"key"` // empty = read from env
		URL        string  `toml:"url"` // empty = provider default
		Model      string  `toml:"model"`
		Format     string  `toml:"format"` // wav or flac (upload encoding)
		TimeoutSec float64 `toml:"timeout_sec"`
	} `toml:"api"`

	Hotkey struct {
		ThresholdMS int `toml:"threshold_ms"`
	} `toml:"hotkey"`

	Audio struct {
		Device   string `toml:"device"`
		Language string `toml:"language"` // empty = auto-detect
	} `toml:"audio"`

	VAD struct {
		Enabled         bool    `toml:"enabled"`
		Aggressiveness  int     `toml:"aggressiveness"`
		EnergyThreshold float64 `toml:"energy_threshold"`
		MinSpeechMS     int     `toml:"min_speech_ms"`
		MinSilenceMS    int     `toml:"min_silence_ms"`
	} `toml:"vad"`

	Controller struct {
		ProcessingTimeoutSec float64 `toml:"processing_timeout_sec"`
	} `toml:"controller"`

	Inject struct {
		Paste            bool `toml:"paste"`
		RestoreClipboard bool `toml:"restore_clipboard"`
	} `toml:"inject"`

	Notify struct {
		Desktop bool `toml:"desktop"`
		Sound   bool `toml:"sound"`
	} `toml:"notify"`

	Logging struct {
		Dir   string `toml:"dir"`
		Level string `toml:"level"`
	} `toml:"logging"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Backend = "openai"

	cfg.API.Model = ""
	cfg.API.Format = "flac"
	cfg.API.TimeoutSec = defaultAPITimeout

	cfg.Hotkey.ThresholdMS = defaultThresholdMS

	cfg.Audio.Language = ""

	cfg.VAD.Enabled = true
	cfg.VAD.Aggressiveness = 2
	cfg.VAD.EnergyThreshold = 0
	cfg.VAD.MinSpeechMS = defaultMinSpeechMS
	cfg.VAD.MinSilenceMS = defaultMinSilenceMS

	cfg.Controller.ProcessingTimeoutSec = defaultProcessSec

	cfg.Inject.Paste = true
	cfg.Inject.RestoreClipboard = true

	cfg.Notify.Desktop = true
	cfg.Notify.Sound = true

	cfg.Logging.Level = "info"
	return cfg
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "dictap", "config.toml"), nil
}

// Load reads the config at path, creating it with defaults if missing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if werr := Save(path, cfg); werr != nil {
			return nil, fmt.Errorf("writing default config: %w", werr)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as TOML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Backend {
	case "local", "openai", "groq":
	default:
		return fmt.Errorf("unknown backend %q (use local, openai, or groq)", c.Backend)
	}
	switch c.API.Format {
	case "wav", "flac":
	default:
		return fmt.Errorf("unknown api format %q (use wav or flac)", c.API.Format)
	}
	if c.Hotkey.ThresholdMS <= 0 {
		return fmt.Errorf("hotkey threshold_ms must be positive (got %d)", c.Hotkey.ThresholdMS)
	}
	if c.VAD.Aggressiveness < 0 || c.VAD.Aggressiveness > 3 {
		return fmt.Errorf("vad aggressiveness must be 0-3 (got %d)", c.VAD.Aggressiveness)
	}
	if c.Controller.ProcessingTimeoutSec <= 0 {
		return fmt.Errorf("controller processing_timeout_sec must be positive")
	}
	return nil
}

// Threshold returns the double-press window as a duration.
func (c *Config) Threshold() time.Duration {
	return time.Duration(c.Hotkey.ThresholdMS) * time.Millisecond
}

// ProcessingTimeout returns the ceiling on waiting for a transcription.
func (c *Config) ProcessingTimeout() time.Duration {
	return time.Duration(c.Controller.ProcessingTimeoutSec * float64(time.Second))
}

// APITimeout returns the per-request timeout for remote backends.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSec * float64(time.Second))
}

// EncodeFormat returns the upload format as an encoder type. Validate
// guarantees the string is one of the known formats.
func (c *Config) EncodeFormat() encoder.Format {
	f, _ := encoder.ParseFormat(c.API.Format)
	return f
}
