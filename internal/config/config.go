package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/doipscope/internal/frame"
	"github.com/danmuck/doipscope/internal/logging"
	"github.com/danmuck/doipscope/internal/render"
	"github.com/rs/zerolog"
)

// InputFormat selects how capture files are read.
type InputFormat string

const (
	InputBinary InputFormat = "binary"
	InputHex    InputFormat = "hex"
	// InputPcap reads pcap or pcapng captures offline.
	InputPcap InputFormat = "pcap"
)

// Config is the doipscope runtime configuration.
type Config struct {
	Log    logging.Config
	Input  InputConfig
	Output OutputConfig
}

type InputConfig struct {
	Format InputFormat
	Limits frame.Limits
}

type OutputConfig struct {
	Format       render.Format
	ShowRegistry bool
	Metrics      bool
}

type fileConfig struct {
	Log struct {
		Level     string `toml:"level"`
		Timestamp bool   `toml:"timestamp"`
		NoColor   bool   `toml:"no_color"`
	} `toml:"log"`
	Input struct {
		Format          string `toml:"format"`
		MaxPayloadBytes int64  `toml:"max_payload_bytes"`
		StrictHeader    bool   `toml:"strict_header"`
	} `toml:"input"`
	Output struct {
		Format       string `toml:"format"`
		ShowRegistry bool   `toml:"show_registry"`
		Metrics      bool   `toml:"metrics"`
	} `toml:"output"`
}

func DefaultConfig() Config {
	return Config{
		Log: logging.DefaultConfig(logging.ProfileRuntime),
		Input: InputConfig{
			Format: InputBinary,
			Limits: frame.DefaultLimits(),
		},
		Output: OutputConfig{
			Format: render.FormatText,
		},
	}
}

// Load reads path over DefaultConfig. Keys missing from the file keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("log", "level") {
		lvl, ok := logging.ParseLevel(raw.Log.Level)
		if !ok {
			return Config{}, fmt.Errorf("parse log.level: unknown level %q", raw.Log.Level)
		}
		cfg.Log.Level = lvl
	}
	if meta.IsDefined("log", "timestamp") {
		cfg.Log.Timestamp = raw.Log.Timestamp
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}

	if meta.IsDefined("input", "format") {
		f, err := ParseInputFormat(raw.Input.Format)
		if err != nil {
			return Config{}, err
		}
		cfg.Input.Format = f
	}
	if meta.IsDefined("input", "max_payload_bytes") {
		n := raw.Input.MaxPayloadBytes
		if n <= 0 || n > int64(^uint32(0)) {
			return Config{}, fmt.Errorf("parse input.max_payload_bytes: out of range: %d", n)
		}
		cfg.Input.Limits.MaxPayloadBytes = uint32(n)
	}
	if meta.IsDefined("input", "strict_header") {
		cfg.Input.Limits.StrictHeader = raw.Input.StrictHeader
	}

	if meta.IsDefined("output", "format") {
		f, err := render.ParseFormat(strings.TrimSpace(raw.Output.Format))
		if err != nil {
			return Config{}, err
		}
		cfg.Output.Format = f
	}
	if meta.IsDefined("output", "show_registry") {
		cfg.Output.ShowRegistry = raw.Output.ShowRegistry
	}
	if meta.IsDefined("output", "metrics") {
		cfg.Output.Metrics = raw.Output.Metrics
	}
	return cfg, nil
}

func ParseInputFormat(raw string) (InputFormat, error) {
	switch f := InputFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case InputBinary, InputHex, InputPcap:
		return f, nil
	default:
		return "", fmt.Errorf("config: unknown input format %q", raw)
	}
}

// LevelName renders a log level the way the config file spells it.
func LevelName(l zerolog.Level) string {
	if l == zerolog.Disabled {
		return "off"
	}
	return l.String()
}
