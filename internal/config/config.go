package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/wirecodec/internal/logging"
	"github.com/danmuck/wirecodec/internal/protocol"
	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "wirectl.toml"

// Config is the wirectl config file.
type Config struct {
	Limits LimitsConfig `toml:"limits"`
	Log    LogConfig    `toml:"log"`
	Schema SchemaConfig `toml:"schema"`
}

type LimitsConfig struct {
	MaxSize  int `toml:"max_size"`
	MaxList  int `toml:"max_list"`
	MaxDepth int `toml:"max_depth"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	NoColor   bool   `toml:"no_color"`
	Timestamp bool   `toml:"timestamp"`
}

type SchemaConfig struct {
	// Path is resolved against the config file's directory when relative.
	Path string `toml:"path"`
	// Root names the struct kind used when none is given on the command line.
	Root string `toml:"root"`
}

func Default() Config {
	return Config{
		Limits: LimitsConfig{
			MaxSize:  protocol.DefaultMaxSize,
			MaxList:  protocol.DefaultMaxList,
			MaxDepth: protocol.DefaultMaxDepth,
		},
		Log: LogConfig{
			Level:     "info",
			Timestamp: true,
		},
	}
}

// Load reads path over the defaults. Keys the file leaves out keep their
// default values; unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return Config{}, err
	}
	cfg.Schema.Path = strings.TrimSpace(cfg.Schema.Path)
	if cfg.Schema.Path != "" && !filepath.IsAbs(cfg.Schema.Path) {
		cfg.Schema.Path = filepath.Join(filepath.Dir(path), cfg.Schema.Path)
	}
	cfg.Schema.Root = strings.TrimSpace(cfg.Schema.Root)
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func Validate(cfg Config) error {
	if err := ValidateLimits(cfg.Limits); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	if cfg.Schema.Root != "" && cfg.Schema.Path == "" {
		return fmt.Errorf("schema: root %q set without a path", cfg.Schema.Root)
	}
	return nil
}

func ValidateLimits(cfg LimitsConfig) error {
	if cfg.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	if cfg.MaxList <= 0 {
		return fmt.Errorf("max_list must be positive")
	}
	if cfg.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive")
	}
	return nil
}

// CodecLimits converts the [limits] table for the codec.
func (c LimitsConfig) CodecLimits() protocol.Limits {
	return protocol.Limits{
		MaxSize:  c.MaxSize,
		MaxList:  c.MaxList,
		MaxDepth: c.MaxDepth,
	}
}

// Logging converts the [log] table; env overrides are applied on top by the
// logging package.
func (c LogConfig) Logging(profile logging.Profile) logging.Config {
	cfg := logging.DefaultConfig(profile)
	if lvl, ok := logging.ParseLevel(c.Level); ok {
		cfg.Level = lvl
	}
	cfg.NoColor = c.NoColor
	cfg.Timestamp = c.Timestamp
	return cfg
}
