// Package config loads runtime configuration: defaults, then an optional YAML
// file, then HANDGRAB_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/handgrab/internal/core/grab"
	"github.com/zeusync/handgrab/internal/core/observability/log"
)

const EnvPrefix = "HANDGRAB_"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Grab      grab.Config `yaml:"grab" envPrefix:"GRAB_"`
	Runtime   Runtime     `yaml:"runtime" envPrefix:"RUNTIME_"`
	ScenePath string      `yaml:"scenePath" env:"SCENE_PATH"`
}

type Runtime struct {
	// TickRate is the frame rate in Hz.
	TickRate   int    `yaml:"tickRate" env:"TICK_RATE"`
	ListenAddr string `yaml:"listenAddr" env:"LISTEN_ADDR"`
	LogLevel   string `yaml:"logLevel" env:"LOG_LEVEL"`
	// Session identifies this process in constraint tags and hand messages.
	// Empty means a random id is generated on load.
	Session string `yaml:"session" env:"SESSION"`
	// Token, when set, is required from websocket clients.
	Token string `yaml:"token" env:"TOKEN"`
}

func Default() Config {
	return Config{
		Grab: grab.DefaultConfig(),
		Runtime: Runtime{
			TickRate:   90,
			ListenAddr: ":8765",
			LogLevel:   "info",
		},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err = Decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Runtime.Session == "" {
		cfg.Runtime.Session = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode merges a YAML document into cfg. Unknown keys are rejected.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if err := c.Grab.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("grab: %w", err))
	}
	if c.Runtime.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("runtime.tickRate must be positive, got %d", c.Runtime.TickRate))
	}
	if c.Runtime.ListenAddr == "" {
		errs = append(errs, errors.New("runtime.listenAddr is required"))
	}
	if _, err := log.ParseLevel(c.Runtime.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("runtime.logLevel: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
