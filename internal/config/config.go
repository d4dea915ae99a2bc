package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTickRate   = 50 * time.Millisecond
	defaultListenAddr = ":8080"
)

// EngineConfig is the engine.yaml deployment file. Level content lives in
// separate level files; this only describes the host around them.
type EngineConfig struct {
	Version int `yaml:"version"`
	Engine  struct {
		Name     string `yaml:"name"`
		TickRate string `yaml:"tick_rate"`
	} `yaml:"engine"`
	MQTT struct {
		Prefix             string  `yaml:"prefix"`
		HeartbeatTolerance float64 `yaml:"heartbeat_tolerance"`
	} `yaml:"mqtt"`
	Roles   map[string]RoleConfig `yaml:"roles"`
	Network struct {
		Listen string `yaml:"listen"`
	} `yaml:"network"`
	Journal struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"journal"`
}

// RoleConfig describes a collaborator role the engine expects.
type RoleConfig struct {
	Required bool     `yaml:"required"`
	Outputs  []string `yaml:"outputs"`
}

// Default returns the configuration used when no engine.yaml exists.
func Default() *EngineConfig {
	return &EngineConfig{Version: 1}
}

// TickInterval returns the configured tick interval, defaulting to 50ms.
func (c *EngineConfig) TickInterval() time.Duration {
	if c.Engine.TickRate == "" {
		return defaultTickRate
	}
	d, err := time.ParseDuration(c.Engine.TickRate)
	if err != nil || d <= 0 {
		return defaultTickRate
	}
	return d
}

// ListenAddr returns the configured HTTP address, defaulting to :8080.
func (c *EngineConfig) ListenAddr() string {
	if c.Network.Listen == "" {
		return defaultListenAddr
	}
	return c.Network.Listen
}

func LoadEngineConfig(path string) (*EngineConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported engine.yaml version: %d", cfg.Version)
	}

	if cfg.Engine.TickRate != "" {
		if _, err := time.ParseDuration(cfg.Engine.TickRate); err != nil {
			return nil, fmt.Errorf("engine.tick_rate: %w", err)
		}
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist.
func LoadOrDefault(path string) (*EngineConfig, error) {
	cfg, err := LoadEngineConfig(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}
