package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Env holds settings read from CHOREO_* environment variables. Values set
// here win over engine.yaml.
type Env struct {
	ConfigPath   string `env:"CHOREO_CONFIG"         envDefault:"engine.yaml"`
	LogLevel     string `env:"CHOREO_LOG_LEVEL"      envDefault:"info"`
	ListenAddr   string `env:"CHOREO_LISTEN_ADDR"`
	MQTTURL      string `env:"CHOREO_MQTT_URL"`
	MQTTClientID string `env:"CHOREO_MQTT_CLIENT_ID" envDefault:"choreo-engine"`

	JournalDriver string `env:"CHOREO_JOURNAL_DRIVER"`
	JournalPath   string `env:"CHOREO_JOURNAL_PATH"`

	PGHost     string `env:"CHOREO_PG_HOST"     envDefault:"localhost"`
	PGPort     string `env:"CHOREO_PG_PORT"     envDefault:"5432"`
	PGUser     string `env:"CHOREO_PG_USER"     envDefault:"choreo"`
	PGDatabase string `env:"CHOREO_PG_DATABASE" envDefault:"choreo"`
	PGSSLMode  string `env:"CHOREO_PG_SSLMODE"  envDefault:"disable"`

	AlertWebhookURL   string        `env:"CHOREO_ALERT_WEBHOOK_URL"`
	MQTTAlertDelay    time.Duration `env:"CHOREO_MQTT_ALERT_DELAY"    envDefault:"30s"`
	JournalAlertDelay time.Duration `env:"CHOREO_JOURNAL_ALERT_DELAY" envDefault:"5s"`
	StallAfter        time.Duration `env:"CHOREO_STALL_AFTER"`

	TLSCert string `env:"CHOREO_TLS_CERT"`
	TLSKey  string `env:"CHOREO_TLS_KEY"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (*Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Apply overlays environment settings onto cfg.
func (e *Env) Apply(cfg *EngineConfig) {
	if e.ListenAddr != "" {
		cfg.Network.Listen = e.ListenAddr
	}
	if e.JournalDriver != "" {
		cfg.Journal.Driver = e.JournalDriver
	}
	if e.JournalPath != "" {
		cfg.Journal.Path = e.JournalPath
	}
}

// PGPassword resolves CHOREO_PG_PASSWORD, honouring the _FILE convention.
func (e *Env) PGPassword() (string, error) {
	return ResolveSecret("CHOREO_PG_PASSWORD")
}
